package parse

import (
	"text2phenotype.com/psyctx/types"
	"fmt"
	"github.com/jdkato/prose/v2"
)

// Tokenizer is a provider without syntax: tokens come from prose and every token is its
// own head. Good enough for context matching, relation checks will only see identical heads.
type Tokenizer struct{}

func (Tokenizer) Dependencies() bool { return false }

func (Tokenizer) Parse(text string) (*types.Sentence, error) {
	doc, err := prose.NewDocument(
		text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tokenize %q: %w", text, err)
	}
	tokens := doc.Tokens()
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		words = append(words, tok.Text)
	}
	return Flat(text, words), nil
}
