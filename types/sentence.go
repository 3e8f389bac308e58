package types

import (
	"text2phenotype.com/psyctx/utils"
	"strings"
)

type Sentence struct {
	Text       string
	Normalized string
	Tokens     []*Token
}

func (sent *Sentence) Len() int {
	return len(sent.Tokens)
}

func (sent *Sentence) Contains(span TokenSpan) bool {
	return span.Start >= 0 && span.Start < span.End && span.End <= len(sent.Tokens)
}

// Head returns the syntactic head of the token at index i.
func (sent *Sentence) Head(i int) *Token {
	return sent.Tokens[sent.Tokens[i].Head]
}

func (sent *Sentence) SpanText(span TokenSpan) string {
	if !sent.Contains(span) {
		return ""
	}
	parts := make([]string, 0, span.Len())
	for _, token := range sent.Tokens[span.Start:span.End] {
		parts = append(parts, token.Text)
	}
	return strings.Join(parts, " ")
}

func (sent Sentence) GetHashCode() uint64 {
	return utils.HashString(sent.Normalized)
}
