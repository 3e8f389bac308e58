package lexicon

import (
	"text2phenotype.com/psyctx/fsm"
	"text2phenotype.com/psyctx/types"
	"fmt"
	"regexp"
	"strings"
)

// Matcher is one of Phrase, Pattern or Regex.
type Matcher interface {
	// FindAll returns the token spans of every occurrence in the sentence, in token order.
	FindAll(sent *types.Sentence) []types.TokenSpan
	Kind() string
	String() string
	sealed()
}

type Trigger struct {
	Category types.Category
	Label    types.Label
	// Order is the declaration index inside the dimension, lower wins ties.
	Order   int
	Matcher Matcher
}

// Phrase matches a run of tokens whose lowercase forms equal the whitespace separated words of the phrase.
type Phrase struct {
	Text  string
	words []string
}

func NewPhrase(text string) (*Phrase, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty phrase", ErrEmptyTrigger)
	}
	return &Phrase{Text: text, words: words}, nil
}

func (p *Phrase) FindAll(sent *types.Sentence) []types.TokenSpan {
	var spans []types.TokenSpan
	tokens := sent.Tokens
	for start := 0; start+len(p.words) <= len(tokens); start++ {
		matched := true
		for i, w := range p.words {
			if tokens[start+i].Lower != w {
				matched = false
				break
			}
		}
		if matched {
			spans = append(spans, types.TokenSpan{Start: start, End: start + len(p.words)})
		}
	}
	return spans
}

func (p *Phrase) Kind() string   { return "phrase" }
func (p *Phrase) String() string { return p.Text }
func (p *Phrase) sealed()        {}

// Pattern matches consecutive tokens against per-token attribute constraints.
type Pattern struct {
	Constraints []TokenConstraint
	seq         fsm.Sequence
}

func NewPattern(constraints []TokenConstraint, vocabularies Vocabularies) (*Pattern, error) {
	if len(constraints) == 0 {
		return nil, fmt.Errorf("%w: empty pattern", ErrEmptyTrigger)
	}
	seq := make(fsm.Sequence, len(constraints))
	for i, constraint := range constraints {
		cond, err := constraint.compile(vocabularies)
		if err != nil {
			return nil, fmt.Errorf("pattern token %d: %w", i, err)
		}
		seq[i] = cond
	}
	return &Pattern{Constraints: constraints, seq: seq}, nil
}

func (p *Pattern) FindAll(sent *types.Sentence) []types.TokenSpan {
	return p.seq.FindAll(sent.Tokens)
}

func (p *Pattern) Kind() string { return "pattern" }

func (p *Pattern) String() string {
	parts := make([]string, len(p.Constraints))
	for i, c := range p.Constraints {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func (p *Pattern) sealed() {}

// Regex is searched in the normalized sentence text. A match covers every token whose
// byte range overlaps it.
type Regex struct {
	Expr string
	re   *regexp.Regexp
}

func NewRegex(expr string) (*Regex, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty regex", ErrEmptyTrigger)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("bad regex %q: %w", expr, err)
	}
	return &Regex{Expr: expr, re: re}, nil
}

func (r *Regex) FindAll(sent *types.Sentence) []types.TokenSpan {
	var spans []types.TokenSpan
	for _, loc := range r.re.FindAllStringIndex(sent.Normalized, -1) {
		if loc[1] <= loc[0] {
			continue
		}
		span := types.TokenSpan{Start: -1}
		for _, token := range sent.Tokens {
			if token.Begin < 0 || token.End <= loc[0] || token.Begin >= loc[1] {
				continue
			}
			if span.Start < 0 {
				span.Start = token.Index
			}
			span.End = token.Index + 1
		}
		if span.Start >= 0 {
			spans = append(spans, span)
		}
	}
	return spans
}

func (r *Regex) Kind() string   { return "regex" }
func (r *Regex) String() string { return r.Expr }
func (r *Regex) sealed()        {}
