package matcher

import (
	"text2phenotype.com/psyctx/lexicon"
	"text2phenotype.com/psyctx/types"
	"fmt"
	"github.com/rs/zerolog"
)

// Warning reports an entity the matcher could not place in the sentence.
type Warning struct {
	Entity int
	Span   types.TokenSpan
	Tokens int
}

func (w Warning) String() string {
	return fmt.Sprintf("entity %d spans %s but the sentence has %d tokens", w.Entity, w.Span, w.Tokens)
}

// Matcher assigns one label per dimension to every entity of a sentence.
// It only reads its dimensions and is safe for concurrent use.
type Matcher struct {
	dims      []*lexicon.Dimension
	ctxLogger zerolog.Logger
}

func New(dims []*lexicon.Dimension, ctxLogger zerolog.Logger) *Matcher {
	return &Matcher{dims: dims, ctxLogger: ctxLogger}
}

// Labels returns the dimension names in context vector order.
func (m *Matcher) Labels() []string {
	names := make([]string, len(m.dims))
	for i, dim := range m.dims {
		names[i] = dim.Name
	}
	return names
}

func (m *Matcher) Defaults() types.ContextVector {
	vector := types.NewContextVector(len(m.dims))
	for i, dim := range m.dims {
		vector[i] = dim.Default
	}
	return vector
}

// Match fills the context vector of every entity in place. Entities outside the sentence
// get the default labels and a warning.
func (m *Matcher) Match(sent *types.Sentence, entities []types.Entity) []Warning {
	var warnings []Warning
	valid := make([]bool, len(entities))
	for i := range entities {
		entity := &entities[i]
		if len(entity.Context) != len(m.dims) {
			entity.Context = types.NewContextVector(len(m.dims))
		}
		valid[i] = sent.Contains(entity.TokenSpan)
		if !valid[i] {
			copy(entity.Context, m.Defaults())
			w := Warning{Entity: i, Span: entity.TokenSpan, Tokens: sent.Len()}
			m.ctxLogger.Warn().
				Str("sentence", sent.Text).
				Str("entity", entity.Text).
				Msg(w.String())
			warnings = append(warnings, w)
		}
	}
	if len(warnings) == len(entities) {
		return warnings
	}

	for d, dim := range m.dims {
		s := resolveScopes(dim, sent)
		for i := range entities {
			if valid[i] {
				entities[i].Context[d] = s.label(entities[i].TokenSpan)
			}
		}
	}
	return warnings
}
