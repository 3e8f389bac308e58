package lexicon

import (
	"fmt"
	"sort"
)

// Lexicon holds every configured dimension. It is built once and only read afterwards.
type Lexicon struct {
	dimensions map[string]*Dimension
}

func New() *Lexicon {
	return &Lexicon{dimensions: make(map[string]*Dimension)}
}

func (lex *Lexicon) Put(dim *Dimension) error {
	if _, ok := lex.dimensions[dim.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDimension, dim.Name)
	}
	lex.dimensions[dim.Name] = dim
	return nil
}

func (lex *Lexicon) Get(name string) (*Dimension, bool) {
	dim, ok := lex.dimensions[name]
	return dim, ok
}

func (lex *Lexicon) Names() []string {
	names := make([]string, 0, len(lex.dimensions))
	for name := range lex.dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the dimensions in the given order.
func (lex *Lexicon) Select(order []string) ([]*Dimension, error) {
	dims := make([]*Dimension, len(order))
	for i, name := range order {
		dim, ok := lex.dimensions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDimension, name)
		}
		dims[i] = dim
	}
	return dims, nil
}
