package parse

import (
	"text2phenotype.com/psyctx/types"
	"text2phenotype.com/psyctx/utils"
	"errors"
	"fmt"
	"sync"
)

var ErrNotParsed = errors.New("no parse available for sentence")

// Provider turns sentence text into tokens with dependency information.
// Implementations must be deterministic for identical input.
type Provider interface {
	Parse(text string) (*types.Sentence, error)
}

type dependencyReporter interface {
	// Dependencies reports whether the provider fills heads and subtrees from a real parse.
	Dependencies() bool
}

// HasDependencies reports whether sentences from p can carry dependency trees. Providers
// that do not say otherwise are assumed to.
func HasDependencies(p Provider) bool {
	if r, ok := p.(dependencyReporter); ok {
		return r.Dependencies()
	}
	return true
}

type ProviderFunc func(text string) (*types.Sentence, error)

func (f ProviderFunc) Parse(text string) (*types.Sentence, error) {
	return f(text)
}

func Key(text string) string {
	return fmt.Sprintf("parse:%016x", utils.HashString(text))
}

// Store serves docs parsed ahead of time, keyed by the hash of their text.
type Store struct {
	mu   sync.RWMutex
	docs map[uint64]Doc
}

func NewStore() *Store {
	return &Store{docs: make(map[uint64]Doc)}
}

func (store *Store) Add(doc Doc) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.docs[doc.GetHashCode()] = doc
}

func (store *Store) Parse(text string) (*types.Sentence, error) {
	store.mu.RLock()
	doc, ok := store.docs[utils.HashString(text)]
	store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotParsed, text)
	}
	return Build(doc)
}

type chain []Provider

func (c chain) Dependencies() bool {
	for _, p := range c {
		if HasDependencies(p) {
			return true
		}
	}
	return false
}

// Chain asks each provider in turn and returns the first parse that succeeds.
func Chain(providers ...Provider) Provider {
	return chain(providers)
}

func (c chain) Parse(text string) (*types.Sentence, error) {
	errs := make([]error, 0, len(c))
	for _, p := range c {
		sent, err := p.Parse(text)
		if err == nil {
			return sent, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNotParsed
	}
	return nil, errors.Join(errs...)
}
