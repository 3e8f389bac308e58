package types

import (
	"sort"
	"strings"
)

type Token struct {
	Index   int
	Text    string
	Lower   string
	Lemma   string
	Tag     string
	Dep     string
	Head    int
	Subtree []int
	// byte offsets into Sentence.Normalized, -1 when unknown
	Begin int
	End   int
}

func NewToken(index int, text string) *Token {
	return &Token{
		Index:   index,
		Text:    text,
		Lower:   strings.ToLower(text),
		Head:    index,
		Subtree: []int{index},
	}
}

func (token *Token) IsRoot() bool {
	return token.Head == token.Index
}

// InSubtree reports whether the token with the given index is the token itself or one of its descendants.
func (token *Token) InSubtree(index int) bool {
	i := sort.SearchInts(token.Subtree, index)
	return i < len(token.Subtree) && token.Subtree[i] == index
}
