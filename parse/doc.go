package parse

import (
	"text2phenotype.com/psyctx/types"
	"text2phenotype.com/psyctx/utils"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrHeadOutOfRange = errors.New("token head out of range")
	ErrHeadCycle      = errors.New("token heads form a cycle")
)

// DocToken is a token in the JSON form written by the external parser (spaCy style).
type DocToken struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	Tag   string `json:"tag"`
	Pos   string `json:"pos"`
	Dep   string `json:"dep"`
	// Head is the absolute index of the syntactic head, the root points to itself.
	Head int `json:"head"`
}

type Doc struct {
	Text   string     `json:"text"`
	Tokens []DocToken `json:"tokens"`
}

var _ types.Hashable = Doc{}

// GetHashCode equals the hash of the sentence built from the doc.
func (doc Doc) GetHashCode() uint64 {
	return utils.HashString(doc.Text)
}

// Build turns a parsed doc into a sentence with subtrees and byte offsets.
func Build(doc Doc) (*types.Sentence, error) {
	n := len(doc.Tokens)
	sent := &types.Sentence{
		Text:       doc.Text,
		Normalized: doc.Text,
		Tokens:     make([]*types.Token, n),
	}

	cursor := 0
	for i, dt := range doc.Tokens {
		if dt.Head < 0 || dt.Head >= n {
			return nil, fmt.Errorf("%w: token %d (%q) has head %d, sentence has %d tokens", ErrHeadOutOfRange, i, dt.Text, dt.Head, n)
		}
		token := types.NewToken(i, dt.Text)
		token.Lemma = dt.Lemma
		token.Tag = dt.Tag
		token.Dep = dt.Dep
		token.Head = dt.Head
		token.Subtree = nil
		token.Begin, token.End, cursor = locate(doc.Text, dt.Text, cursor)
		sent.Tokens[i] = token
	}

	for i := range sent.Tokens {
		// walk from i up to the root, i belongs to the subtree of every node on the way
		node := i
		for steps := 0; ; steps++ {
			if steps > n {
				return nil, fmt.Errorf("%w: starting at token %d", ErrHeadCycle, i)
			}
			sent.Tokens[node].Subtree = append(sent.Tokens[node].Subtree, i)
			head := sent.Tokens[node].Head
			if head == node {
				break
			}
			node = head
		}
	}
	for _, token := range sent.Tokens {
		sort.Ints(token.Subtree)
	}
	return sent, nil
}

// Flat builds a sentence without dependency information: every token is its own root.
func Flat(text string, words []string) *types.Sentence {
	doc := Doc{Text: text, Tokens: make([]DocToken, len(words))}
	for i, w := range words {
		doc.Tokens[i] = DocToken{ID: i, Text: w, Lemma: strings.ToLower(w), Head: i}
	}
	sent, err := Build(doc)
	if err != nil {
		// heads point to themselves, Build cannot fail
		panic(err)
	}
	return sent
}

// locate finds word in text at or after cursor. Tokens that cannot be found get -1 offsets
// and leave the cursor where it was.
func locate(text string, word string, cursor int) (int, int, int) {
	if word == "" || cursor > len(text) {
		return -1, -1, cursor
	}
	if i := strings.Index(text[cursor:], word); i >= 0 {
		begin := cursor + i
		return begin, begin + len(word), begin + len(word)
	}
	lowerRest := strings.ToLower(text[cursor:])
	lowerWord := strings.ToLower(word)
	if len(lowerRest) == len(text)-cursor {
		if i := strings.Index(lowerRest, lowerWord); i >= 0 && len(lowerWord) == len(word) {
			begin := cursor + i
			return begin, begin + len(word), begin + len(word)
		}
	}
	return -1, -1, cursor
}
