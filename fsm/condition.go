package fsm

import (
	"text2phenotype.com/psyctx/types"
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"strings"
)

type Condition func(token *types.Token) bool

// Attribute selects the token field a condition looks at.
type Attribute func(token *types.Token) string

var attributes = map[string]Attribute{
	"lower": func(token *types.Token) string { return token.Lower },
	"text":  func(token *types.Token) string { return token.Text },
	"lemma": func(token *types.Token) string { return token.Lemma },
	"dep":   func(token *types.Token) string { return token.Dep },
	"tag":   func(token *types.Token) string { return token.Tag },
}

func LookupAttribute(name string) (Attribute, error) {
	attr, ok := attributes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown token attribute %q", name)
	}
	return attr, nil
}

func AnyCondition(token *types.Token) bool {
	return true
}

func NewValueCondition(attr Attribute, value string) Condition {
	return func(token *types.Token) bool {
		return attr(token) == value
	}
}

func NewWordSetCondition(attr Attribute, set mapset.Set[string]) Condition {
	return func(token *types.Token) bool {
		return set.Contains(attr(token))
	}
}

func NewCombineCondition(conditions ...Condition) Condition {
	return func(token *types.Token) bool {
		for _, cond := range conditions {
			if !cond(token) {
				return false
			}
		}

		return true
	}
}

func NewNegateCondition(cond Condition) Condition {
	return func(token *types.Token) bool {
		return !cond(token)
	}
}
