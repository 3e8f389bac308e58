package lexicon

import (
	"text2phenotype.com/psyctx/fsm"
	"encoding/json"
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"
	"sort"
	"strings"
)

// VocabularyPrefix marks an "in" value as a reference to a named vocabulary.
const VocabularyPrefix = "@"

type Vocabularies map[string][]string

// AttrConstraint is an exact value, a closed set of values or a set of excluded values.
// In YAML and JSON it is written as a plain string, {in: [...]} or {not_in: [...]}.
type AttrConstraint struct {
	Equals string   `yaml:"equals" json:"equals"`
	In     []string `yaml:"in" json:"in"`
	NotIn  []string `yaml:"not_in" json:"not_in"`
}

func (c *AttrConstraint) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Equals = node.Value
		return nil
	}
	type plain AttrConstraint
	return node.Decode((*plain)(c))
}

func (c *AttrConstraint) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err == nil {
		c.Equals = value
		return nil
	}
	type plain AttrConstraint
	return json.Unmarshal(data, (*plain)(c))
}

// TokenConstraint maps a token attribute (lower, text, lemma, dep, tag) to its constraint.
// An empty constraint matches any token.
type TokenConstraint map[string]AttrConstraint

func (tc TokenConstraint) attributeNames() []string {
	names := make([]string, 0, len(tc))
	for name := range tc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (tc TokenConstraint) String() string {
	parts := make([]string, 0, len(tc))
	for _, name := range tc.attributeNames() {
		c := tc[name]
		switch {
		case len(c.In) > 0:
			parts = append(parts, fmt.Sprintf("%s in %v", name, c.In))
		case len(c.NotIn) > 0:
			parts = append(parts, fmt.Sprintf("%s not in %v", name, c.NotIn))
		default:
			parts = append(parts, fmt.Sprintf("%s=%s", name, c.Equals))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (tc TokenConstraint) compile(vocabularies Vocabularies) (fsm.Condition, error) {
	if len(tc) == 0 {
		return fsm.AnyCondition, nil
	}
	conditions := make([]fsm.Condition, 0, len(tc))
	for _, name := range tc.attributeNames() {
		attr, err := fsm.LookupAttribute(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
		}
		c := tc[name]
		set := 0
		for _, given := range []bool{c.Equals != "", len(c.In) > 0, len(c.NotIn) > 0} {
			if given {
				set++
			}
		}
		switch {
		case set > 1:
			return nil, fmt.Errorf("attribute %s needs exactly one of equals, in, not_in", name)
		case len(c.In) > 0:
			values, err := vocabularies.expand(c.In)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, fsm.NewWordSetCondition(attr, mapset.NewSet(values...)))
		case len(c.NotIn) > 0:
			values, err := vocabularies.expand(c.NotIn)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, fsm.NewNegateCondition(fsm.NewWordSetCondition(attr, mapset.NewSet(values...))))
		case c.Equals != "":
			conditions = append(conditions, fsm.NewValueCondition(attr, c.Equals))
		default:
			return nil, fmt.Errorf("%w: attribute %s has no value", ErrEmptyTrigger, name)
		}
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return fsm.NewCombineCondition(conditions...), nil
}

func (vocabularies Vocabularies) expand(values []string) ([]string, error) {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !strings.HasPrefix(v, VocabularyPrefix) {
			result = append(result, v)
			continue
		}
		name := strings.TrimPrefix(v, VocabularyPrefix)
		words, ok := vocabularies[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVocabulary, name)
		}
		result = append(result, words...)
	}
	return result, nil
}
