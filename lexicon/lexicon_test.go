package lexicon

import (
	"text2phenotype.com/psyctx/parse"
	"text2phenotype.com/psyctx/types"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sentence(text string) *types.Sentence {
	return parse.Flat(text, strings.Fields(text))
}

func TestBuiltin(t *testing.T) {
	lex, err := Builtin()
	require.NoError(t, err)
	require.Equal(t, []string{"experiencer", "negation", "patient_experience", "plausibility", "temporality"}, lex.Names())

	dims, err := lex.Select(types.DefaultDimensionOrder())
	require.NoError(t, err)
	for _, dim := range dims {
		require.False(t, dim.IsEmpty(), dim.Name)
		require.True(t, dim.HasLabel(dim.Default), dim.Name)
	}

	_, err = lex.Select([]string{"negation", "mood"})
	require.ErrorIs(t, err, ErrUnknownDimension)
}

func TestParseDimension(t *testing.T) {
	dim, err := ParseDimension([]byte(`
dimension: experiencer
labels: [PATIENT, OTHER]
default: PATIENT
vocabularies:
  persons: [vader, moeder]
triggers:
  termination:
    phrases: ["maar"]
  preceding:
    phrases: ["familie van"]
    patterns:
      - [{lower: {in: ["@persons"]}}, {lower: "zijn"}]
      - [{lower: "bij"}, {}, {lower: {not_in: ["@persons"]}}]
    regexes: ['\bzus\b']
  following:
    label: PATIENT
    phrases: ["zelf"]
`))
	require.NoError(t, err)
	require.Equal(t, types.Label("OTHER"), dim.Activated())
	require.Equal(t, PriorityNearest, dim.Priority)
	require.Equal(t, 6, dim.Len())

	preceding := dim.Triggers(types.CategoryPreceding)
	require.Len(t, preceding, 4)
	kinds := make([]string, len(preceding))
	for i, trigger := range preceding {
		kinds[i] = trigger.Matcher.Kind()
		require.Equal(t, types.Label("OTHER"), trigger.Label)
	}
	require.Equal(t, []string{"phrase", "pattern", "pattern", "regex"}, kinds)
	// categories are declared in canonical order, regardless of the file order
	require.Equal(t, 0, preceding[0].Order)
	require.Equal(t, 4, dim.Triggers(types.CategoryFollowing)[0].Order)
	require.Equal(t, 5, dim.Triggers(types.CategoryTermination)[0].Order)
	require.Equal(t, types.Label("PATIENT"), dim.Triggers(types.CategoryFollowing)[0].Label)

	sent := sentence("vader zijn familie van bij de buren")
	require.Equal(t, []types.TokenSpan{{Start: 2, End: 4}}, preceding[0].Matcher.FindAll(sent))
	require.Equal(t, []types.TokenSpan{{Start: 0, End: 2}}, preceding[1].Matcher.FindAll(sent))
	require.Equal(t, []types.TokenSpan{{Start: 4, End: 7}}, preceding[2].Matcher.FindAll(sent))
	require.Empty(t, preceding[2].Matcher.FindAll(sentence("bij de vader")))
	require.Equal(t, []types.TokenSpan{{Start: 1, End: 2}}, preceding[3].Matcher.FindAll(sentence("haar zus belde")))
}

func TestParseDimensionErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		err  error
	}{
		{
			name: "unknown category",
			yaml: "dimension: d\nlabels: [A, B]\ndefault: A\ntriggers:\n  before:\n    phrases: [x]\n",
			err:  types.ErrUnknownCategory,
		},
		{
			name: "unknown attribute",
			yaml: "dimension: d\nlabels: [A, B]\ndefault: A\ntriggers:\n  preceding:\n    patterns:\n      - [{shape: xxx}]\n",
			err:  ErrUnknownAttribute,
		},
		{
			name: "unknown vocabulary",
			yaml: "dimension: d\nlabels: [A, B]\ndefault: A\ntriggers:\n  preceding:\n    patterns:\n      - [{lower: {in: ['@nope']}}]\n",
			err:  ErrUnknownVocabulary,
		},
		{
			name: "unknown label",
			yaml: "dimension: d\nlabels: [A, B]\ndefault: A\ntriggers:\n  preceding:\n    label: C\n    phrases: [x]\n",
			err:  ErrUnknownLabel,
		},
		{
			name: "bad default",
			yaml: "dimension: d\nlabels: [A, B]\ndefault: C\n",
			err:  ErrUnknownLabel,
		},
		{
			name: "one label",
			yaml: "dimension: d\nlabels: [A]\ndefault: A\n",
			err:  ErrBadLabels,
		},
		{
			name: "unknown priority",
			yaml: "dimension: d\nlabels: [A, B]\ndefault: A\npriority: loudest\n",
			err:  ErrUnknownPriority,
		},
		{
			name: "empty phrase",
			yaml: "dimension: d\nlabels: [A, B]\ndefault: A\ntriggers:\n  preceding:\n    phrases: ['  ']\n",
			err:  ErrEmptyTrigger,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseDimension([]byte(c.yaml))
			require.ErrorIs(t, err, c.err)
		})
	}

	t.Run("bad regex", func(t *testing.T) {
		_, err := ParseDimension([]byte("dimension: d\nlabels: [A, B]\ndefault: A\ntriggers:\n  preceding:\n    regexes: ['(unclosed']\n"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "bad regex")
	})
	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseDimension([]byte("dimension: d\nlabels: [A, B]\ndefault: A\ncolour: red\n"))
		require.Error(t, err)
	})
	t.Run("both equals and in", func(t *testing.T) {
		_, err := ParseDimension([]byte("dimension: d\nlabels: [A, B]\ndefault: A\ntriggers:\n  preceding:\n    patterns:\n      - [{lower: {equals: x, in: [y]}}]\n"))
		require.Error(t, err)
	})
}

func TestReadJSONL(t *testing.T) {
	lex := New()
	dim, err := NewDimension("negation", []types.Label{"AFFIRMED", "NEGATED"}, "AFFIRMED", PriorityDeclaration)
	require.NoError(t, err)
	require.NoError(t, lex.Put(dim))
	require.ErrorIs(t, lex.Put(dim), ErrDuplicateDimension)

	records := strings.Join([]string{
		`{"dimension": "negation", "label": "NEGATED", "kind": "phrase", "category": "preceding", "pattern": "geen"}`,
		``,
		`{"dimension": "negation", "kind": "pattern", "category": "following", "pattern": [{"LOWER": {"IN": ["weg", "over"]}}]}`,
		`{"dimension": "negation", "kind": "regex", "category": "termination", "pattern": "\\bmaar\\b"}`,
		`{"dimension": "negation", "kind": "pattern", "category": "pseudo", "pattern": [{"lower": "niet"}, {"lower": "alleen"}]}`,
	}, "\n")
	require.NoError(t, ReadJSONL(strings.NewReader(records), lex))
	require.Equal(t, 4, dim.Len())

	following := dim.Triggers(types.CategoryFollowing)
	require.Len(t, following, 1)
	require.Equal(t, types.Label("NEGATED"), following[0].Label)
	require.Equal(t, []types.TokenSpan{{Start: 1, End: 2}}, following[0].Matcher.FindAll(sentence("pijn weg")))

	bad := []string{
		`{"dimension": "mood", "kind": "phrase", "category": "preceding", "pattern": "x"}`,
		`{"dimension": "negation", "kind": "phrase", "category": "middle", "pattern": "x"}`,
		`{"dimension": "negation", "kind": "lemma", "category": "preceding", "pattern": "x"}`,
		`{"dimension": "negation", "kind": "phrase", "category": "preceding", "pattern": ["x"]}`,
		`not json`,
	}
	for _, line := range bad {
		require.Error(t, ReadJSONL(strings.NewReader(line), lex), line)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "negation.yaml"), []byte(
		"dimension: negation\nlabels: [AFFIRMED, NEGATED]\ndefault: AFFIRMED\ntriggers:\n  preceding:\n    phrases: [geen]\n",
	), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.jsonl"), []byte(
		`{"dimension": "negation", "kind": "phrase", "category": "preceding", "pattern": "niet"}`+"\n",
	), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	lex, err := LoadDir(dir)
	require.NoError(t, err)
	dim, ok := lex.Get("negation")
	require.True(t, ok)
	require.Equal(t, 2, dim.Len())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "copy.yaml"), []byte(
		"dimension: negation\nlabels: [AFFIRMED, NEGATED]\ndefault: AFFIRMED\n",
	), 0o644))
	_, err = LoadDir(dir)
	require.ErrorIs(t, err, ErrDuplicateDimension)
}
