package candidates

import (
	"text2phenotype.com/psyctx/parse"
	"text2phenotype.com/psyctx/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestGenerateMultiplicity(t *testing.T) {
	sent := parse.Flat("pijn, pijn", []string{"pijn", ",", "pijn"})

	entities := Generate(sent, Detected{Phrases: "pijn"})

	expected := []types.Entity{
		{TokenSpan: types.TokenSpan{Start: 0, End: 1}, Rule: types.RulePhrase, Text: "pijn"},
		{TokenSpan: types.TokenSpan{Start: 2, End: 3}, Rule: types.RulePhrase, Text: "pijn"},
	}
	if diff := cmp.Diff(expected, entities); diff != "" {
		t.Errorf("entities mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateOrder(t *testing.T) {
	sent := parse.Flat(
		"Somberheid en angstklachten namen af",
		[]string{"Somberheid", "en", "angstklachten", "namen", "af"},
	)

	entities := Generate(sent, Detected{
		Phrases:         "angst,somber",
		PhrasesCompound: "klachten",
		Changes:         "namen",
	})

	var got []string
	for _, entity := range entities {
		got = append(got, string(entity.Rule)+":"+entity.Text+":"+entity.TokenSpan.String())
	}
	require.Equal(t, []string{
		"phrase:angstklachten:[2:3)",
		"phrase:Somberheid:[0:1)",
		"phrase_compound:angstklachten:[2:3)",
		"change:namen:[3:4)",
	}, got)
	for _, entity := range entities {
		require.Nil(t, entity.Context)
	}
}

func TestGenerateEmpty(t *testing.T) {
	sent := parse.Flat("geen klachten", []string{"geen", "klachten"})

	require.Empty(t, Generate(sent, Detected{}))
	require.True(t, Detected{}.IsEmpty())
	// empty list items never match every token
	require.Empty(t, Generate(sent, Detected{Phrases: ",,", Changes: ","}))
	require.Empty(t, Generate(sent, Detected{Phrases: "pijn"}))
	require.Empty(t, GenerateFromLists(sent, nil, nil, []string{""}))
}
