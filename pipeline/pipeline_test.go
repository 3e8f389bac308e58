package pipeline

import (
	"text2phenotype.com/psyctx/parse"
	"text2phenotype.com/psyctx/types"
	"bytes"
	"fmt"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testExperiencer = `
dimension: experiencer
labels: [PATIENT, OTHER]
default: PATIENT
triggers:
  preceding:
    phrases: ["vader"]
`

const testNegation = `
dimension: negation
labels: [AFFIRMED, NEGATED]
default: AFFIRMED
triggers:
  preceding:
    phrases: ["geen"]
  termination:
    phrases: ["maar"]
`

func lexiconDir(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "experiencer.yaml"), []byte(testExperiencer), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "negation.yaml"), []byte(testNegation), 0o644))
	return dir
}

func testConfig(t *testing.T, features ...string) types.Configuration {
	return types.Configuration{
		Name:       "ctx",
		Pipeline:   types.OutcomeContextPipeline,
		Dimensions: []string{"experiencer", "negation"},
		LexiconDir: lexiconDir(t),
		Features:   features,
		Workers:    3,
	}
}

var flatProvider = parse.ProviderFunc(func(text string) (*types.Sentence, error) {
	if strings.Contains(text, "boem") {
		panic("parser exploded")
	}
	if strings.Contains(text, "onparseerbaar") {
		return nil, fmt.Errorf("%w: %q", parse.ErrNotParsed, text)
	}
	return parse.Flat(text, strings.Fields(text)), nil
})

func stressProvider(t *testing.T) parse.Provider {
	store := parse.NewStore()
	store.Add(parse.Doc{
		Text: "de klachten van stress namen toe",
		Tokens: []parse.DocToken{
			{Text: "de", Dep: "det", Head: 1},
			{Text: "klachten", Dep: "nsubj", Head: 4},
			{Text: "van", Dep: "case", Head: 3},
			{Text: "stress", Dep: "nmod", Head: 1},
			{Text: "namen", Dep: "ROOT", Head: 4},
			{Text: "toe", Dep: "compound:prt", Head: 4},
		},
	})
	return parse.Chain(store, flatProvider)
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "vader had geen pijn", Normalize("  Vader\thad \n geen  PIJN "))
	require.Equal(t, "", Normalize(" \t"))
}

func TestNewEngineErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dimensions = []string{"experiencer", "temporality"}
	_, err := NewEngine(cfg)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Pipeline = "default_clinical"
	_, err = NewEngine(cfg)
	require.ErrorIs(t, err, types.ErrWrongPipelineType)

	cfg = testConfig(t)
	cfg.LexiconDir = filepath.Join(cfg.LexiconDir, "missing")
	_, err = NewEngine(cfg)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.LexiconDir = ""
	cfg.Dimensions = nil
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	require.Equal(t, types.DefaultDimensionOrder(), engine.Labels())
}

func TestAnnotate(t *testing.T) {
	engine, err := NewEngine(testConfig(t))
	require.NoError(t, err)

	sent := parse.Flat("vader had geen pijn meer", strings.Fields("vader had geen pijn meer"))
	ann, err := engine.Annotate(sent, candidatesFor("pijn", "", ""))
	require.NoError(t, err)
	require.Len(t, ann.Entities, 1)
	require.Equal(t, types.ContextVector{"OTHER", "NEGATED"}, ann.Entities[0].Context)
	require.Nil(t, ann.Related)

	_, err = engine.Annotate(nil, candidatesFor("pijn", "", ""))
	require.ErrorIs(t, err, ErrNilSentence)
}

func TestBatch(t *testing.T) {
	engine, err := NewEngine(testConfig(t))
	require.NoError(t, err)

	rows := []Row{
		{ID: "a", Text: "Vader had geen pijn meer", Detected: candidatesFor("pijn", "", "")},
		{ID: "b", Text: "geen koorts maar wel pijn", Detected: candidatesFor("koorts,pijn", "", "")},
		{ID: "c", Text: "boem", Detected: candidatesFor("boem", "", "")},
		{ID: "d", Text: "geen klachten"},
		{ID: "e", Text: "onparseerbaar"},
	}
	records := engine.Batch(rows, flatProvider)

	require.Len(t, records, len(rows))
	expected := []Record{
		{
			ID: "a", Rules: "phrase", Texts: "pijn", StartTokens: "3",
			Contexts: map[string]string{"experiencer": "OTHER", "negation": "NEGATED"},
			Status:   StatusOK,
		},
		{
			ID: "b", Rules: "phrase,phrase", Texts: "koorts,pijn", StartTokens: "1,4",
			Contexts: map[string]string{"experiencer": "PATIENT,PATIENT", "negation": "NEGATED,AFFIRMED"},
			Status:   StatusOK,
		},
		{
			ID: "c", Contexts: map[string]string{}, Status: StatusFailed,
			Error: "got panic: parser exploded",
		},
		{
			ID: "d", Contexts: map[string]string{"experiencer": "", "negation": ""}, Status: StatusOK,
		},
	}
	if diff := cmp.Diff(expected, records[:4]); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, StatusFailed, records[4].Status)
	require.Contains(t, records[4].Error, "no parse available")

	require.Empty(t, engine.Batch(nil, flatProvider))
}

func TestBatchKeepsOrder(t *testing.T) {
	engine, err := NewEngine(testConfig(t))
	require.NoError(t, err)

	rows := make([]Row, 2500)
	for i := range rows {
		rows[i] = Row{ID: fmt.Sprint(i), Text: strings.Repeat("pijn ", i%5+1), Detected: candidatesFor("pijn", "", "")}
	}
	records := engine.Batch(rows, flatProvider)
	for i, rec := range records {
		require.Equal(t, fmt.Sprint(i), rec.ID)
		require.Equal(t, i%5+1, len(strings.Split(rec.Rules, ",")))
	}
}

func TestRelationFeature(t *testing.T) {
	engine, err := NewEngine(testConfig(t, types.RelationFeature))
	require.NoError(t, err)
	provider := stressProvider(t)

	rows := []Row{
		{ID: "a", Text: "De klachten van stress namen toe", Detected: candidatesFor("klachten", "", "namen")},
		{ID: "b", Text: "De klachten van stress namen toe", Detected: candidatesFor("klachten", "", "")},
		{ID: "c", Text: "angst bleef ; slaap verbeterde", Detected: candidatesFor("angst", "", "verbeterde")},
	}
	records := engine.Batch(rows, provider)

	require.NotNil(t, records[0].Related)
	require.True(t, *records[0].Related)
	require.NotNil(t, records[1].Related)
	require.False(t, *records[1].Related)
	require.NotNil(t, records[2].Related)
	require.False(t, *records[2].Related)

	require.Equal(t, []bool{true, false, false}, ValidateRelations(records, rows, provider))
}

func TestValidateRelationsSkipsFailures(t *testing.T) {
	rows := []Row{{ID: "a", Text: "boem"}, {ID: "b", Text: "pijn nam af"}}
	records := []Record{
		{ID: "a", Status: StatusFailed},
		{ID: "b", Rules: "phrase,change", StartTokens: "0,x", Status: StatusOK},
		{ID: "c", Rules: "phrase,change", StartTokens: "0,1", Status: StatusOK},
	}
	require.Equal(t, []bool{false, false, false}, ValidateRelations(records, rows, flatProvider))
}

func TestReadRows(t *testing.T) {
	input := strings.Join([]string{
		`{"id": "x1", "text": "geen pijn", "phrases": "pijn"}`,
		``,
		`{"text": "pijn nam af", "phrases": "pijn", "changes": "af"}`,
		`{`,
	}, "\n")
	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "x1", rows[0].ID)
	require.Equal(t, "pijn", rows[0].Phrases)
	require.Equal(t, "3", rows[1].ID)
	require.Equal(t, "af", rows[1].Changes)
	require.Equal(t, "4", rows[2].ID)
	require.Error(t, rows[2].err)
}

func TestWriteTSV(t *testing.T) {
	related := true
	records := []Record{
		{
			ID: "a", Rules: "phrase,change", Texts: "klachten,namen", StartTokens: "1,4",
			Contexts: map[string]string{"experiencer": "PATIENT,PATIENT", "negation": "AFFIRMED,AFFIRMED"},
			Related:  &related, Status: StatusOK,
		},
		{ID: "b", Contexts: map[string]string{}, Status: StatusFailed, Error: "got panic: x"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, []string{"experiencer", "negation"}, records))

	expected := "id\trules\ttexts\tstart_token\tcontext_experiencer\tcontext_negation\trelated\tstatus\terror\n" +
		"a\tphrase,change\tklachten,namen\t1,4\tPATIENT,PATIENT\tAFFIRMED,AFFIRMED\ttrue\tok\t\n" +
		"b\t\t\t\t\t\t\tfailed\tgot panic: x\n"
	require.Equal(t, expected, buf.String())
}

func TestPipeline(t *testing.T) {
	ppln, err := New([]types.Configuration{testConfig(t)}, flatProvider)
	require.NoError(t, err)

	request := Request{
		Tid: "t1",
		Text: strings.Join([]string{
			`{"id": "a", "text": "Vader had geen pijn meer", "phrases": "pijn"}`,
			`{"id": "b", "text": "geen klachten"}`,
			`{`,
		}, "\n"),
	}
	res, ok := <-ppln(request)
	require.True(t, ok)

	expected := `{"ctx": {
		"doc_id": "t1",
		"labels": ["experiencer", "negation"],
		"records": [
			{"id": "a", "rules": "phrase", "texts": "pijn", "start_tokens": "3",
			 "contexts": {"experiencer": "OTHER", "negation": "NEGATED"}, "status": "ok"},
			{"id": "b", "rules": "", "texts": "", "start_tokens": "",
			 "contexts": {"experiencer": "", "negation": ""}, "status": "ok"},
			{"id": "3", "rules": "", "texts": "", "start_tokens": "", "contexts": {},
			 "status": "failed", "error": "line 3: malformed row: unexpected end of JSON input"}
		]
	}}`
	require.True(t, jsonpatch.Equal([]byte(expected), []byte(res)), res)
}

func TestPipelineWithoutConfigurations(t *testing.T) {
	_, err := New(nil, flatProvider)
	require.ErrorIs(t, err, types.ErrWrongPipelineType)
}

func TestPipelineRelationNeedsDependencies(t *testing.T) {
	cfg := testConfig(t, types.RelationFeature)

	_, err := New([]types.Configuration{cfg}, parse.NewCache(parse.Chain(parse.Tokenizer{}), time.Minute))
	require.ErrorIs(t, err, ErrNoDependencies)

	_, err = New([]types.Configuration{cfg}, parse.NewCache(parse.Chain(parse.NewStore(), parse.Tokenizer{}), time.Minute))
	require.NoError(t, err)

	_, err = New([]types.Configuration{testConfig(t)}, parse.Tokenizer{})
	require.NoError(t, err)
}
