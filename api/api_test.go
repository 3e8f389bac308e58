package api

import (
	"text2phenotype.com/psyctx/pipeline"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoPipeline(calls *[]pipeline.Request) pipeline.Pipeline {
	return func(request pipeline.Request) <-chan string {
		*calls = append(*calls, request)
		ch := make(chan string, 1)
		ch <- `{"tid":"` + request.Tid + `"}`
		close(ch)
		return ch
	}
}

func TestProcessData(t *testing.T) {
	var calls []pipeline.Request
	handler := NewHandler(echoPipeline(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/?tid=doc-7", strings.NewReader(`{"id":"1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"tid":"doc-7"}`, rec.Body.String())
	require.Equal(t, []pipeline.Request{{Tid: "doc-7", Text: `{"id":"1"}`}}, calls)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x")))
	require.Equal(t, defaultTid, calls[1].Tid)
}

func TestProcessDataRejects(t *testing.T) {
	var calls []pipeline.Request
	handler := NewHandler(echoPipeline(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, calls)
}

func TestClosedPipeline(t *testing.T) {
	closed := func(pipeline.Request) <-chan string {
		ch := make(chan string)
		close(ch)
		return ch
	}
	rec := httptest.NewRecorder()
	NewHandler(closed).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	var calls []pipeline.Request
	rec := httptest.NewRecorder()
	NewHandler(echoPipeline(&calls)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
