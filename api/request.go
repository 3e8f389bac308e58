package api

import (
	"text2phenotype.com/psyctx/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"io"
	"net/http"
)

const defaultTid = "api"

type Request struct {
	Pipeline pipeline.Pipeline
}

// NewHandler serves the pipeline on "/" and prometheus metrics on "/metrics".
func NewHandler(ppln pipeline.Pipeline) http.Handler {
	req := &Request{Pipeline: ppln}
	mux := http.NewServeMux()
	mux.HandleFunc("/", req.ProcessData)
	mux.Handle("/metrics", promhttp.Handler())
	return withAccessLog(mux)
}

// ProcessData runs the JSON lines rows of the request body through every configuration.
// The "tid" query parameter becomes the doc_id of the response.
func (req *Request) ProcessData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	logger := makeRequestLogger(r)

	if r.Method != http.MethodPost {
		logger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	msg, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	if len(msg) == 0 {
		logger.Error().Int("status", http.StatusBadRequest).Msg("Request body is empty")
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	request := pipeline.Request{
		Tid:  r.URL.Query().Get("tid"),
		Text: string(msg),
	}
	if request.Tid == "" {
		request.Tid = defaultTid
	}
	logger.Info().Str("tid", request.Tid).Msg("Starting pipeline for request from API")
	resp, ok := <-req.Pipeline(request)
	if !ok {
		logger.Error().Int("status", http.StatusInternalServerError).Msg("Pipeline returned no response")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(resp))
	logger.Info().Int("status", http.StatusOK).Msg("Finished processing request")
}
