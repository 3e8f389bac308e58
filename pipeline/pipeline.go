package pipeline

import (
	"text2phenotype.com/psyctx/logger"
	"text2phenotype.com/psyctx/parse"
	"text2phenotype.com/psyctx/types"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNoDependencies = errors.New("relation feature needs a provider with dependency parses")

// Pipeline answers a request with one JSON document holding the results of every configuration.
type Pipeline func(request Request) <-chan string

type Result struct {
	ConfigName string
	Data       interface{}
}

type Response struct {
	DocID   string   `json:"doc_id"`
	Labels  []string `json:"labels"`
	Records []Record `json:"records"`
}

// New builds an engine per configuration. Lexicon errors are returned here, never per request.
func New(configs []types.Configuration, provider parse.Provider) (Pipeline, error) {
	psyLogger := logger.NewLogger("Outcome context pipeline")
	errLogger := psyLogger.With().Caller().Logger()

	engines := make([]*Engine, 0, len(configs))
	for _, cfg := range configs {
		engine, err := NewEngine(cfg)
		if err != nil {
			errLogger.Err(err).
				Interface("configuration", cfg).
				Msg("Failed to create context engine")
			return nil, err
		}
		if cfg.CheckFeature(types.RelationFeature) && !parse.HasDependencies(provider) {
			return nil, fmt.Errorf("configuration %s: %w", cfg.Name, ErrNoDependencies)
		}
		engines = append(engines, engine)
	}
	if len(engines) == 0 {
		return nil, fmt.Errorf("%w: no %s configuration", types.ErrWrongPipelineType, types.OutcomeContextPipeline)
	}
	psyLogger.Info().Int("configurations", len(engines)).Msg("Created outcome context pipeline")

	return func(request Request) <-chan string {
		responseChan := make(chan string, 1)
		pplnLog := psyLogger.With().Str("tid", request.Tid).Logger()

		go func() {
			defer close(responseChan)
			pplnLog.Info().Msg("Started outcome context pipeline")

			rows, err := ReadRows(bytes.NewBufferString(request.Text))
			if err != nil {
				pplnLog.Error().Err(err).Msg("Failed to read rows")
				return
			}

			resultChannel := make(chan Result, len(engines))
			for _, engine := range engines {
				go func(engine *Engine) {
					resultChannel <- Result{
						ConfigName: engine.Config.Name,
						Data: Response{
							DocID:   request.Tid,
							Labels:  engine.Labels(),
							Records: engine.Batch(rows, provider),
						},
					}
				}(engine)
			}

			response := make(map[string]interface{}, len(engines))
			for range engines {
				res := <-resultChannel
				pplnLog.Info().
					Str("config_name", res.ConfigName).
					Msg("Finished pipeline for configuration")
				response[res.ConfigName] = res.Data
			}

			buf, err := json.Marshal(response)
			if err != nil {
				pplnLog.Error().Err(err).Msg("Failed to marshall response")
				return
			}
			pplnLog.Info().Int("rows", len(rows)).Msg("Finished outcome context pipeline")
			responseChan <- string(buf)
		}()

		return responseChan
	}, nil
}
