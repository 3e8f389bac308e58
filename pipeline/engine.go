package pipeline

import (
	"text2phenotype.com/psyctx/candidates"
	"text2phenotype.com/psyctx/lexicon"
	"text2phenotype.com/psyctx/logger"
	"text2phenotype.com/psyctx/matcher"
	"text2phenotype.com/psyctx/metrics"
	"text2phenotype.com/psyctx/relation"
	"text2phenotype.com/psyctx/types"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
)

var ErrNilSentence = errors.New("no sentence to annotate")

// Engine annotates sentences for one configuration. It is immutable after NewEngine
// and may be shared between goroutines.
type Engine struct {
	Config    types.Configuration
	matcher   *matcher.Matcher
	ctxLogger zerolog.Logger
}

type Annotation struct {
	Sentence *types.Sentence
	Entities []types.Entity
	// Related is nil unless the relation feature is enabled.
	Related  *bool
	Warnings []matcher.Warning
}

// NewEngine loads the lexicon of the configuration, the embedded one when no directory is set.
func NewEngine(cfg types.Configuration) (*Engine, error) {
	var lex *lexicon.Lexicon
	var err error
	if cfg.LexiconDir == "" {
		lex, err = lexicon.Builtin()
	} else {
		lex, err = lexicon.LoadDir(cfg.LexiconDir)
	}
	if err != nil {
		return nil, fmt.Errorf("configuration %s: failed to load lexicon: %w", cfg.Name, err)
	}
	return NewEngineWithLexicon(cfg, lex)
}

func NewEngineWithLexicon(cfg types.Configuration, lex *lexicon.Lexicon) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dims, err := lex.Select(cfg.DimensionOrder())
	if err != nil {
		return nil, fmt.Errorf("configuration %s: %w", cfg.Name, err)
	}
	ctxLogger := logger.NewLogger("Context engine").With().Str("config_name", cfg.Name).Logger()
	for _, dim := range dims {
		ctxLogger.Debug().
			Str("dimension", dim.Name).
			Int("triggers", dim.Len()).
			Str("priority", string(dim.Priority)).
			Msg("Using dimension")
	}
	return &Engine{
		Config:    cfg,
		matcher:   matcher.New(dims, ctxLogger),
		ctxLogger: ctxLogger,
	}, nil
}

// Labels returns the dimension names in the order of the context vectors.
func (engine *Engine) Labels() []string {
	return engine.matcher.Labels()
}

func (engine *Engine) Annotate(sent *types.Sentence, detected candidates.Detected) (Annotation, error) {
	if sent == nil {
		return Annotation{}, ErrNilSentence
	}
	ann := Annotation{
		Sentence: sent,
		Entities: candidates.Generate(sent, detected),
	}
	ann.Warnings = engine.matcher.Match(sent, ann.Entities)
	if len(ann.Warnings) > 0 {
		metrics.OutOfRangeEntities.WithLabelValues(engine.Config.Name).Add(float64(len(ann.Warnings)))
	}
	for _, entity := range ann.Entities {
		metrics.EntitiesAnnotated.WithLabelValues(engine.Config.Name, string(entity.Rule)).Inc()
	}

	if engine.Config.CheckFeature(types.RelationFeature) {
		phrase, change := relation.Entities(ann.Entities)
		related := len(phrase) > 0 && len(change) > 0 && relation.IsRelated(sent, phrase, change)
		ann.Related = &related
	}
	return ann, nil
}
