package pipeline

import (
	"text2phenotype.com/psyctx/metrics"
	"text2phenotype.com/psyctx/parse"
	"text2phenotype.com/psyctx/relation"
	"text2phenotype.com/psyctx/utils"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const progressEvery = 1000

// Batch annotates rows in parallel. The records keep the order of the rows and a failing
// row never stops the others.
func (engine *Engine) Batch(rows []Row, provider parse.Provider) []Record {
	records := make([]Record, len(rows))
	workers := engine.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	var processed int64
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				records[i] = engine.processRow(rows[i], provider)
				if n := atomic.AddInt64(&processed, 1); n%progressEvery == 0 {
					engine.ctxLogger.Info().Msgf("Processed %d out of %d sentences", n, len(rows))
				}
			}
		}()
	}
	for i := range rows {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return records
}

func (engine *Engine) processRow(row Row, provider parse.Provider) (rec Record) {
	start := time.Now()
	defer func() {
		metrics.SentenceDuration.WithLabelValues(engine.Config.Name).Observe(time.Since(start).Seconds())
		metrics.SentencesProcessed.WithLabelValues(engine.Config.Name, string(rec.Status)).Inc()
	}()

	rec, err := engine.annotateRow(row, provider)
	if err != nil {
		engine.ctxLogger.Warn().Err(err).Str("row_id", row.ID).Msg("Failed to annotate sentence")
		return failedRecord(row.ID, err)
	}
	return rec
}

func (engine *Engine) annotateRow(row Row, provider parse.Provider) (rec Record, err error) {
	defer utils.RecoverWithError(&err)
	if row.err != nil {
		return rec, row.err
	}
	sent, err := provider.Parse(Normalize(row.Text))
	if err != nil {
		return rec, err
	}
	ann, err := engine.Annotate(sent, row.Detected)
	if err != nil {
		return rec, err
	}
	return engine.Project(row.ID, ann), nil
}

// ValidateRelations checks, per record, whether the phrase and change entities of the
// sentence are related in its parse. Failed records and rows that can not be parsed give false.
func ValidateRelations(records []Record, rows []Row, provider parse.Provider) []bool {
	result := make([]bool, len(records))
	for i, rec := range records {
		if rec.Status != StatusOK || i >= len(rows) {
			continue
		}
		phrase, change, err := relation.Positions(rec.Rules, rec.StartTokens)
		if err != nil || len(phrase) == 0 || len(change) == 0 {
			continue
		}
		sent, err := provider.Parse(Normalize(rows[i].Text))
		if err != nil {
			continue
		}
		result[i] = relation.IsRelated(sent, phrase, change)
	}
	return result
}
