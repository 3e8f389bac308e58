package worker

import (
	"text2phenotype.com/psyctx/pipeline"
	"encoding/json"
	"fmt"
	"path"
	"time"
)

func getResultsFileKey(task *Task) string {
	return path.Join(
		"processed",
		"documents",
		task.chunkTask.DocID,
		"chunks",
		task.redisKey,
		fmt.Sprintf("%s.context_results.json", task.redisKey),
	)
}

const RFC3339Micro = "2006-01-02T15:04:05.000000-07:00"

func getFormattedNow() *string {
	now := time.Now().UTC().Format(RFC3339Micro)
	return &now
}

type summary struct {
	sentences  int
	failedRows int
}

// summarize counts the rows of every configuration in a pipeline response.
func summarize(result string) (summary, error) {
	var response map[string]pipeline.Response
	if err := json.Unmarshal([]byte(result), &response); err != nil {
		return summary{}, fmt.Errorf("pipeline returned malformed response: %w", err)
	}
	var s summary
	for _, res := range response {
		for _, rec := range res.Records {
			s.sentences++
			if rec.Status == pipeline.StatusFailed {
				s.failedRows++
			}
		}
	}
	return s, nil
}
