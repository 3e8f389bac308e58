package pipeline

import (
	"text2phenotype.com/psyctx/candidates"
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is one preprocessed sentence with the phrases detected upstream.
type Row struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	candidates.Detected

	err error
}

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Record is the flat projection of one annotated sentence. Every comma joined field is
// aligned with the entity list of the sentence.
type Record struct {
	ID          string            `json:"id"`
	Rules       string            `json:"rules"`
	Texts       string            `json:"texts"`
	StartTokens string            `json:"start_tokens"`
	Contexts    map[string]string `json:"contexts"`
	Related     *bool             `json:"related,omitempty"`
	Status      Status            `json:"status"`
	Error       string            `json:"error,omitempty"`
}

func (engine *Engine) Project(id string, ann Annotation) Record {
	n := len(ann.Entities)
	rules := make([]string, n)
	texts := make([]string, n)
	starts := make([]string, n)
	for i, entity := range ann.Entities {
		rules[i] = string(entity.Rule)
		texts[i] = entity.Text
		starts[i] = strconv.Itoa(entity.Start)
	}

	labels := engine.Labels()
	contexts := make(map[string]string, len(labels))
	for d, name := range labels {
		values := make([]string, n)
		for i, entity := range ann.Entities {
			values[i] = string(entity.Context[d])
		}
		contexts[name] = strings.Join(values, ",")
	}

	return Record{
		ID:          id,
		Rules:       strings.Join(rules, ","),
		Texts:       strings.Join(texts, ","),
		StartTokens: strings.Join(starts, ","),
		Contexts:    contexts,
		Related:     ann.Related,
		Status:      StatusOK,
	}
}

func failedRecord(id string, err error) Record {
	return Record{
		ID:       id,
		Contexts: map[string]string{},
		Status:   StatusFailed,
		Error:    err.Error(),
	}
}

// ReadRows reads JSON lines rows. A malformed line does not stop reading, it becomes a
// row that fails in Batch.
func ReadRows(r io.Reader) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			row = Row{err: fmt.Errorf("line %d: malformed row: %w", line, err)}
		}
		if row.ID == "" {
			row.ID = strconv.Itoa(line)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteTSV writes records as a tab separated table with one context column per dimension.
func WriteTSV(w io.Writer, labels []string, records []Record) error {
	out := csv.NewWriter(w)
	out.Comma = '\t'

	header := []string{"id", "rules", "texts", "start_token"}
	for _, name := range labels {
		header = append(header, "context_"+name)
	}
	header = append(header, "related", "status", "error")
	if err := out.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{rec.ID, rec.Rules, rec.Texts, rec.StartTokens}
		for _, name := range labels {
			row = append(row, rec.Contexts[name])
		}
		related := ""
		if rec.Related != nil {
			related = strconv.FormatBool(*rec.Related)
		}
		row = append(row, related, string(rec.Status), rec.Error)
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
