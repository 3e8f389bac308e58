package maps

import (
	"text2phenotype.com/psyctx/utils"
	"encoding/json"
	"fmt"
)

// PartialDocument is a struct view over a JSON document that is shared with other services.
// Keys the struct does not know about are kept and written back untouched.
type PartialDocument interface {
	getRaw() map[string]json.RawMessage
	setRaw(map[string]json.RawMessage)
}

type BaseDocument struct {
	raw map[string]json.RawMessage
}

func (doc *BaseDocument) getRaw() map[string]json.RawMessage {
	return doc.raw
}

func (doc *BaseDocument) setRaw(raw map[string]json.RawMessage) {
	doc.raw = raw
}

func Decode(data []byte, doc PartialDocument) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("document is not a JSON object: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return err
	}
	doc.setRaw(raw)
	return nil
}

// Encode merges the struct fields of doc over the raw document it was decoded from.
func Encode(doc PartialDocument) ([]byte, error) {
	fields, err := structFields(doc)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(doc.getRaw())+len(fields))
	for k, v := range doc.getRaw() {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func ApplyUpdates[T PartialDocument](doc T, updateFunc func(T)) (err error) {
	if updateFunc == nil {
		return nil
	}
	defer utils.RecoverWithError(&err)
	updateFunc(doc)
	return nil
}

// CopyValues fills to from the current state of from. The raw map of to only holds the keys
// of its own struct, so saving it never leaks foreign keys.
func CopyValues(from PartialDocument, to PartialDocument) error {
	data, err := Encode(from)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, to); err != nil {
		return err
	}
	fields, err := structFields(to)
	if err != nil {
		return err
	}
	to.setRaw(fields)
	return nil
}

func structFields(doc PartialDocument) (map[string]json.RawMessage, error) {
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err = json.Unmarshal(buf, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
