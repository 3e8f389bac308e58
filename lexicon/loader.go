package lexicon

import (
	"text2phenotype.com/psyctx/logger"
	"text2phenotype.com/psyctx/types"
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed resources/*.yaml
var builtinFS embed.FS

type categoryDef struct {
	Label    string              `yaml:"label"`
	Phrases  []string            `yaml:"phrases"`
	Patterns [][]TokenConstraint `yaml:"patterns"`
	Regexes  []string            `yaml:"regexes"`
}

type dimensionDef struct {
	Dimension    string                 `yaml:"dimension"`
	Labels       []string               `yaml:"labels"`
	Default      string                 `yaml:"default"`
	Priority     string                 `yaml:"priority"`
	Vocabularies Vocabularies           `yaml:"vocabularies"`
	Triggers     map[string]categoryDef `yaml:"triggers"`
}

// ParseDimension reads one dimension from its YAML form. Within a category the
// declaration order is phrases, then patterns, then regexes; categories follow the
// order preceding, following, pseudo, termination.
func ParseDimension(data []byte) (*Dimension, error) {
	var def dimensionDef
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, err
	}

	priority, err := ParsePriority(def.Priority)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Dimension, err)
	}
	labels := make([]types.Label, len(def.Labels))
	for i, l := range def.Labels {
		labels[i] = types.Label(l)
	}
	dim, err := NewDimension(def.Dimension, labels, types.Label(def.Default), priority)
	if err != nil {
		return nil, err
	}

	for name := range def.Triggers {
		if _, err := types.ParseCategory(name); err != nil {
			return nil, fmt.Errorf("%s: %w", dim.Name, err)
		}
	}
	for _, category := range types.Categories() {
		cs, ok := def.Triggers[category.Name()]
		if !ok {
			continue
		}
		if err := addCategory(dim, category, cs, def.Vocabularies); err != nil {
			return nil, err
		}
	}
	return dim, nil
}

func addCategory(dim *Dimension, category types.Category, cs categoryDef, vocabularies Vocabularies) error {
	label := types.Label(cs.Label)
	wrap := func(kind string, i int, err error) error {
		return fmt.Errorf("%s %s %s #%d: %w", dim.Name, category.Name(), kind, i, err)
	}
	for i, text := range cs.Phrases {
		phrase, err := NewPhrase(text)
		if err != nil {
			return wrap("phrase", i, err)
		}
		if err = dim.Add(category, label, phrase); err != nil {
			return wrap("phrase", i, err)
		}
	}
	for i, constraints := range cs.Patterns {
		pattern, err := NewPattern(constraints, vocabularies)
		if err != nil {
			return wrap("pattern", i, err)
		}
		if err = dim.Add(category, label, pattern); err != nil {
			return wrap("pattern", i, err)
		}
	}
	for i, expr := range cs.Regexes {
		re, err := NewRegex(expr)
		if err != nil {
			return wrap("regex", i, err)
		}
		if err = dim.Add(category, label, re); err != nil {
			return wrap("regex", i, err)
		}
	}
	return nil
}

// Record is one trigger in the line delimited JSON form. Pattern holds a phrase or
// regex string, or a list of token constraints for kind "pattern".
type Record struct {
	Dimension string          `json:"dimension"`
	Label     string          `json:"label"`
	Kind      string          `json:"kind"`
	Category  string          `json:"category"`
	Pattern   json.RawMessage `json:"pattern"`
}

// ReadJSONL appends JSON line trigger records to dimensions already present in lex.
func ReadJSONL(r io.Reader, lex *Lexicon) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := addRecord(lex, rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}

func addRecord(lex *Lexicon, rec Record) error {
	dim, ok := lex.Get(rec.Dimension)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDimension, rec.Dimension)
	}
	category, err := types.ParseCategory(rec.Category)
	if err != nil {
		return err
	}
	var matcher Matcher
	switch rec.Kind {
	case "phrase", "regex", "regexp":
		var s string
		if err = json.Unmarshal(rec.Pattern, &s); err != nil {
			return fmt.Errorf("%s pattern must be a string: %w", rec.Kind, err)
		}
		if rec.Kind == "phrase" {
			matcher, err = NewPhrase(s)
		} else {
			matcher, err = NewRegex(s)
		}
	case "pattern":
		var constraints []TokenConstraint
		if err = json.Unmarshal(rec.Pattern, &constraints); err != nil {
			return fmt.Errorf("pattern must be a list of token constraints: %w", err)
		}
		matcher, err = NewPattern(constraints, nil)
	default:
		return fmt.Errorf("unknown trigger kind %q", rec.Kind)
	}
	if err != nil {
		return err
	}
	return dim.Add(category, types.Label(rec.Label), matcher)
}

// Builtin returns the Dutch lexicons shipped with the service.
func Builtin() (*Lexicon, error) {
	sub, err := fs.Sub(builtinFS, "resources")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadDir reads every *.yaml dimension in dir and then every *.jsonl trigger file.
func LoadDir(dir string) (*Lexicon, error) {
	return LoadFS(os.DirFS(dir))
}

func LoadFS(fsys fs.FS) (*Lexicon, error) {
	lexLogger := logger.NewLogger("Lexicon loader")
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var yamlFiles, jsonlFiles []string
	for _, e := range entries {
		switch {
		case e.IsDir():
		case strings.HasSuffix(e.Name(), ".yaml"):
			yamlFiles = append(yamlFiles, e.Name())
		case strings.HasSuffix(e.Name(), ".jsonl"):
			jsonlFiles = append(jsonlFiles, e.Name())
		}
	}
	sort.Strings(yamlFiles)
	sort.Strings(jsonlFiles)

	lex := New()
	for _, name := range yamlFiles {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		dim, err := ParseDimension(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err = lex.Put(dim); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		lexLogger.Debug().Str("file", name).Str("dimension", dim.Name).Int("triggers", dim.Len()).Msg("Loaded dimension")
	}
	for _, name := range jsonlFiles {
		if err := readJSONLFile(fsys, name, lex); err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
	}
	return lex, nil
}

func readJSONLFile(fsys fs.FS, name string, lex *Lexicon) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReadJSONL(f, lex)
}
