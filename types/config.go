package types

import (
	"text2phenotype.com/psyctx/logger"
	"bytes"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

const (
	// pipeline type
	OutcomeContextPipeline = "outcome_context"

	// features
	RelationFeature = "relation"
)

var ErrWrongPipelineType = errors.New("wrong pipeline type")

type Configuration struct {
	Name       string   `json:"name"`
	FilePath   string   `json:"file_path"`
	Pipeline   string   `yaml:"pipeline" json:"pipeline"`
	Dimensions []string `yaml:"dimensions" json:"dimensions"`
	// empty means the embedded lexicons
	LexiconDir string   `yaml:"lexicon_dir" json:"lexicon_dir"`
	Features   []string `yaml:"features" json:"features"`
	Workers    int      `yaml:"workers" json:"workers"`
}

func (cfg Configuration) CheckFeature(featureName string) bool {
	for _, feat := range cfg.Features {
		if feat == featureName {
			return true
		}
	}

	return false
}

func (cfg Configuration) DimensionOrder() []string {
	if len(cfg.Dimensions) == 0 {
		return DefaultDimensionOrder()
	}
	return cfg.Dimensions
}

func (cfg Configuration) Validate() error {
	if cfg.Pipeline != OutcomeContextPipeline {
		return fmt.Errorf("%w: %q", ErrWrongPipelineType, cfg.Pipeline)
	}
	seen := make(map[string]bool)
	for _, dim := range cfg.DimensionOrder() {
		if seen[dim] {
			return fmt.Errorf("dimension %q is listed twice", dim)
		}
		seen[dim] = true
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	return nil
}

// ParseConfiguration rejects unknown keys so a misspelled option never falls back to a default.
func ParseConfiguration(name string, buf []byte) (Configuration, error) {
	cfg := Configuration{Name: name}
	decoder := yaml.NewDecoder(bytes.NewReader(buf))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("configuration %s: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration %s: %w", name, err)
	}
	return cfg, nil
}

// LoadConfigurations reads every *.yaml file in dirPath. Files of other pipeline types are
// logged and skipped; any other broken file fails the whole load.
func LoadConfigurations(dirPath string) ([]Configuration, error) {
	psyLogger := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(files))
	errChan := make(chan error, len(files))
	for _, f := range files {
		// Skip dirs and non-yaml files
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(file os.DirEntry) {
			defer wg.Done()
			filePath := path.Join(dirPath, file.Name())
			buf, err := os.ReadFile(filePath)
			if err != nil {
				errChan <- err
				return
			}
			cfg, err := ParseConfiguration(strings.TrimSuffix(file.Name(), ".yaml"), buf)
			if errors.Is(err, ErrWrongPipelineType) {
				psyLogger.Info().Err(err).Str("file", filePath).Msg("Skipping configuration of another pipeline")
				return
			}
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", filePath, err)
				return
			}
			cfg.FilePath = filePath

			configChan <- cfg
		}(f)
	}

	wg.Wait()
	close(configChan)
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool {
			return errs[i].Error() < errs[j].Error()
		})
		return nil, errors.Join(errs...)
	}

	configs := make([]Configuration, 0, len(configChan))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})
	return configs, nil
}
