package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
)

const (
	configPathEnv = "REVIEWPIPE_CONFIG"
	dbPathEnv     = "REVIEWPIPE_DB"
	logLevelEnv   = "REVIEWPIPE_LOG_LEVEL"
	workersEnv    = "REVIEWPIPE_ANALYZER_WORKERS"
)

// Config holds every setting of the pipeline. It is built once and passed
// to each component at construction.
type Config struct {
	DBPath  string        `yaml:"db_path"`
	Log     LogConfig     `yaml:"log"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Process ProcessConfig `yaml:"process"`
	Export  ExportConfig  `yaml:"export"`
	Lexicon LexiconConfig `yaml:"lexicon"`
	NLP     NLPConfig     `yaml:"nlp"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig selects the log level and an optional log file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// IngestConfig tunes raw ingestion.
type IngestConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// ProcessConfig tunes classification runs.
type ProcessConfig struct {
	BatchSize       int `yaml:"batch_size"`
	AnalyzerWorkers int `yaml:"analyzer_workers"`
}

// ExportConfig sets the default export destination.
type ExportConfig struct {
	Output string `yaml:"output"`
}

// LexiconConfig replaces the built-in classification lexicons when non-empty.
type LexiconConfig struct {
	Food    []string `yaml:"food"`
	Service []string `yaml:"service"`
}

// NLPConfig points at optional analyzer resource files. Stopwords are
// added on top of the stoplist file.
type NLPConfig struct {
	LemmasPath   string   `yaml:"lemmas_path"`
	StoplistPath string   `yaml:"stoplist_path"`
	EntitiesPath string   `yaml:"entities_path"`
	Stopwords    []string `yaml:"stopwords"`
}

// MetricsConfig enables the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:  "sup-san-reviews.db",
		Log:     LogConfig{Level: "info"},
		Ingest:  IngestConfig{BatchSize: 1000},
		Process: ProcessConfig{BatchSize: 500, AnalyzerWorkers: 1},
		Export:  ExportConfig{Output: "messages.json"},
	}
}

// Load reads YAML configuration from path over the defaults, then applies
// environment overrides and validates the result. An empty path falls back
// to $REVIEWPIPE_CONFIG; if that is unset too, only defaults and environment
// are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: config file %s", internalerr.ErrNotFound, path)
		}
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(workersEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", internalerr.ErrInvalidConfig, workersEnv, v)
		}
		c.Process.AnalyzerWorkers = n
	}
	return nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "db_path is empty")
	}
	if c.Ingest.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize))
	}
	if c.Process.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("process.batch_size must be positive, got %d", c.Process.BatchSize))
	}
	if c.Process.AnalyzerWorkers <= 0 {
		problems = append(problems, fmt.Sprintf("process.analyzer_workers must be positive, got %d", c.Process.AnalyzerWorkers))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log.level %q", c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// Entities represents keyword entity definitions: type → name → keywords.
type Entities struct {
	Entities map[string]map[string][]string `yaml:"entities"`
}

// LoadEntities loads keyword entities from a YAML file
func LoadEntities(path string) (*Entities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ents Entities
	if err := yaml.Unmarshal(data, &ents); err != nil {
		return nil, err
	}

	return &ents, nil
}
