package stress

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/observability"
	"github.com/benz9527/xrbtree/xlog"
)

type CheckMode string

const (
	// CheckEvery validates the tree after each insertion and removal.
	CheckEvery CheckMode = "every"
	// CheckFinal validates the tree after the insertion and the removal phase.
	CheckFinal CheckMode = "final"
	// CheckNone only compares the final key sequences.
	CheckNone CheckMode = "none"
)

const (
	defaultKeys    = 100_000
	defaultMaxKey  = 1_000_000
	defaultTrials  = 1
	defaultWorkers = 4
)

type Config struct {
	Keys          int       `yaml:"keys"`
	MaxKey        int64     `yaml:"maxKey"`
	Trials        int       `yaml:"trials"`
	Workers       int       `yaml:"workers"`
	Check         CheckMode `yaml:"check"`
	DotDir        string    `yaml:"dotDir"`
	Metrics       string    `yaml:"metrics"`
	MetricsAddr   string    `yaml:"metricsAddr"`
	LogLevel      string    `yaml:"logLevel"`
	LogFile       string    `yaml:"logFile"`
	LogMaxSize    string    `yaml:"logMaxSize"` // Rotation is disabled if empty, e.g. "64MB".
	LogMaxBackups int       `yaml:"logMaxBackups"`
	LogCompress   bool      `yaml:"logCompress"`
	Seed          uint64    `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Keys:     defaultKeys,
		MaxKey:   defaultMaxKey,
		Trials:   defaultTrials,
		Workers:  defaultWorkers,
		Check:    CheckFinal,
		Metrics:  string(observability.NoneMetrics),
		LogLevel: "INFO",
	}
}

// LoadConfig decodes the YAML document over the defaults. Unknown
// fields are rejected.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, infra.WrapErrorStackWithMessage(err, "decode stress config")
	}
	return cfg, nil
}

func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "open stress config")
	}
	defer func() {
		_ = f.Close()
	}()
	return LoadConfig(f)
}

// Validate reports every invalid field at once.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return infra.NewErrorStack("nil stress config")
	}
	var errs []error
	if cfg.Keys <= 0 {
		errs = append(errs, fmt.Errorf("keys must be positive, got %d", cfg.Keys))
	}
	if cfg.MaxKey <= 0 {
		errs = append(errs, fmt.Errorf("maxKey must be positive, got %d", cfg.MaxKey))
	}
	if cfg.Trials <= 0 {
		errs = append(errs, fmt.Errorf("trials must be positive, got %d", cfg.Trials))
	}
	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", cfg.Workers))
	}
	switch cfg.Check {
	case CheckEvery, CheckFinal, CheckNone:
	default:
		errs = append(errs, fmt.Errorf("unknown check mode <%s>", cfg.Check))
	}
	typ, err := observability.ParseMetricsExporterType(cfg.Metrics)
	if err != nil {
		errs = append(errs, err)
	} else if len(cfg.MetricsAddr) > 0 && typ != observability.PrometheusMetrics {
		errs = append(errs, fmt.Errorf("metricsAddr requires the prometheus exporter, got <%s>", typ))
	}
	switch strings.ToUpper(strings.TrimSpace(cfg.LogLevel)) {
	case "", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("unknown log level <%s>", cfg.LogLevel))
	}
	if len(cfg.LogMaxSize) > 0 {
		if len(cfg.LogFile) == 0 {
			errs = append(errs, errors.New("logMaxSize requires logFile"))
		}
		if _, err := xlog.ParseFileSize(cfg.LogMaxSize); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.LogMaxBackups < 0 {
		errs = append(errs, fmt.Errorf("logMaxBackups must not be negative, got %d", cfg.LogMaxBackups))
	}
	if len(errs) == 0 {
		return nil
	}
	return infra.WrapErrorStackWithMessage(infra.AppendErrorStack(nil, errs...), "invalid stress config")
}
