package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

// Source formats understood by the session runner.
const (
	FormatCSV      = "csv"
	FormatSetClear = "setclear"
	FormatEDF      = "edf"
)

// Config captures the settings required to run an alignment job or the service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Session   SessionConfig   `yaml:"session"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// StoreConfig locates persisted clock models.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// AlignmentConfig tunes pairing and residual diagnostics.
type AlignmentConfig struct {
	MismatchPolicy    string  `yaml:"mismatchPolicy"`
	ResidualThreshold float64 `yaml:"residualThreshold"`
}

// SessionConfig describes one recording session to align.
type SessionConfig struct {
	Name      string       `yaml:"name"`
	Reference SourceConfig `yaml:"reference"`
	Target    SourceConfig `yaml:"target"`
	Remap     []RemapJob   `yaml:"remap"`
}

// SourceConfig points at the sync-line record of one clock.
type SourceConfig struct {
	Format          string            `yaml:"format"`
	Path            string            `yaml:"path"`
	SetPath         string            `yaml:"setPath"`
	ClearPath       string            `yaml:"clearPath"`
	TimestampColumn string            `yaml:"timestampColumn"`
	StateColumn     string            `yaml:"stateColumn"`
	Filter          map[string]string `yaml:"filter"`
	Signal          int               `yaml:"signal"`
	SampleRate      float64           `yaml:"sampleRate"`
	Threshold       float64           `yaml:"threshold"`
	StartOffset     float64           `yaml:"startOffset"`
}

// RemapJob converts target-clock columns of one event table.
type RemapJob struct {
	Input   string        `yaml:"input"`
	Output  string        `yaml:"output"`
	Columns []RemapColumn `yaml:"columns"`
}

// RemapColumn names a column to convert and, optionally, the column to write.
type RemapColumn struct {
	Name string `yaml:"name"`
	As   string `yaml:"as"`
}

// Load initialises Config from a YAML file and optional environment overrides.
// Relative session paths resolve against the config file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FNT_ALIGN_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		cfg.Session.resolvePaths(filepath.Dir(path))
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50061",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Store:   StoreConfig{Dir: "models"},
		Alignment: AlignmentConfig{
			MismatchPolicy:    string(models.MismatchTruncate),
			ResidualThreshold: 0.001,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FNT_ALIGN_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FNT_ALIGN_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FNT_ALIGN_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("FNT_ALIGN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FNT_ALIGN_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("FNT_ALIGN_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("FNT_ALIGN_MISMATCH_POLICY"); v != "" {
		cfg.Alignment.MismatchPolicy = v
	}
	if v := os.Getenv("FNT_ALIGN_RESIDUAL_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Alignment.ResidualThreshold = f
		}
	}
	if v := os.Getenv("FNT_ALIGN_SESSION"); v != "" {
		cfg.Session.Name = v
	}
}

// Validate rejects unknown policies and formats and negative thresholds. A
// session section is optional; when named, both sources must be usable.
func (c *Config) Validate() error {
	if _, err := models.ParseMismatchPolicy(c.Alignment.MismatchPolicy); err != nil {
		return fmt.Errorf("alignment: %w", err)
	}
	if c.Alignment.ResidualThreshold < 0 {
		return fmt.Errorf("alignment: residualThreshold must not be negative, got %v", c.Alignment.ResidualThreshold)
	}
	if strings.TrimSpace(c.Store.Dir) == "" {
		return fmt.Errorf("store: dir is required")
	}
	if c.Session.Name == "" {
		return nil
	}
	if err := c.Session.Reference.validate(); err != nil {
		return fmt.Errorf("session reference: %w", err)
	}
	if err := c.Session.Target.validate(); err != nil {
		return fmt.Errorf("session target: %w", err)
	}
	for i, job := range c.Session.Remap {
		if job.Input == "" {
			return fmt.Errorf("session remap[%d]: input is required", i)
		}
		if len(job.Columns) == 0 {
			return fmt.Errorf("session remap[%d]: at least one column is required", i)
		}
		for j, col := range job.Columns {
			if col.Name == "" {
				return fmt.Errorf("session remap[%d] column %d: name is required", i, j)
			}
		}
	}
	return nil
}

// HasSession reports whether a session job is configured.
func (c *Config) HasSession() bool {
	return c.Session.Name != ""
}

func (s SourceConfig) validate() error {
	switch strings.ToLower(s.Format) {
	case FormatCSV:
		if s.Path == "" {
			return fmt.Errorf("csv source requires path")
		}
	case FormatSetClear:
		if s.SetPath == "" || s.ClearPath == "" {
			return fmt.Errorf("setclear source requires setPath and clearPath")
		}
	case FormatEDF:
		if s.Path == "" {
			return fmt.Errorf("edf source requires path")
		}
		if s.SampleRate <= 0 {
			return fmt.Errorf("edf source requires a positive sampleRate")
		}
		if s.Signal < 0 {
			return fmt.Errorf("edf signal index must not be negative")
		}
	case "":
		return fmt.Errorf("format is required")
	default:
		return fmt.Errorf("unknown format %q", s.Format)
	}
	return nil
}

func (s *SessionConfig) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for _, src := range []*SourceConfig{&s.Reference, &s.Target} {
		src.Path = resolve(src.Path)
		src.SetPath = resolve(src.SetPath)
		src.ClearPath = resolve(src.ClearPath)
	}
	for i := range s.Remap {
		s.Remap[i].Input = resolve(s.Remap[i].Input)
		s.Remap[i].Output = resolve(s.Remap[i].Output)
	}
}
