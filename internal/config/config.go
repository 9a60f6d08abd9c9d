// Package config loads the service and CLI settings from YAML.
//
// Values come from Default, then the YAML file, then the environment
// (DERIVRECON_ADDR, DERIVRECON_LOG_LEVEL, OTEL_TRACES_EXPORTER,
// OTEL_EXPORTER_OTLP_ENDPOINT). The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no path is given and the file exists.
const DefaultPath = "derivrecon.yaml"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Recon  ReconConfig  `yaml:"recon"`
	Log    LogConfig    `yaml:"log"`
	Trace  TraceConfig  `yaml:"trace"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
	// RateLimit is requests per second across all clients; 0 disables it.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=1"`
}

// ReconConfig bounds a single reconstruction and sets the display window.
type ReconConfig struct {
	Variable         string        `yaml:"variable" validate:"required,alphanum"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxExprLen       int           `yaml:"max_expr_len" validate:"min=1"`
	Samples          int           `yaml:"samples" validate:"min=2"`
	XMin             float64       `yaml:"xmin" validate:"ltfield=XMax"`
	XMax             float64       `yaml:"xmax"`
	MaxSamples       int           `yaml:"max_samples" validate:"gtefield=Samples"`
	MaxBatch         int           `yaml:"max_batch" validate:"min=1"`
	BatchConcurrency int           `yaml:"batch_concurrency" validate:"min=1"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// TraceConfig selects where OpenTelemetry spans go. "none" keeps the global
// no-op provider.
type TraceConfig struct {
	Exporter     string `yaml:"exporter" validate:"oneof=none stdout otlp"`
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=Exporter otlp"`
	ServiceName  string `yaml:"service_name" validate:"required"`
}

// Default returns the built-in settings: a -5..5 window sampled at 800
// points, first-order requests over x, JSON logs at info.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			RateLimit:    20,
			Burst:        40,
		},
		Recon: ReconConfig{
			Variable:         "x",
			Timeout:          5 * time.Second,
			MaxExprLen:       512,
			Samples:          800,
			XMin:             -5,
			XMax:             5,
			MaxSamples:       10000,
			MaxBatch:         32,
			BatchConcurrency: 4,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Trace: TraceConfig{
			Exporter:     "none",
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "derivrecon",
		},
	}
}

var validate = validator.New()

// Load reads path over the defaults. An empty path falls back to
// DefaultPath when that file exists, and to the defaults alone otherwise.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DERIVRECON_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DERIVRECON_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Trace.Exporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Trace.OTLPEndpoint = v
	}
}

// Validate checks every field constraint and reports them all at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps Log.Level onto slog.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
