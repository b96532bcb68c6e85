package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDelimiter          = ","
	DefaultEncoding           = "utf-8"
	DefaultNullThreshold      = 0.1
	DefaultDuplicateThreshold = 0.05
)

type Config struct {
	Sources   []SourceConfig   `yaml:"sources"`
	Warehouse *WarehouseConfig `yaml:"warehouse"`
	Alert     *AlertConfig     `yaml:"alert"`
}

type SourceConfig struct {
	Name      string            `yaml:"name"`
	Type      string            `yaml:"type"` // csv, json, api, database
	Path      string            `yaml:"path"`
	URL       string            `yaml:"url"`
	DSN       string            `yaml:"dsn"`
	Query     string            `yaml:"query"`
	Delimiter string            `yaml:"delimiter"`
	Encoding  string            `yaml:"encoding"`
	Headers   map[string]string `yaml:"headers"`
	Auth      AuthConfig        `yaml:"auth"`
	Quality   QualityConfig     `yaml:"quality"`
}

type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Token    string `yaml:"token"`
}

type QualityConfig struct {
	RequiredColumns    []string          `yaml:"requiredColumns"`
	KeyColumns         []string          `yaml:"keyColumns"`
	ExpectedTypes      map[string]string `yaml:"expectedTypes"`
	NullThreshold      *float64          `yaml:"nullThreshold"`
	DuplicateThreshold *float64          `yaml:"duplicateThreshold"`
}

type WarehouseConfig struct {
	DSN    string            `yaml:"dsn"`
	Tables map[string]string `yaml:"tables"` // source name -> warehouse table
}

type AlertConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	_, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Delimiter == "" {
			s.Delimiter = DefaultDelimiter
		}
		if s.Encoding == "" {
			s.Encoding = DefaultEncoding
		}
	}
}

func (c *Config) validate() error {
	if len(c.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	for _, s := range c.Sources {
		if s.Name == "" {
			return errors.New("source.name is required")
		}
		switch s.Type {
		case "csv", "json":
			if s.Path == "" {
				return fmt.Errorf("source %s: path is required for %s sources", s.Name, s.Type)
			}
		case "api":
			if s.URL == "" {
				return fmt.Errorf("source %s: url is required for api sources", s.Name)
			}
		case "database":
			if s.DSN == "" {
				return fmt.Errorf("source %s: dsn is required for database sources", s.Name)
			}
			if s.Query == "" {
				return fmt.Errorf("source %s: query is required for database sources", s.Name)
			}
		default:
			return fmt.Errorf("source %s: type must be one of csv, json, api, database", s.Name)
		}
		if len(s.Delimiter) > 1 {
			return fmt.Errorf("source %s: delimiter must be a single character", s.Name)
		}
		if t := s.Quality.NullThreshold; t != nil && (*t < 0 || *t > 1) {
			return fmt.Errorf("source %s: nullThreshold must be in [0,1]", s.Name)
		}
		if t := s.Quality.DuplicateThreshold; t != nil && (*t < 0 || *t > 1) {
			return fmt.Errorf("source %s: duplicateThreshold must be in [0,1]", s.Name)
		}
	}
	if c.Warehouse != nil && c.Warehouse.DSN == "" {
		return errors.New("warehouse.dsn is required when warehouse is configured")
	}
	if c.Alert != nil {
		if len(c.Alert.Brokers) == 0 {
			return errors.New("alert.brokers is required when alert is configured")
		}
		if c.Alert.Topic == "" {
			return errors.New("alert.topic is required when alert is configured")
		}
	}
	return nil
}

// NullThresholdOrDefault returns the configured completeness threshold or the
// package default.
func (q QualityConfig) NullThresholdOrDefault() float64 {
	if q.NullThreshold != nil {
		return *q.NullThreshold
	}
	return DefaultNullThreshold
}

func (q QualityConfig) DuplicateThresholdOrDefault() float64 {
	if q.DuplicateThreshold != nil {
		return *q.DuplicateThreshold
	}
	return DefaultDuplicateThreshold
}
