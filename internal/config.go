package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/4thel00z/fnhist/internal/languages"
	"gopkg.in/yaml.v3"
)

const DefaultQueueSize = 64

type HistoryConfig struct {
	Direction      string `yaml:"direction" mapstructure:"direction"`
	MaxCommits     int    `yaml:"max_commits,omitempty" mapstructure:"max_commits"`
	Ref            string `yaml:"ref,omitempty" mapstructure:"ref"`
	KeepDuplicates bool   `yaml:"keep_duplicates,omitempty" mapstructure:"keep_duplicates"`
}

type WorkerConfig struct {
	QueueSize int    `yaml:"queue_size" mapstructure:"queue_size"`
	Priority  string `yaml:"priority" mapstructure:"priority"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type Config struct {
	History   HistoryConfig `yaml:"history" mapstructure:"history"`
	Worker    WorkerConfig  `yaml:"worker" mapstructure:"worker"`
	Languages []string      `yaml:"languages,omitempty" mapstructure:"languages"`
	Log       LogConfig     `yaml:"log" mapstructure:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		History: HistoryConfig{
			Direction: string(OldestFirst),
		},
		Worker: WorkerConfig{
			QueueSize: DefaultQueueSize,
			Priority:  string(PrioritySerial),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

func LoadConfig(scope Scope) (*Config, error) {
	path := scope.ConfigPath()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadCascade loads the most specific config file that exists among scopes.
func LoadCascade(scopes []Scope) (*Config, Scope, error) {
	for _, scope := range scopes {
		if _, err := os.Stat(scope.ConfigPath()); err != nil {
			continue
		}
		cfg, err := LoadConfig(scope)
		return cfg, scope, err
	}
	if len(scopes) == 0 {
		return DefaultConfig(), Scope{}, nil
	}
	return DefaultConfig(), scopes[len(scopes)-1], nil
}

func SaveConfig(scope Scope, cfg *Config) error {
	path := scope.ConfigPath()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks the enumerated fields and returns the enabled languages.
func (c *Config) Validate() ([]languages.Language, error) {
	if _, err := ParseDirection(c.History.Direction); err != nil {
		return nil, fmt.Errorf("history.direction: %w", err)
	}
	if c.History.MaxCommits < 0 {
		return nil, fmt.Errorf("%w: history.max_commits must not be negative", ErrInvalidCommand)
	}
	if c.Worker.QueueSize < 0 {
		return nil, fmt.Errorf("%w: worker.queue_size must not be negative", ErrInvalidCommand)
	}
	if _, err := ParsePriority(c.Worker.Priority); err != nil {
		return nil, fmt.Errorf("worker.priority: %w", err)
	}

	var langs []languages.Language
	for _, name := range c.Languages {
		lang, err := languages.FromString(name)
		if err != nil {
			return nil, fmt.Errorf("languages: %w", err)
		}
		langs = append(langs, lang)
	}
	return langs, nil
}
