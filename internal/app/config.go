package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	TemplatePath string // csv or hcl gating template
	DataPath     string // optional directory of per-sample event files

	Strategy       string
	Workers        int
	ClusterWorkers []string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.TemplatePath == "" {
		return nil, errors.New("TemplatePath is a required configuration field and cannot be empty")
	}
	if cfg.Strategy == "cluster" && len(cfg.ClusterWorkers) == 0 {
		return nil, errors.New("cluster strategy requires at least one worker URL")
	}
	return &cfg, nil
}
