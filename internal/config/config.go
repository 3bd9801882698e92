// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package config loads the refactorbot YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete refactorbot configuration.
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Validation ValidationConfig `yaml:"validation"`
	Index      IndexConfig      `yaml:"index"`
}

// ModelConfig specifies the LLM backend for planning and execution.
type ModelConfig struct {
	BaseURL string `yaml:"base_url"`
	Name    string `yaml:"name"`
}

// PipelineConfig controls the run loop policy knobs. The abort threshold and
// retry budget are configuration inputs, not hardcoded constants.
type PipelineConfig struct {
	MaxRetries          int     `yaml:"max_retries"`
	AbortThreshold      float64 `yaml:"abort_threshold"`
	StageTimeoutSeconds int     `yaml:"stage_timeout_seconds"`
}

// StageTimeout returns the per-collaborator call timeout.
func (p PipelineConfig) StageTimeout() time.Duration {
	return time.Duration(p.StageTimeoutSeconds) * time.Second
}

// ValidationConfig controls how tests run.
type ValidationConfig struct {
	TestCommand string        `yaml:"test_command"`
	Sandbox     SandboxConfig `yaml:"sandbox"`
}

// SandboxConfig selects Docker-contained test execution.
type SandboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Image   string `yaml:"image"`
}

// IndexConfig tunes repository indexing.
type IndexConfig struct {
	Exclude []string `yaml:"exclude"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			BaseURL: "http://localhost:4096",
		},
		Pipeline: PipelineConfig{
			MaxRetries:          3,
			AbortThreshold:      0.85,
			StageTimeoutSeconds: 300,
		},
		Validation: ValidationConfig{
			Sandbox: SandboxConfig{Image: "node:20-slim"},
		},
	}
}

// Load reads a config file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot clamp or
// default away.
func (c *Config) Validate() error {
	if c.Model.BaseURL == "" {
		return fmt.Errorf("model base_url is required")
	}
	if c.Pipeline.AbortThreshold < 0 || c.Pipeline.AbortThreshold > 1 {
		return fmt.Errorf("abort_threshold must be within [0,1], got %v", c.Pipeline.AbortThreshold)
	}
	if c.Pipeline.StageTimeoutSeconds < 0 {
		return fmt.Errorf("stage_timeout_seconds must not be negative")
	}
	if c.Validation.Sandbox.Enabled && c.Validation.Sandbox.Image == "" {
		return fmt.Errorf("sandbox image is required when the sandbox is enabled")
	}
	return nil
}
