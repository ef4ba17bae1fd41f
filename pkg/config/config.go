package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const archiveExtension = ".zip"

// Config is the run configuration taken from positional arguments.
type Config struct {
	Source string `validate:"required"`
	Name   string `validate:"required"`

	// Version is accepted in the third position and reserved. It does not affect
	// the output name or the archive contents.
	Version string
}

// FromArgs builds a Config from positional arguments:
// source directory, output base name and an optional version.
func FromArgs(args []string) (*Config, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expected at least 2 arguments, got %d", len(args))
	}

	if len(args) > 3 {
		return nil, fmt.Errorf("expected at most 3 arguments, got %d", len(args))
	}

	config := &Config{
		Source: args[0],
		Name:   args[1],
	}

	if len(args) == 3 {
		config.Version = args[2]
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	return config, nil
}

// OutputPath returns the archive file name derived from Name.
func (c *Config) OutputPath() string {
	return c.Name + archiveExtension
}
