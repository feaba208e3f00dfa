package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// Config is the user-visible configuration for the trellis-demo binary.
type Config struct {
	Scenario          string
	LogLevel          string
	ConvergenceBudget int
}

// Bind registers the demo's flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.Scenario, "scenario", "temperature",
		"which scenario to run: temperature, pentagram, line-receiver, new-high, conflict, noise-filter, collaborator")
	flags.StringVar(&c.LogLevel, "logLevel", "info", "zerolog level: trace, debug, info, warn, error")
	flags.IntVar(&c.ConvergenceBudget, "convergenceBudget", 0,
		"override the engine's sweep convergence budget; 0 keeps the default")
}

// Preflight validates the configuration after flags have been parsed.
func (c *Config) Preflight() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid logLevel %q", c.LogLevel)
	}
	switch c.Scenario {
	case "temperature", "pentagram", "line-receiver", "new-high", "conflict", "noise-filter", "collaborator":
	default:
		return errors.Errorf("unknown scenario %q", c.Scenario)
	}
	return nil
}
