// Package main runs one of the Trellis example scenarios end to end and
// prints its result, for manual inspection of the engine's behavior.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/gitrdm/trellis/examples"
	"github.com/gitrdm/trellis/pkg/trellis"
)

func main() {
	var cfg Config
	cfg.Bind(pflag.CommandLine)
	pflag.Parse()

	if err := cfg.Preflight(); err != nil {
		fmt.Fprintln(os.Stderr, "trellis-demo:", err)
		os.Exit(1)
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	opts := []trellis.Option{trellis.WithLogger(log)}
	if cfg.ConvergenceBudget > 0 {
		opts = append(opts, trellis.WithConvergenceBudget(cfg.ConvergenceBudget))
	}

	result, err := run(cfg.Scenario, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "trellis-demo:", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func run(scenario string, opts ...trellis.Option) (string, error) {
	switch scenario {
	case "temperature":
		return examples.Temperature(opts...), nil
	case "pentagram":
		return examples.Pentagram(opts...), nil
	case "line-receiver":
		return examples.LineReceiver(opts...), nil
	case "new-high":
		return examples.NewHighDetector(opts...), nil
	case "conflict":
		return examples.Conflict(opts...), nil
	case "noise-filter":
		return examples.NoiseFilter(opts...), nil
	case "collaborator":
		return examples.Collaborator(opts...), nil
	default:
		return "", fmt.Errorf("unknown scenario %q", scenario)
	}
}
