package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/config"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/imaging"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/logger"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/tracking"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("feature-track %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "feature-track: %v\n", err)
		os.Exit(1)
	}
}

// run loads the configuration in order defaults, file, environment, flags
// and tracks the configured sequence. The report goes to stdout as JSON.
func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := features.NewEngine(cfg.Params, log)
	p := tracking.NewPipeline(cfg, engine, imaging.NewImageCache(), log)

	report, err := p.Run(ctx, cfg.Sequence.Paths())
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return errors.Join(err, encErr)
		}
	}
	return err
}

func loadConfig(args []string) (*config.Config, error) {
	// the config path has to be known before the remaining flags are bound
	pre := flag.NewFlagSet("feature-track", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	path := pre.String("config", "", "YAML configuration file")
	_ = pre.Parse(filterConfigFlag(args))

	cfg, err := config.Load(*path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("feature-track", flag.ContinueOnError)
	fs.String("config", *path, "YAML configuration file")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// filterConfigFlag keeps only -config and its value so the first pass does
// not trip over flags it does not know.
func filterConfigFlag(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-config" || a == "--config":
			out = append(out, a)
			if i+1 < len(args) {
				out = append(out, args[i+1])
				i++
			}
		case strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config="):
			out = append(out, a)
		}
	}
	return out
}
