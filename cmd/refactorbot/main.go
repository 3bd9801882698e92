// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"refactorbot/internal/audit"
	"refactorbot/internal/config"
	"refactorbot/internal/graph"
	"refactorbot/internal/index"
	"refactorbot/internal/llm"
	"refactorbot/internal/pipeline"
	"refactorbot/internal/recovery"
	"refactorbot/internal/report"
	"refactorbot/internal/sandbox"
	"refactorbot/internal/state"
	"refactorbot/internal/validate"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("refactorbot", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "path to YAML config file")
		maxRetries  = fs.Int("max-retries", 0, "retry budget per task (overrides config)")
		jsonOut     = fs.Bool("json", false, "emit the run report as JSON")
		verbose     = fs.Bool("verbose", false, "enable debug logging")
		showVersion = fs.Bool("version", false, "print version and exit")
	)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: refactorbot [flags] <directive> <repo-path>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return report.ExitFatal
	}
	if *showVersion {
		fmt.Printf("refactorbot v%s\n", version)
		return report.ExitSuccess
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return report.ExitFatal
	}
	directive := fs.Arg(0)
	repoPath := fs.Arg(1)

	logger := newStdLogger(*verbose)

	if err := llm.ValidateDirective(directive); err != nil {
		logger.Errorf("invalid directive: %v", err)
		return report.ExitFatal
	}
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		logger.Errorf("invalid repo path: %v", err)
		return report.ExitFatal
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Errorf("failed to load config: %v", err)
			return report.ExitFatal
		}
	}
	if *maxRetries > 0 {
		cfg.Pipeline.MaxRetries = *maxRetries
	}

	client := llm.NewClient(cfg.Model.BaseURL, cfg.Model.Name)

	validatorOpts := []validate.Option{}
	if cfg.Validation.TestCommand != "" {
		validatorOpts = append(validatorOpts, validate.WithCommand(cfg.Validation.TestCommand))
	}
	if cfg.Validation.Sandbox.Enabled {
		runner, err := sandbox.NewRunner(cfg.Validation.Sandbox.Image)
		if err != nil {
			logger.Errorf("failed to set up sandbox: %v", err)
			return report.ExitFatal
		}
		defer runner.Close()
		validatorOpts = append(validatorOpts, validate.WithRunner(runner))
	}

	collabs := pipeline.Collaborators{
		Indexer:   index.New(cfg.Index.Exclude...),
		Planner:   llm.NewPlanner(client),
		Executor:  llm.NewExecutor(client),
		Auditor:   audit.New(),
		Validator: validate.New(validatorOpts...),
	}

	p := pipeline.New(collabs, cfg.Pipeline.StageTimeout(), logger)
	engine := recovery.NewEngine(cfg.Pipeline.AbortThreshold)

	g, err := pipeline.BuildTopology(p, engine)
	if err != nil {
		logger.Errorf("failed to build pipeline topology: %v", err)
		return report.ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := state.New(directive, repoPath, cfg.Pipeline.MaxRetries)
	if err := graph.NewRunner(g, logger).Run(ctx, s); err != nil {
		logger.Errorf("run failed: %v", err)
	}

	rep := report.FromState(s)
	if *jsonOut {
		out, err := rep.JSON()
		if err != nil {
			logger.Errorf("failed to render report: %v", err)
			return report.ExitFatal
		}
		fmt.Println(out)
	} else {
		fmt.Print(rep.Text())
	}
	return rep.ExitCode()
}

// stdLogger adapts the standard library logger to the pipeline's Logger
// interface.
type stdLogger struct {
	verbose bool
}

func newStdLogger(verbose bool) *stdLogger {
	return &stdLogger{verbose: verbose}
}

func (l *stdLogger) Infof(format string, args ...interface{}) {
	log.Printf("INFO  "+format, args...)
}

func (l *stdLogger) Warnf(format string, args ...interface{}) {
	log.Printf("WARN  "+format, args...)
}

func (l *stdLogger) Errorf(format string, args ...interface{}) {
	log.Printf("ERROR "+format, args...)
}

func (l *stdLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		log.Printf("DEBUG "+format, args...)
	}
}
