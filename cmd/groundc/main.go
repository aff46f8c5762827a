// Package main provides the groundc CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"groundc/internal/asp"
	"groundc/internal/config"
	"groundc/internal/syntax"
)

// Version is the current groundc version.
var Version = "0.3.0"

var (
	configPath  string
	logLevel    string
	grounderBin string
	outDir      string
	noCache     bool
)

var rootCmd = &cobra.Command{
	Use:           "groundc",
	Short:         "groundc - lifted planning task compiler",
	Long:          `groundc compiles a typed planning domain and problem into an indexed task document for a search-based planner, optionally pruning state variables and action groundings with an ASP grounder.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&grounderBin, "grounder", "", "Grounder binary for grounding-directed instantiation")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "Output directory")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Bypass the grounder result cache")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is the resolved configuration shared by every command.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.FromArgs(grounderBin, outDir, logLevel)
	if noCache {
		cfg.Cache = false
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	return &env{cfg: cfg, logger: logger}, nil
}

// grounder returns the configured grounder, wrapped by the result cache
// when enabled, and a release func. It returns nil when no grounder binary
// is configured.
func (e *env) grounder() (asp.Grounder, func() error, error) {
	noop := func() error { return nil }
	if e.cfg.Grounder == "" {
		return nil, noop, nil
	}
	var g asp.Grounder = &asp.ProcessGrounder{
		Binary:  e.cfg.Grounder,
		Args:    e.cfg.GrounderArgs,
		WorkDir: e.cfg.WorkDir,
		Logger:  e.logger,
	}
	if !e.cfg.Cache {
		return g, noop, nil
	}
	cached, err := asp.OpenCache(e.cfg.CacheDir, g, e.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening grounder cache: %w", err)
	}
	return cached, cached.Close, nil
}

func readTask(domainPath, problemPath string) (*syntax.Domain, *syntax.Problem, error) {
	domain, err := syntax.LoadDomain(domainPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", domainPath, err)
	}
	problem, err := syntax.LoadProblem(problemPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", problemPath, err)
	}
	return domain, problem, nil
}
