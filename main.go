package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/harness-community/mcp-devtools/discovery"
	"github.com/harness-community/mcp-devtools/junit"
	"github.com/harness-community/mcp-devtools/mcp"
)

const appName = "mcp-devtools"

// version is overridden at build time.
var version = "dev"

// Settings are the process options read from the environment. The
// analysis values become the serve-time defaults; the analyze command
// takes the same values as flags instead.
type Settings struct {
	LogLevel          string  `envconfig:"MCP_DEVTOOLS_LOG_LEVEL" default:"info"`
	SlowTestThreshold float64 `envconfig:"MCP_DEVTOOLS_SLOW_TEST_THRESHOLD" default:"5"`
	MaxSlowTests      int     `envconfig:"MCP_DEVTOOLS_MAX_SLOW_TESTS" default:"20"`
	SlowSuiteQuantile float64 `envconfig:"MCP_DEVTOOLS_SLOW_SUITE_QUANTILE" default:"0.8"`
	MinSlowSuites     int     `envconfig:"MCP_DEVTOOLS_MIN_SLOW_SUITES" default:"1"`
}

func (s *Settings) load() error {
	if err := envconfig.Process("", s); err != nil {
		return errors.New("failed to read environment settings: " + err.Error())
	}
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return errors.New("invalid log level: " + s.LogLevel)
	}
	logrus.SetLevel(level)
	return nil
}

func (s Settings) options() junit.Options {
	return junit.Options{
		SlowTestThreshold: s.SlowTestThreshold,
		MaxSlowTests:      s.MaxSlowTests,
		SlowSuiteQuantile: s.SlowSuiteQuantile,
		MinSlowSuites:     s.MinSlowSuites,
	}
}

func main() {
	// Stdout carries the protocol stream in serve mode; logs stay on
	// stderr for every command.
	logrus.SetOutput(os.Stderr)

	if err := newRootCommand().Execute(); err != nil {
		logrus.Fatalln(err)
	}
}

func newRootCommand() *cobra.Command {
	var settings Settings
	var logLevel string

	root := &cobra.Command{
		Use:           appName,
		Short:         "JUnit test-report analysis tools for AI-assistant hosts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.load(); err != nil {
				return err
			}
			if logLevel == "" {
				return nil
			}
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return errors.New("invalid log level: " + logLevel)
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides MCP_DEVTOOLS_LOG_LEVEL")
	root.AddCommand(serveCommand(&settings), analyzeCommand(), locateCommand())
	return root
}

func serveCommand(settings *Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis tools over stdio for an MCP host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := settings.options()
			if err := opts.Validate(); err != nil {
				return err
			}
			return mcp.NewServer(appName, version, opts).Run(cmd.Context())
		},
	}
}

// fileResult pairs one report file with its analysis in the analyze
// command output.
type fileResult struct {
	File   string        `json:"file"`
	Report *junit.Result `json:"report"`
}

func analyzeCommand() *cobra.Command {
	defaults := junit.DefaultOptions()
	var (
		dir      string
		maxDepth int
		opts     = defaults
	)
	cmd := &cobra.Command{
		Use:   "analyze [file ...]",
		Short: "Analyze JUnit XML report files and print the results as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			files := append([]string{}, args...)
			if dir != "" {
				found, err := discovery.FindReports(dir, maxDepth)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return errors.New("no report files given: pass file arguments or --dir")
			}

			output := make([]fileResult, 0, len(files))
			for _, file := range files {
				logrus.WithField("File", file).Info("Analyzing report")
				data, err := os.ReadFile(file)
				if err != nil {
					return errors.New("failed to read report file: " + err.Error())
				}
				report, err := junit.Parse(data)
				if err != nil {
					return errors.New(file + ": " + err.Error())
				}
				result := junit.Analyze(report, opts)
				logrus.Infof("Suites: %d | Tests: %d | Failures: %d | Slow Tests: %d | Slow Suites: %d",
					result.Stats.TotalSuites, result.Stats.TotalTests, result.Stats.FailedTests,
					len(result.SlowTopQuantileTests), len(result.SlowTopQuantileSuites))
				output = append(output, fileResult{
					File:   filepath.ToSlash(file),
					Report: result,
				})
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(output)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dir, "dir", "", "directory to search for report files")
	flags.IntVar(&maxDepth, "max-depth", discovery.DefaultMaxDepth, "maximum directory depth for --dir")
	flags.Float64Var(&opts.SlowTestThreshold, "slow-test-threshold", defaults.SlowTestThreshold, "seconds a test must strictly exceed to count as slow")
	flags.IntVar(&opts.MaxSlowTests, "max-slow-tests", defaults.MaxSlowTests, "maximum number of slow tests to report")
	flags.Float64Var(&opts.SlowSuiteQuantile, "slow-suite-quantile", defaults.SlowSuiteQuantile, "duration quantile a suite must reach to count as slow")
	flags.IntVar(&opts.MinSlowSuites, "min-slow-suites", defaults.MinSlowSuites, "minimum number of slow suites to report")
	return cmd
}

func locateCommand() *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "locate <dir>",
		Short: "List JUnit XML report files under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := discovery.FindReports(args[0], maxDepth)
			if err != nil {
				return err
			}
			for _, report := range reports {
				fmt.Fprintln(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", discovery.DefaultMaxDepth, "maximum directory depth to descend")
	return cmd
}
