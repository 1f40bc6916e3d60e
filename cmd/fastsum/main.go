// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command fastsum prints the sum of its integer arguments, or of the
// integers read from standard input.
//
//	fastsum 1 2 3
//	seq 1 100 | fastsum --perf
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"acln.ro/fastsum"
	"acln.ro/fastsum/internal/config"
)

// version is set at link time.
var version = "devel"

var (
	// Loaded in PersistentPreRunE.
	cfg    *config.Config
	logger *zap.Logger
)

// flags holds the command line flags of the root command.
type flags struct {
	verbose    bool
	configPath string
	checked    bool
	perf       bool
}

// newRootCmd returns the base command, with subcommands attached.
func newRootCmd() *cobra.Command {
	var f flags
	rootCmd := &cobra.Command{
		Use:   "fastsum [int ...]",
		Short: "Sum int64 values",
		Long: `fastsum prints the sum of the given int64 values.

Values are taken from the arguments, or read from standard input when no
arguments are given. Values may be separated by white space or commas.

By default the sum wraps around on int64 overflow. With --checked, overflow
is reported as an error instead. With --perf, a hardware performance
counter report for the summation is written to standard error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, &f)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: runSum,
	}
	rootCmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&f.configPath, "config", "", "path to YAML configuration file")
	rootCmd.Flags().BoolVar(&f.checked, "checked", false, "report int64 overflow as an error")
	rootCmd.Flags().BoolVar(&f.perf, "perf", false, "report hardware performance counters")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fastsum", version)
		},
	})
	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func setup(cmd *cobra.Command, f *flags) error {
	var err error
	cfg, err = config.Load(f.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("checked") {
		cfg.Checked = f.checked
	}
	if cmd.Flags().Changed("perf") {
		cfg.Perf.Enabled = f.perf
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if f.verbose {
		level = zapcore.DebugLevel
	}
	logger, err = newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// newLogger is replaced in tests.
var newLogger = func(level zapcore.Level) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// exitCode maps an error returned by the root command to a process exit
// status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, fastsum.ErrOverflow):
		return 3
	default:
		return 1
	}
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fastsum:", err)
	}
	os.Exit(exitCode(err))
}
