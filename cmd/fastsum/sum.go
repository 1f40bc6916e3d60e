// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"acln.ro/fastsum"
	"acln.ro/fastsum/internal/input"
)

func runSum(cmd *cobra.Command, args []string) error {
	values, err := readValues(cmd, args)
	if err != nil {
		return err
	}
	logger.Debug("Read values", zap.Int("count", len(values)), zap.Bool("stdin", len(args) == 0))

	var total int64
	if cfg.Checked {
		total, err = fastsum.SumChecked(values)
		if err != nil {
			var oerr *fastsum.OverflowError
			if errors.As(err, &oerr) {
				logger.Debug("Sum overflowed", zap.Int("index", oerr.Index), zap.Int64("partial", oerr.Partial))
			}
			return err
		}
	} else {
		total = fastsum.Sum(values)
	}
	fmt.Fprintln(cmd.OutOrStdout(), total)

	if cfg.Perf.Enabled {
		reportPerf(cmd, values)
	}
	return nil
}

func readValues(cmd *cobra.Command, args []string) ([]int64, error) {
	if len(args) > 0 {
		return input.ParseArgs(args)
	}
	return input.Parse(cmd.InOrStdin())
}

// reportPerf writes a counter report to stderr. Failure to profile is
// logged, not returned: the sum has already been printed.
func reportPerf(cmd *cobra.Command, values []int64) {
	opts := []fastsum.ProfileOption{fastsum.WithCounters(cfg.Perf.Counters...)}
	if cfg.Perf.Kernel {
		opts = append(opts, fastsum.WithKernel())
	}
	r, err := fastsum.Profile(values, opts...)
	if err != nil {
		logger.Warn("Performance counters unavailable", zap.Error(err))
		return
	}
	logger.Debug("Profiled sum",
		zap.Float64("ipc", r.IPC()),
		zap.Float64("cycles_per_element", r.CyclesPerElement()),
		zap.Duration("running", r.Running))
	if _, err := r.WriteTo(cmd.ErrOrStderr()); err != nil {
		logger.Warn("Failed to write perf report", zap.Error(err))
	}
}
