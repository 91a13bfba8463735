// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/drainage/engine"
	"github.com/katalvlaran/drainage/halo"
)

var (
	stepsFlag      int
	partitionsFlag int
	noProgress     bool
)

// runCmd advances the synthetic landscape for run.steps steps.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation",
	Long: `Builds the configured grid and initial surface, partitions it into
run.partitions ranks and advances every rank through run.steps steps:
  1. Fill: priority-flood depression filling on the coordinator
  2. Route: up to forcing.fanout receivers per node on both surfaces
  3. Discharge: distributed iterative solve of (I - W)^T Q = rain * area
  4. Erosion: implicit stream-power solve, then commit`,
	RunE: runSimulation,
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("steps") {
		cfg.Run.Steps = stepsFlag
	}
	if cmd.Flags().Changed("partitions") {
		cfg.Run.Partitions = partitionsFlag
	}
	opts, err := cfg.EngineOptions(nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	m, z, err := buildTerrain(cfg)
	if err != nil {
		return err
	}
	w, err := halo.NewWorld(m, cfg.Run.Partitions, z)
	if err != nil {
		return err
	}
	engines := make([]*engine.Engine, w.Size())
	for r := range engines {
		rankOpts := append(append([]engine.Option(nil), opts...), engine.WithLogger(logger.With(zap.Int("rank", r))))
		if engines[r], err = engine.New(w.Rank(r), cfg.UniformForcing(), rankOpts...); err != nil {
			return err
		}
	}

	lo, hi := relief(z)
	logger.Info("simulation starting",
		zap.Int("nodes", m.Len()),
		zap.Int("edges", m.Edges()),
		zap.Int("partitions", w.Size()),
		zap.Int("steps", cfg.Run.Steps),
		zap.Float64("min_elevation", lo),
		zap.Float64("max_elevation", hi))

	var bar *uiprogress.Bar
	if !noProgress && cfg.Run.Steps > 0 {
		uiprogress.Start()
		defer uiprogress.Stop()
		bar = uiprogress.AddBar(cfg.Run.Steps).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("step %d/%d", b.Current(), cfg.Run.Steps)
		})
	}

	start := time.Now()
	var (
		last    *engine.StepResult
		total   int
		eroded  float64
		outflow float64
	)
	for s := 0; s < cfg.Run.Steps; s++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled after %d steps: %w", s, err)
		}
		err := w.Run(ctx, func(_ context.Context, r *halo.Rank) error {
			res, err := engines[r.ID()].Step(nil)
			if err != nil {
				return err
			}
			if r.Coordinator() {
				last = res
			}

			return nil
		})
		if err != nil {
			return err
		}
		total += last.Iterations.Total()
		eroded += last.ErodedVolume
		outflow += last.Outflow
		if bar != nil {
			bar.Incr()
		}
	}

	lo, hi = relief(w.Elevation())
	logger.Info("simulation complete",
		zap.Int("steps", engines[0].Steps()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("iterations", total),
		zap.Float64("eroded_volume", eroded),
		zap.Float64("outflow", outflow),
		zap.Int("pits", len(engines[0].LastPitTable())),
		zap.Float64("min_elevation", lo),
		zap.Float64("max_elevation", hi))

	return nil
}
