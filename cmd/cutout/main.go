package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/segmentio/ksuid"

	"cutout/internal/codec"
	"cutout/internal/config"
	"cutout/internal/contour"
	"cutout/internal/debug/timing"
	"cutout/internal/fetch"
	"cutout/internal/foreground"
	"cutout/internal/logger"
	"cutout/internal/output"
	"cutout/internal/pipeline"
	"cutout/internal/roles"
	"cutout/internal/shutdown"
	"cutout/internal/vision"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitSetup  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitSetup
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitSetup
	}
	base := logger.New(cfg.Log.Format, level)
	runID := ksuid.New().String()
	log := base.With(map[string]interface{}{"run_id": runID})

	shutdownMgr := shutdown.NewManager(context.Background(), log)
	shutdownMgr.Listen()
	defer shutdownMgr.Shutdown()

	engine, err := vision.Init(vision.Options{Threads: cfg.Foreground.OpenCVThreads, Logger: log})
	if err != nil {
		log.Error("Main", err, map[string]interface{}{"stage": "init"})
		return exitSetup
	}
	shutdownMgr.Register(shutdown.ShutdownFunc(func() {
		stats := engine.MemoryStats()
		log.Debug("Main", "opencv memory", map[string]interface{}{
			"allocations": stats.Allocations,
			"active_mats": stats.ActiveMats,
			"peak_mats":   stats.PeakActiveMats,
		})
	}))

	records, err := roles.Load(cfg.Input.RolesFile)
	if err != nil {
		log.Error("Main", err, map[string]interface{}{"roles_file": cfg.Input.RolesFile})
		return exitSetup
	}

	mode, err := contour.ParseMode(cfg.Foreground.ContourScan)
	if err != nil {
		log.Error("Main", err, nil)
		return exitSetup
	}
	policy, err := pipeline.ParsePolicy(cfg.Run.FailurePolicy)
	if err != nil {
		log.Error("Main", err, nil)
		return exitSetup
	}

	tracker := timing.NewTracker()
	extractor := foreground.New(engine, foreground.Options{
		BlurKernel:    cfg.Foreground.BlurKernel,
		ThresholdSeed: cfg.Foreground.ThresholdSeed,
		Ratio:         cfg.Foreground.SecondaryRatio,
		Mode:          mode,
	}, log, tracker)

	fetcher := fetch.NewClient(fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})

	coordinator := pipeline.NewCoordinator(
		fetcher,
		extractor,
		output.NewWriter(cfg.Output.Dir, cfg.Output.JPEGQuality),
		pipeline.Options{
			Policy: policy,
			Decode: codec.DecodeOptions{MaxDimension: cfg.Foreground.MaxDimension},
			RunID:  runID,
		},
		base,
		tracker,
	)

	log.Info("Main", "starting", map[string]interface{}{
		"roles_file": cfg.Input.RolesFile,
		"output_dir": cfg.Output.Dir,
		"records":    len(records),
		"go_version": runtime.Version(),
	})

	summary, err := coordinator.Run(shutdownMgr.Context(), records)

	for _, s := range summary.Timings {
		log.Debug("Main", "timing", map[string]interface{}{
			"operation":  s.Operation,
			"count":      s.Count,
			"average_ms": s.Average().Milliseconds(),
			"max_ms":     s.Max.Milliseconds(),
		})
	}

	log.Info("Main", "run summary", map[string]interface{}{
		"total":       summary.Total,
		"processed":   summary.Processed,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
		"duration_ms": summary.Duration.Milliseconds(),
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warning("Main", "run interrupted", nil)
		}
		return exitFailed
	}
	if !summary.OK() {
		return exitFailed
	}
	return exitOK
}
