// Package pipeline drives role records through fetch, decode, extract and
// write, strictly one record at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"cutout/internal/codec"
	"cutout/internal/debug/timing"
	"cutout/internal/foreground"
	"cutout/internal/logger"
	"cutout/internal/roles"
)

// Policy decides what a failed record does to the rest of the run.
type Policy int

const (
	// PolicyAbort stops the run at the first failed record.
	PolicyAbort Policy = iota
	// PolicyContinue logs the failure and moves on.
	PolicyContinue
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return PolicyAbort, nil
	case "continue":
		return PolicyContinue, nil
	default:
		return PolicyAbort, fmt.Errorf("unknown failure policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyContinue {
		return "continue"
	}
	return "abort"
}

type Options struct {
	Policy Policy
	Decode codec.DecodeOptions
	// RunID tags every log line; generated when empty.
	RunID string
}

type Coordinator struct {
	fetcher   Fetcher
	extractor Extractor
	writer    Writer
	opts      Options
	logger    logger.Logger
	timing    *timing.Tracker
}

// NewCoordinator wires the stages. tracker may be nil, in which case stage
// timings are collected privately for the Summary.
func NewCoordinator(fetcher Fetcher, extractor Extractor, writer Writer, opts Options, log logger.Logger, tracker *timing.Tracker) *Coordinator {
	if log == nil {
		log = logger.NoOp{}
	}
	if tracker == nil {
		tracker = timing.NewTracker()
	}
	if opts.RunID == "" {
		opts.RunID = ksuid.New().String()
	}

	return &Coordinator{
		fetcher:   fetcher,
		extractor: extractor,
		writer:    writer,
		opts:      opts,
		logger:    log,
		timing:    tracker,
	}
}

func (c *Coordinator) RunID() string {
	return c.opts.RunID
}

// Run processes records in order. Under PolicyAbort the first RecordError is
// returned; under PolicyContinue failures are only collected in the Summary.
// Cancellation of ctx stops the run before the next record and returns the
// context error.
func (c *Coordinator) Run(ctx context.Context, records []roles.Record) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: c.opts.RunID, Total: len(records)}

	finish := func() {
		summary.Duration = time.Since(start)
		summary.Timings = c.timing.Summaries()
	}
	defer finish()

	c.logger.Info("Pipeline", "run started", map[string]interface{}{
		"run_id":  c.opts.RunID,
		"records": len(records),
		"policy":  c.opts.Policy.String(),
	})

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			summary.Skipped = len(records) - i
			c.logger.Warning("Pipeline", "run interrupted", map[string]interface{}{
				"run_id":  c.opts.RunID,
				"skipped": summary.Skipped,
			})
			return summary, err
		}

		recordStart := time.Now()
		err := c.processRecord(ctx, i, record)
		if err == nil {
			summary.Processed++
			c.logger.Info("Pipeline", "record processed", c.recordFields(i, record, map[string]interface{}{
				"duration_ms": time.Since(recordStart).Milliseconds(),
			}))
			continue
		}

		var recordErr *RecordError
		if !errors.As(err, &recordErr) {
			recordErr = &RecordError{Index: i, Name: record.Name, Err: err}
		}
		summary.Failed++
		summary.Errors = append(summary.Errors, recordErr)
		c.logger.Error("Pipeline", err, c.recordFields(i, record, map[string]interface{}{
			"stage": string(recordErr.Stage),
		}))

		if c.opts.Policy == PolicyAbort {
			summary.Skipped = len(records) - i - 1
			return summary, recordErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			summary.Skipped = len(records) - i - 1
			return summary, ctxErr
		}
	}

	c.logger.Info("Pipeline", "run finished", map[string]interface{}{
		"run_id":    c.opts.RunID,
		"processed": summary.Processed,
		"failed":    summary.Failed,
	})

	return summary, nil
}

func (c *Coordinator) processRecord(ctx context.Context, index int, record roles.Record) error {
	fail := func(stage Stage, err error) error {
		return &RecordError{Index: index, Name: record.Name, Stage: stage, Err: err}
	}

	var data []byte
	err := c.timed(StageFetch, func() error {
		var err error
		data, err = c.fetcher.Fetch(ctx, record.ImageURL)
		return err
	})
	if err != nil {
		return fail(StageFetch, err)
	}

	var decoded *codec.Decoded
	err = c.timed(StageDecode, func() error {
		var err error
		decoded, err = codec.Decode(data, c.opts.Decode)
		return err
	})
	if err != nil {
		return fail(StageDecode, err)
	}

	c.logger.Debug("Pipeline", "image decoded", c.recordFields(index, record, map[string]interface{}{
		"format":     decoded.Format,
		"width":      decoded.Image.Bounds().Dx(),
		"height":     decoded.Image.Bounds().Dy(),
		"downscaled": decoded.Downscaled,
	}))

	// The origin is persisted before extraction so it survives a record
	// with no usable foreground.
	err = c.timed(StageWrite, func() error {
		_, err := c.writer.WriteOrigin(record.Name, decoded.Image)
		return err
	})
	if err != nil {
		return fail(StageWrite, err)
	}

	var result *foreground.Result
	err = c.timed(StageExtract, func() error {
		r, err := c.extractor.Extract(ctx, decoded.Image)
		result = r
		return err
	})
	if err != nil {
		return fail(StageExtract, err)
	}

	c.logger.Debug("Pipeline", "foreground extracted", c.recordFields(index, record, map[string]interface{}{
		"threshold": result.Threshold,
		"contours":  result.ContourCount,
		"selected":  len(result.Selected),
	}))

	err = c.timed(StageWrite, func() error {
		_, err := c.writer.WriteCrop(record.Name, result.Crop)
		return err
	})
	if err != nil {
		return fail(StageWrite, err)
	}

	return nil
}

func (c *Coordinator) timed(stage Stage, fn func() error) error {
	timingCtx := c.timing.StartTiming("stage." + string(stage))
	defer c.timing.EndTiming(timingCtx)
	return fn()
}

func (c *Coordinator) recordFields(index int, record roles.Record, extra map[string]interface{}) map[string]interface{} {
	fields := map[string]interface{}{
		"run_id": c.opts.RunID,
		"index":  index,
		"name":   record.Name,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}
