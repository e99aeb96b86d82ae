package chain

import (
	"context"
	"fmt"

	"cutout/internal/opencv/safe"
)

type ProcessingStep interface {
	Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error)
	Name() string
}

// TimingTracker times each step under its name. Optional.
type TimingTracker interface {
	StartTiming(operation string) context.Context
	EndTiming(ctx context.Context)
}

// ProcessingChain runs steps in order. Each intermediate result is closed as
// soon as the next step has consumed it; the input is never closed.
type ProcessingChain struct {
	steps  []ProcessingStep
	timing TimingTracker
}

func NewProcessingChain(steps []ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: steps,
	}
}

func (pc *ProcessingChain) SetTimingTracker(timing TimingTracker) {
	pc.timing = timing
}

func (pc *ProcessingChain) Execute(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	current := input

	release := func() {
		if current != input {
			current.Close()
		}
	}

	for _, step := range pc.steps {
		select {
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		default:
		}

		var timingCtx context.Context
		if pc.timing != nil {
			timingCtx = pc.timing.StartTiming(step.Name())
		}

		result, err := step.Apply(ctx, current)

		if pc.timing != nil {
			pc.timing.EndTiming(timingCtx)
		}

		if err != nil {
			release()
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}

		release()
		current = result
	}

	if current == input {
		return input.Clone()
	}

	return current, nil
}

func (pc *ProcessingChain) GetStepNames() []string {
	names := make([]string, len(pc.steps))
	for i, step := range pc.steps {
		names[i] = step.Name()
	}
	return names
}
