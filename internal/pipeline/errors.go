package pipeline

import (
	"fmt"
)

// Stage names a step of per-record processing.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageDecode  Stage = "decode"
	StageExtract Stage = "extract"
	StageWrite   Stage = "write"
)

// RecordError ties a failure to the record and stage it happened in.
type RecordError struct {
	Index int
	Name  string
	Stage Stage
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %s: %v", e.Index, e.Name, e.Stage, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
