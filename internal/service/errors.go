package service

import (
	"fmt"
	"strings"
)

// SchemaError reports required input columns missing from a raw batch. It is
// fatal for the batch: nothing is processed.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// PrecedingStageError reports a pipeline stage invoked before the stage it
// depends on. This is a programmer error, not a data error.
type PrecedingStageError struct {
	Stage   string // the stage that was invoked
	Missing string // the column the preceding stage should have produced
}

func (e *PrecedingStageError) Error() string {
	return fmt.Sprintf("%s invoked out of order: %s not populated, run the difference engine first", e.Stage, e.Missing)
}
