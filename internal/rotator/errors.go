package rotator

import (
	"fmt"
	"strings"
)

// Phase names the part of a run that failed.
type Phase string

const (
	PhaseList     Phase = "list"
	PhaseSnapshot Phase = "snapshot"
	PhaseRotate   Phase = "rotate"
)

// Failure is one failed phase of one server. Server is empty for PhaseList.
type Failure struct {
	Server string
	Phase  Phase
	Err    error
}

// RunError reports every failure of a run. Servers without failures were
// processed completely.
type RunError struct {
	Failures []Failure
}

func (e *RunError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Server == "" {
			parts = append(parts, fmt.Sprintf("%s: %v", f.Phase, f.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s: %v", f.Server, f.Phase, f.Err))
	}
	return fmt.Sprintf("%d failure(s): %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
