package harness

import (
	"errors"
	"strings"
	"time"
)

// Outcome is the verdict of one step.
type Outcome int

const (
	Pass Outcome = iota
	Fail
	Skip
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Skip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// skipPrefix marks an error message as an unmet precondition.
const skipPrefix = "SKIP:"

// SkipError reports that a step could not run because a precondition of the
// deployment was not met, e.g. no active embedding endpoint exists.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return skipPrefix + " " + e.Reason
}

// SkipStep returns an error that marks the current step as skipped.
func SkipStep(reason string) error {
	return &SkipError{Reason: reason}
}

// skipReason reports whether err marks a skip. Errors whose message starts
// with "SKIP:" are treated as skips too.
func skipReason(err error) (string, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip.Reason, true
	}
	if msg := err.Error(); strings.HasPrefix(msg, skipPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(msg, skipPrefix)), true
	}
	return "", false
}

// Result is the recorded outcome of one step.
type Result struct {
	Name    string
	Outcome Outcome
	Elapsed time.Duration
	Message string
}
