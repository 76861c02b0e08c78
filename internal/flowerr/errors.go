// Package flowerr defines the error taxonomy of the workflow executor.
//
// Every concrete error type unwraps to a sentinel so callers can branch with
// errors.Is, and to its cause where one exists so errors.As reaches the
// original failure.
package flowerr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for programmatic checks via errors.Is.
var (
	// ErrStructural is the parent of every graph-shape violation.
	ErrStructural = errors.New("structural error")

	ErrDuplicateNode = errors.New("duplicate node id")
	ErrUnknownNode   = errors.New("unknown node")
	ErrCycle         = errors.New("cycle detected")
	ErrIsolatedNode  = errors.New("isolated node")
	ErrInvalidNode   = errors.New("invalid node")

	ErrValidation = errors.New("input validation failed")
	ErrTimeout    = errors.New("node timed out")
)

// StructuralError is a graph-shape violation. Kind is one of the structural
// sentinels above. Structural errors are never offered to error handlers.
type StructuralError struct {
	Kind   error
	NodeID string
	Path   []string
	Err    error
}

func (e *StructuralError) Error() string {
	kind := ErrStructural
	if e.Kind != nil {
		kind = e.Kind
	}

	var b strings.Builder
	b.WriteString(ErrStructural.Error())
	b.WriteString(": ")
	b.WriteString(kind.Error())
	if e.NodeID != "" {
		fmt.Fprintf(&b, " %q", e.NodeID)
	}
	if len(e.Path) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(append(append([]string{}, e.Path...), e.Path[0]), " -> "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the generic structural sentinel, the specific kind and the
// cause, when present.
func (e *StructuralError) Unwrap() []error {
	errs := []error{ErrStructural}
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ValidationError reports that a node's input did not satisfy its schema.
type ValidationError struct {
	NodeID string
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("node %q: %s", e.NodeID, ErrValidation)
	}
	return fmt.Sprintf("node %q: %s: %s", e.NodeID, ErrValidation, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TimeoutError reports that a node's work did not settle within its timeout.
type TimeoutError struct {
	NodeID  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("node %q: %s after %s", e.NodeID, ErrTimeout, e.Timeout)
}

// Unwrap lets callers match either ErrTimeout or context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() []error {
	return []error{ErrTimeout, context.DeadlineExceeded}
}

// NodeError is a failure that a node's own error handling chose not to
// resolve. It carries the node id and the original cause.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// WorkflowError is the outermost wrapping surfaced to the caller of a run
// whenever no handler resolved the failure.
type WorkflowError struct {
	RunID string
	Err   error
}

func (e *WorkflowError) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("workflow failed: %v", e.Err)
	}
	return fmt.Sprintf("workflow run %s failed: %v", e.RunID, e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// IsStructural reports whether err is, or wraps, a structural error.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}

// NodeID returns the id of the innermost node-scoped error in err's chain, or
// an empty string when none is present.
func NodeID(err error) string {
	var id string
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		id = nodeErr.NodeID
	}
	var timeoutErr *TimeoutError
	if id == "" && errors.As(err, &timeoutErr) {
		id = timeoutErr.NodeID
	}
	var validationErr *ValidationError
	if id == "" && errors.As(err, &validationErr) {
		id = validationErr.NodeID
	}
	return id
}
