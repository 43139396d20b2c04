package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a subject id has no persisted session.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoApplicableProcess is returned by selection when no loaded process
// matches the subject profile. Fallback behavior is the caller's decision.
var ErrNoApplicableProcess = errors.New("no applicable process")

// DefinitionError reports a document that failed to parse or failed
// minimal-shape validation. The loader skips such documents with a warning;
// the batch continues.
type DefinitionError struct {
	Doc    string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("definition %s: %s", e.Doc, e.Reason)
}

// UnresolvedReferenceError reports a task reference or transition target
// that does not resolve. The owning process is rejected whole, never
// partially compiled.
type UnresolvedReferenceError struct {
	ProcessID string
	Kind      string // "task" or "step"
	Ref       string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("process %s: unresolved %s reference %q", e.ProcessID, e.Kind, e.Ref)
}

// CircularInheritanceError reports a cycle in a task extends chain,
// including self-reference. Named ids are in walk order.
type CircularInheritanceError struct {
	Cycle []string
}

func (e *CircularInheritanceError) Error() string {
	return fmt.Sprintf("circular task inheritance: %s", strings.Join(e.Cycle, " -> "))
}

// DuplicateStepError reports two steps sharing an id within one process.
type DuplicateStepError struct {
	ProcessID string
	StepID    string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("process %s: duplicate step id %q", e.ProcessID, e.StepID)
}

// InvalidSessionStateError reports a session whose recorded step id is not
// present in the compiled process. Fatal; never auto-repaired by guessing.
type InvalidSessionStateError struct {
	SubjectID string
	ProcessID string
	StepID    string
}

func (e *InvalidSessionStateError) Error() string {
	return fmt.Sprintf("subject %s: step %q not found in process %s; session state is stale or mismatched",
		e.SubjectID, e.StepID, e.ProcessID)
}
