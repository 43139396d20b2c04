package domain

import "time"

// ExecutionState is the per-subject mutable record of an onboarding
// session: where the subject is in the process and what has been collected
// so far. One durable record exists per subject id.
type ExecutionState struct {
	SubjectID     string `json:"subject_id"`
	ProcessID     string `json:"process_id"`
	CurrentStepID string `json:"current_step_id"`

	// Inputs holds collected field values, keyed by field name.
	Inputs map[string]Value `json:"inputs"`

	// CompletedSteps is a set of completed step ids; insertion order is
	// irrelevant and deduplicated on write.
	CompletedSteps []string `json:"completed_steps"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewExecutionState creates a fresh session positioned at the initial step
// with empty-but-present collections.
func NewExecutionState(subjectID, processID, initialStepID string) *ExecutionState {
	return &ExecutionState{
		SubjectID:      subjectID,
		ProcessID:      processID,
		CurrentStepID:  initialStepID,
		Inputs:         make(map[string]Value),
		CompletedSteps: []string{},
		UpdatedAt:      time.Now().UTC(),
	}
}

// MergeInputs shallow-merges patch into the collected inputs. Values are
// never validated on write; validation is deferred to Advance.
func (s *ExecutionState) MergeInputs(patch map[string]Value) {
	if s.Inputs == nil {
		s.Inputs = make(map[string]Value, len(patch))
	}
	for k, v := range patch {
		s.Inputs[k] = v
	}
}

// Completed reports whether the step id has been marked completed.
func (s *ExecutionState) Completed(stepID string) bool {
	for _, id := range s.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// MarkCompleted adds a step id to the completed set.
func (s *ExecutionState) MarkCompleted(stepID string) {
	if s.Completed(stepID) {
		return
	}
	s.CompletedSteps = append(s.CompletedSteps, stepID)
}

// Terminated reports whether the session has reached the terminal sentinel.
func (s *ExecutionState) Terminated() bool {
	return s.CurrentStepID == StepEnd
}

// Clone returns a copy with deep-copied collections, so callers can mutate
// the copy without aliasing store-held state.
func (s *ExecutionState) Clone() *ExecutionState {
	if s == nil {
		return nil
	}
	next := *s
	next.Inputs = make(map[string]Value, len(s.Inputs))
	for k, v := range s.Inputs {
		next.Inputs[k] = v
	}
	next.CompletedSteps = make([]string, len(s.CompletedSteps))
	copy(next.CompletedSteps, s.CompletedSteps)
	return &next
}
