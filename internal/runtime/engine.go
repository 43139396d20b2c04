// Package runtime is the execution engine: given a compiled process, a
// session's current step, and its collected inputs, it computes the next
// step, enforces field-completeness gates, and reports progress.
//
// The engine mutates only the ExecutionState it is handed; persistence and
// per-subject serialization are the session manager's concern.
package runtime

import (
	"errors"
	"log/slog"
	"time"

	"github.com/onrampd/onramp/internal/logging"
	"github.com/onrampd/onramp/pkg/domain"
	"github.com/onrampd/onramp/pkg/expr"
	"github.com/onrampd/onramp/pkg/observability"
)

// ErrSessionTerminated is returned when advancing a session that already
// reached the terminal sentinel.
var ErrSessionTerminated = errors.New("session already terminated")

// Engine drives execution over one compiled process. The compiled process
// is read-only, so a single Engine is safe to share across sessions.
type Engine struct {
	process *domain.CompiledProcess
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// NewEngine creates an engine for one compiled process.
func NewEngine(process *domain.CompiledProcess, opts ...Option) *Engine {
	e := &Engine{
		process: process,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process returns the compiled process this engine runs.
func (e *Engine) Process() *domain.CompiledProcess {
	return e.process
}

// MissingRequiredFields returns every required field of the step whose
// value is absent, null, or an empty string. Pure; no side effects.
func (e *Engine) MissingRequiredFields(stepID string, inputs map[string]domain.Value) ([]string, error) {
	step, ok := e.process.Step(stepID)
	if !ok {
		return nil, &domain.InvalidSessionStateError{ProcessID: e.process.ProcessID, StepID: stepID}
	}
	return missingFields(step, inputs), nil
}

func missingFields(step *domain.CompiledStep, inputs map[string]domain.Value) []string {
	var missing []string
	for _, name := range step.RequiredFields {
		v, ok := inputs[name]
		if !ok || v.IsEmpty() {
			missing = append(missing, name)
		}
	}
	return missing
}

// ComputeNextStep evaluates the step's conditions in declaration order and
// returns the target of the first that holds, or the default. First-match-
// wins: reordering conditions changes behavior.
func (e *Engine) ComputeNextStep(stepID string, inputs map[string]domain.Value) (string, error) {
	step, ok := e.process.Step(stepID)
	if !ok {
		return "", &domain.InvalidSessionStateError{ProcessID: e.process.ProcessID, StepID: stepID}
	}
	return e.nextStep(step, inputs), nil
}

func (e *Engine) nextStep(step *domain.CompiledStep, inputs map[string]domain.Value) string {
	for _, cond := range step.Conditions {
		if cond.When == nil {
			e.logger.Warn("skipping malformed condition", "step", step.ID, "when", cond.Raw)
			continue
		}
		if expr.Evaluate(cond.When, inputs) {
			e.logger.Debug("condition matched", "step", step.ID, "when", cond.Raw, "then", cond.Then)
			return cond.Then
		}
	}
	return step.Default
}

// UpdateInputs shallow-merges patch into the session's collected inputs.
// Never validates on write; validation is deferred to Advance.
func (e *Engine) UpdateInputs(state *domain.ExecutionState, patch map[string]domain.Value) {
	state.MergeInputs(patch)
	state.UpdatedAt = time.Now().UTC()
}

// AdvanceResult reports the outcome of one Advance call.
type AdvanceResult struct {
	// OK is false when the advance was blocked by missing required fields.
	OK bool `json:"ok"`

	// StepID is the new current step on success, or the unchanged current
	// step on a blocked advance.
	StepID string `json:"step_id"`

	MissingFields []string `json:"missing_fields,omitempty"`
}

// Advance attempts to move the session forward one transition. It refuses
// while required fields are missing; on success it marks the current step
// completed and repositions the session. Advance mutates state in place;
// the caller persists it.
func (e *Engine) Advance(state *domain.ExecutionState) (*AdvanceResult, error) {
	if state.ProcessID != "" && state.ProcessID != e.process.ProcessID {
		return nil, &domain.InvalidSessionStateError{
			SubjectID: state.SubjectID,
			ProcessID: state.ProcessID,
			StepID:    state.CurrentStepID,
		}
	}
	if state.Terminated() {
		return nil, ErrSessionTerminated
	}

	step, ok := e.process.Step(state.CurrentStepID)
	if !ok {
		return nil, &domain.InvalidSessionStateError{
			SubjectID: state.SubjectID,
			ProcessID: e.process.ProcessID,
			StepID:    state.CurrentStepID,
		}
	}

	if missing := missingFields(step, state.Inputs); len(missing) > 0 {
		e.metrics.ObserveTransition(e.process.ProcessID, true)
		return &AdvanceResult{OK: false, StepID: step.ID, MissingFields: missing}, nil
	}

	next := e.nextStep(step, state.Inputs)
	state.MarkCompleted(step.ID)
	state.CurrentStepID = next
	state.UpdatedAt = time.Now().UTC()

	e.metrics.ObserveTransition(e.process.ProcessID, false)
	e.logger.Info("session advanced",
		"subject", state.SubjectID,
		"process", e.process.ProcessID,
		"from", step.ID,
		"to", next)

	return &AdvanceResult{OK: true, StepID: next}, nil
}

// Progress summarizes how far a session has come. Derived on demand, never
// stored.
type Progress struct {
	CurrentStage   string `json:"current_stage,omitempty"`
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`
	Terminated     bool   `json:"terminated"`
}

// Progress reports the session's position within the compiled process.
func (e *Engine) Progress(state *domain.ExecutionState) Progress {
	return Progress{
		CurrentStage:   e.process.StageOf(state.CurrentStepID),
		CompletedSteps: len(state.CompletedSteps),
		TotalSteps:     len(e.process.Steps),
		Terminated:     state.Terminated(),
	}
}
