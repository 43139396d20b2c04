package onramp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/onrampd/onramp/internal/compiler"
	"github.com/onrampd/onramp/internal/loader"
	"github.com/onrampd/onramp/internal/logging"
	"github.com/onrampd/onramp/internal/runtime"
	"github.com/onrampd/onramp/pkg/adapters/memory"
	"github.com/onrampd/onramp/pkg/domain"
	"github.com/onrampd/onramp/pkg/observability"
	"github.com/onrampd/onramp/pkg/ports"
	"github.com/onrampd/onramp/pkg/session"
)

// Engine is the high-level entry point: it loads definitions once at
// construction, compiles processes on first selection (cached thereafter),
// and serializes all session mutations per subject.
type Engine struct {
	bundle   *loader.Bundle
	sessions *session.Manager
	store    ports.StateStore
	locker   ports.DistributedLocker
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.RWMutex
	compiled map[string]*runtime.Engine // keyed by process id
	selected map[domain.SubjectProfile]string
}

// Option configures the Engine.
type Option func(*Engine)

// WithStore injects a state store. Defaults to in-memory.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed per-subject locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLogger sets the structured logger.
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

// New loads every definition under definitionsDir and returns a ready
// Engine. Malformed documents are skipped with warnings; an unreadable
// directory is fatal.
func New(definitionsDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   logging.NewNop(),
		compiled: make(map[string]*runtime.Engine),
		selected: make(map[domain.SubjectProfile]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	bundle, err := loader.New(definitionsDir, loader.WithLogger(e.logger)).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}
	e.bundle = bundle

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	return e, nil
}

// Processes returns the loaded process definitions.
func (e *Engine) Processes() []domain.ProcessDefinition {
	return e.bundle.Processes
}

// Sessions exposes the session manager, for collaborators that need
// store-level operations (explicit reset).
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Select returns the compiled process for a subject profile: filter by
// applicability, highest version wins. Compilation happens on the first
// selection for a profile and is cached; compiled processes are read-only
// and shared across sessions.
func (e *Engine) Select(profile domain.SubjectProfile) (*domain.CompiledProcess, error) {
	eng, err := e.engineFor(profile)
	if err != nil {
		return nil, err
	}
	return eng.Process(), nil
}

func (e *Engine) engineFor(profile domain.SubjectProfile) (*runtime.Engine, error) {
	e.mu.RLock()
	if id, ok := e.selected[profile]; ok {
		eng := e.compiled[id]
		e.mu.RUnlock()
		return eng, nil
	}
	e.mu.RUnlock()

	def, err := loader.PickApplicableProcess(e.bundle.Processes, profile)
	if err != nil {
		return nil, err
	}

	eng, err := e.compile(def)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.selected[profile] = def.ID
	e.mu.Unlock()
	return eng, nil
}

// engineForProcess resolves the runtime engine for a session's recorded
// process id, compiling on demand after a restart. An id that no longer
// matches any loaded definition means the persisted session is stale.
func (e *Engine) engineForProcess(state *domain.ExecutionState) (*runtime.Engine, error) {
	e.mu.RLock()
	eng, ok := e.compiled[state.ProcessID]
	e.mu.RUnlock()
	if ok {
		return eng, nil
	}

	var best *domain.ProcessDefinition
	for i := range e.bundle.Processes {
		def := &e.bundle.Processes[i]
		if def.ID != state.ProcessID {
			continue
		}
		if best == nil || def.Version > best.Version {
			best = def
		}
	}
	if best == nil {
		return nil, &domain.InvalidSessionStateError{
			SubjectID: state.SubjectID,
			ProcessID: state.ProcessID,
			StepID:    state.CurrentStepID,
		}
	}
	return e.compile(best)
}

func (e *Engine) compile(def *domain.ProcessDefinition) (*runtime.Engine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if eng, ok := e.compiled[def.ID]; ok {
		return eng, nil
	}

	process, warnings, err := compiler.Compile(def, e.bundle.Tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to compile process %s: %w", def.ID, err)
	}
	for _, w := range warnings {
		e.logger.Warn("compile warning", "process", def.ID, "warning", w)
	}
	e.metrics.ObserveCompile()

	eng := runtime.NewEngine(process,
		runtime.WithLogger(e.logger),
		runtime.WithMetrics(e.metrics))
	e.compiled[def.ID] = eng
	return eng, nil
}

// SessionView is a session snapshot plus derived progress.
type SessionView struct {
	State    *domain.ExecutionState `json:"state"`
	Progress runtime.Progress       `json:"progress"`
}

// ApplyResult reports the outcome of one Apply call.
type ApplyResult struct {
	State    *domain.ExecutionState `json:"state"`
	Progress runtime.Progress       `json:"progress"`

	// Advance is nil when no advance was requested.
	Advance *runtime.AdvanceResult `json:"advance,omitempty"`
}

// StartSession initializes a session for a subject against the process
// selected for its profile. An empty subject id gets a generated one.
// Starting an already-started session returns the existing state
// untouched; collected inputs are never reset.
func (e *Engine) StartSession(ctx context.Context, subjectID string, profile domain.SubjectProfile) (*SessionView, error) {
	eng, err := e.engineFor(profile)
	if err != nil {
		return nil, err
	}

	if subjectID == "" {
		subjectID = uuid.NewString()
	}

	process := eng.Process()
	state, err := e.sessions.Initialize(ctx, subjectID, process.ProcessID, process.InitialStepID)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveSessionStart()

	return &SessionView{State: state, Progress: eng.Progress(state)}, nil
}

// Session returns the current state and progress for a subject.
func (e *Engine) Session(ctx context.Context, subjectID string) (*SessionView, error) {
	state, err := e.sessions.Load(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	eng, err := e.engineForProcess(state)
	if err != nil {
		return nil, err
	}
	return &SessionView{State: state, Progress: eng.Progress(state)}, nil
}

// Apply merges an input patch into a session and, when advance is set,
// attempts to move it forward. The whole read-modify-write cycle runs
// under the subject's lock and is persisted once. A blocked advance still
// persists the patch and reports the missing fields.
func (e *Engine) Apply(ctx context.Context, subjectID string, patch map[string]domain.Value, advance bool) (*ApplyResult, error) {
	var result ApplyResult
	state, err := e.sessions.Update(ctx, subjectID, func(state *domain.ExecutionState) error {
		eng, err := e.engineForProcess(state)
		if err != nil {
			return err
		}

		if len(patch) > 0 {
			eng.UpdateInputs(state, patch)
		}
		if advance {
			advanceResult, err := eng.Advance(state)
			if err != nil {
				return err
			}
			result.Advance = advanceResult
		}
		result.Progress = eng.Progress(state)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.State = state
	return &result, nil
}

// Reset deletes a subject's session. Explicit collaborator-level
// operation; the engine itself never deletes state.
func (e *Engine) Reset(ctx context.Context, subjectID string) error {
	return e.sessions.Delete(ctx, subjectID)
}
