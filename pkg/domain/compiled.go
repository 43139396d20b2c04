package domain

// CompiledProcess is the fully resolved, executable form of a process
// definition: task references replaced by inheritance-merged schemas,
// condition expressions parsed, transition targets validated.
//
// A CompiledProcess is read-only after construction and safe to share
// across concurrent sessions without locking. No component may mutate one.
type CompiledProcess struct {
	ProcessID     string  `json:"process_id"`
	Version       int     `json:"version"`
	InitialStepID string  `json:"initial_step_id"`
	Stages        []Stage `json:"stages"`

	// StepIndex maps step id to position in Steps for O(1) lookup.
	StepIndex map[string]int `json:"step_index"`

	Steps []CompiledStep `json:"steps"`
}

// Step returns the compiled step with the given id.
func (p *CompiledProcess) Step(id string) (*CompiledStep, bool) {
	i, ok := p.StepIndex[id]
	if !ok {
		return nil, false
	}
	return &p.Steps[i], true
}

// StageOf returns the stage id of a step, or "" if the step declares none
// or does not exist.
func (p *CompiledProcess) StageOf(stepID string) string {
	step, ok := p.Step(stepID)
	if !ok {
		return ""
	}
	return step.Stage
}

// CompiledStep is a step with its task schema merged in and its transition
// rule parsed.
type CompiledStep struct {
	ID    string `json:"id"`
	Stage string `json:"stage,omitempty"`

	// TaskID and ComponentID identify the resolved task and the renderer a
	// presentation collaborator should use.
	TaskID      string `json:"task_id"`
	ComponentID string `json:"component_id"`

	// RequiredFields is the inheritance-merged union of required field
	// names for this step.
	RequiredFields []string `json:"required_fields"`

	// Fields is the inheritance-merged, ordered field schema.
	Fields []FieldSpec `json:"fields"`

	// Conditions in declaration order; first match wins.
	Conditions []CompiledCondition `json:"conditions,omitempty"`

	// Default is the target when no condition matches: a step id or StepEnd.
	Default string `json:"default"`
}

// CompiledCondition is a conditional transition with its predicate parsed.
type CompiledCondition struct {
	// Raw is the source expression, kept for logging and for collaborators.
	Raw string `json:"when"`

	// When is the parsed predicate. Nil when Raw failed the grammar; a nil
	// predicate never matches.
	When *Comparison `json:"-"`

	Then string `json:"then"`
}
