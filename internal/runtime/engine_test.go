package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onrampd/onramp/internal/compiler"
	"github.com/onrampd/onramp/pkg/domain"
)

type staticResolver map[string]domain.TaskDefinition

func (r staticResolver) Resolve(ref string) (*domain.TaskDefinition, error) {
	task, ok := r[ref]
	if !ok {
		return nil, &domain.UnresolvedReferenceError{Kind: "task", Ref: ref}
	}
	return &task, nil
}

// riskProcess compiles a three-step flow: intake branches on risk_score
// (>70 to review, otherwise straight to approval), both of which end the
// process.
func riskProcess(t *testing.T) *domain.CompiledProcess {
	t.Helper()

	def := &domain.ProcessDefinition{
		ID:      "risk_flow",
		Version: 1,
		Stages: []domain.Stage{
			{ID: "collect", Name: "Collect", Order: 1},
			{ID: "decide", Name: "Decide", Order: 2},
		},
		Steps: []domain.Step{
			{
				ID:      "intake",
				Stage:   "collect",
				TaskRef: "intake_form",
				Next: domain.TransitionRule{
					Conditions: []domain.ConditionalTransition{
						{When: "risk_score > 70", Then: "review"},
					},
					Default: "approval",
				},
			},
			{
				ID:      "review",
				Stage:   "decide",
				TaskRef: "review_form",
				Next:    domain.TransitionRule{Default: domain.StepEnd},
			},
			{
				ID:      "approval",
				Stage:   "decide",
				TaskRef: "approval_form",
				Next:    domain.TransitionRule{Default: domain.StepEnd},
			},
		},
	}

	tasks := staticResolver{
		"intake_form":   {ID: "intake_form", ComponentID: "form", RequiredFields: []string{"full_name", "risk_score"}},
		"review_form":   {ID: "review_form", ComponentID: "panel", RequiredFields: []string{"review_note"}},
		"approval_form": {ID: "approval_form", ComponentID: "panel"},
	}

	compiled, warnings, err := compiler.Compile(def, tasks)
	require.NoError(t, err)
	require.Empty(t, warnings)
	return compiled
}

func TestComputeNextStepFirstMatchWins(t *testing.T) {
	def := &domain.ProcessDefinition{
		ID: "p",
		Steps: []domain.Step{
			{
				ID:      "s",
				TaskRef: "t",
				Next: domain.TransitionRule{
					Conditions: []domain.ConditionalTransition{
						{When: "score > 10", Then: "first"},
						{When: "score > 5", Then: "second"},
					},
					Default: domain.StepEnd,
				},
			},
			{ID: "first", TaskRef: "t", Next: domain.TransitionRule{Default: domain.StepEnd}},
			{ID: "second", TaskRef: "t", Next: domain.TransitionRule{Default: domain.StepEnd}},
		},
	}
	compiled, _, err := compiler.Compile(def, staticResolver{"t": {ID: "t"}})
	require.NoError(t, err)
	engine := NewEngine(compiled)

	// both conditions hold; declaration order decides
	next, err := engine.ComputeNextStep("s", map[string]domain.Value{"score": domain.Number(20)})
	require.NoError(t, err)
	assert.Equal(t, "first", next)

	next, err = engine.ComputeNextStep("s", map[string]domain.Value{"score": domain.Number(7)})
	require.NoError(t, err)
	assert.Equal(t, "second", next)

	next, err = engine.ComputeNextStep("s", map[string]domain.Value{"score": domain.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.StepEnd, next)
}

func TestComputeNextStepIsDeterministic(t *testing.T) {
	engine := NewEngine(riskProcess(t))
	inputs := map[string]domain.Value{"risk_score": domain.Number(80)}

	for i := 0; i < 50; i++ {
		next, err := engine.ComputeNextStep("intake", inputs)
		require.NoError(t, err)
		require.Equal(t, "review", next)
	}
}

func TestComputeNextStepUnknownStep(t *testing.T) {
	engine := NewEngine(riskProcess(t))

	var invalid *domain.InvalidSessionStateError
	_, err := engine.ComputeNextStep("ghost", nil)
	assert.ErrorAs(t, err, &invalid)
}

func TestMissingRequiredFields(t *testing.T) {
	engine := NewEngine(riskProcess(t))

	missing, err := engine.MissingRequiredFields("intake", map[string]domain.Value{
		"full_name": domain.String("Ada Lovelace"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"risk_score"}, missing)

	missing, err = engine.MissingRequiredFields("intake", map[string]domain.Value{
		"full_name":  domain.String(""),
		"risk_score": domain.Number(0),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name"}, missing, "empty string counts as missing, zero number does not")
}

func TestAdvanceBlockedThenSucceeds(t *testing.T) {
	engine := NewEngine(riskProcess(t))
	state := domain.NewExecutionState("subj-1", "risk_flow", "intake")

	engine.UpdateInputs(state, map[string]domain.Value{"full_name": domain.String("Ada Lovelace")})

	result, err := engine.Advance(state)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "intake", result.StepID)
	assert.Equal(t, []string{"risk_score"}, result.MissingFields)
	assert.Equal(t, "intake", state.CurrentStepID, "blocked advance leaves position unchanged")
	assert.Empty(t, state.CompletedSteps)

	engine.UpdateInputs(state, map[string]domain.Value{"risk_score": domain.Number(30)})

	result, err = engine.Advance(state)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "approval", result.StepID)
	assert.Equal(t, "approval", state.CurrentStepID)
	assert.Equal(t, []string{"intake"}, state.CompletedSteps)
}

func TestAdvanceToTermination(t *testing.T) {
	engine := NewEngine(riskProcess(t))
	state := domain.NewExecutionState("subj-2", "risk_flow", "intake")
	engine.UpdateInputs(state, map[string]domain.Value{
		"full_name":  domain.String("Grace Hopper"),
		"risk_score": domain.Number(85),
	})

	result, err := engine.Advance(state)
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, "review", state.CurrentStepID, "high risk routes through review")

	engine.UpdateInputs(state, map[string]domain.Value{"review_note": domain.String("checked")})

	result, err = engine.Advance(state)
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, domain.StepEnd, result.StepID)
	assert.True(t, state.Terminated())
	assert.ElementsMatch(t, []string{"intake", "review"}, state.CompletedSteps)

	_, err = engine.Advance(state)
	assert.ErrorIs(t, err, ErrSessionTerminated)
}

func TestAdvanceRejectsForeignSession(t *testing.T) {
	engine := NewEngine(riskProcess(t))
	state := domain.NewExecutionState("subj-3", "some_other_process", "intake")

	var invalid *domain.InvalidSessionStateError
	_, err := engine.Advance(state)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "some_other_process", invalid.ProcessID)
}

func TestAdvanceRejectsUnknownCurrentStep(t *testing.T) {
	engine := NewEngine(riskProcess(t))
	state := domain.NewExecutionState("subj-4", "risk_flow", "deleted_step")

	var invalid *domain.InvalidSessionStateError
	_, err := engine.Advance(state)
	assert.ErrorAs(t, err, &invalid)
}

func TestProgress(t *testing.T) {
	engine := NewEngine(riskProcess(t))
	state := domain.NewExecutionState("subj-5", "risk_flow", "intake")

	p := engine.Progress(state)
	assert.Equal(t, "collect", p.CurrentStage)
	assert.Equal(t, 0, p.CompletedSteps)
	assert.Equal(t, 3, p.TotalSteps)
	assert.False(t, p.Terminated)

	engine.UpdateInputs(state, map[string]domain.Value{
		"full_name":  domain.String("Ada"),
		"risk_score": domain.Number(10),
	})
	_, err := engine.Advance(state)
	require.NoError(t, err)

	p = engine.Progress(state)
	assert.Equal(t, "decide", p.CurrentStage)
	assert.Equal(t, 1, p.CompletedSteps)

	state.CurrentStepID = domain.StepEnd
	p = engine.Progress(state)
	assert.True(t, p.Terminated)
	assert.Empty(t, p.CurrentStage)
}
