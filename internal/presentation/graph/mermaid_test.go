package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onrampd/onramp/pkg/domain"
)

func sampleProcess() *domain.CompiledProcess {
	return &domain.CompiledProcess{
		ProcessID:     "individual_kyc",
		InitialStepID: "intake",
		Stages: []domain.Stage{
			{ID: "identity", Name: "Identity", Order: 1},
			{ID: "decision", Name: "Decision", Order: 2},
		},
		StepIndex: map[string]int{"intake": 0, "review": 1},
		Steps: []domain.CompiledStep{
			{
				ID:          "intake",
				Stage:       "identity",
				ComponentID: "form",
				Conditions: []domain.CompiledCondition{
					{Raw: `risk_score > 70`, Then: "review"},
				},
				Default: domain.StepEnd,
			},
			{
				ID:          "review",
				Stage:       "decision",
				ComponentID: "panel",
				Default:     domain.StepEnd,
			},
		},
	}
}

func TestMermaid(t *testing.T) {
	out := Mermaid(sampleProcess(), nil)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `subgraph identity["Identity"]`)
	assert.Contains(t, out, `subgraph decision["Decision"]`)
	assert.Contains(t, out, `intake["intake <br/> form"]`)
	assert.Contains(t, out, `intake -- "risk_score > 70" --> review`)
	assert.Contains(t, out, "intake --> END")
	assert.Contains(t, out, `END(("end"))`)
}

func TestMermaidOverlay(t *testing.T) {
	out := Mermaid(sampleProcess(), &Overlay{
		CompletedSteps: []string{"intake", "intake"},
		CurrentStepID:  "review",
	})

	assert.Contains(t, out, "class intake completed;")
	assert.Contains(t, out, "class review current;")
	require.Equal(t, 1, strings.Count(out, "class intake completed;"), "completed steps deduplicate")
}

func TestMermaidSanitizesIDs(t *testing.T) {
	process := &domain.CompiledProcess{
		ProcessID: "p",
		Stages:    []domain.Stage{},
		StepIndex: map[string]int{"collect.id-doc": 0},
		Steps: []domain.CompiledStep{
			{ID: "collect.id-doc", Default: domain.StepEnd},
		},
	}

	out := Mermaid(process, nil)
	assert.Contains(t, out, "collect_id_doc")
	assert.NotContains(t, out, "collect.id-doc[")
}
