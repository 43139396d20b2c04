// Package graph renders compiled processes as Mermaid flowcharts, for
// documentation and for inspecting a subject's position in a flow.
package graph

import (
	"fmt"
	"strings"

	"github.com/onrampd/onramp/pkg/domain"
)

// Overlay contains per-session state to highlight on the graph.
type Overlay struct {
	CompletedSteps []string
	CurrentStepID  string
}

// Mermaid produces Mermaid flowchart syntax for a compiled process. Steps
// are grouped into stage subgraphs, conditional transitions carry their raw
// expression as the edge label, and the terminal sentinel renders as a
// circle. An overlay highlights completed and current steps.
func Mermaid(process *domain.CompiledProcess, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	byStage := make(map[string][]domain.CompiledStep)
	var unstaged []domain.CompiledStep
	for _, step := range process.Steps {
		if step.Stage == "" {
			unstaged = append(unstaged, step)
			continue
		}
		byStage[step.Stage] = append(byStage[step.Stage], step)
	}

	for _, stage := range process.Stages {
		steps := byStage[stage.ID]
		if len(steps) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", sanitizeID(stage.ID), stage.Name))
		for _, step := range steps {
			writeNode(&sb, "        ", step)
		}
		sb.WriteString("    end\n")
	}
	for _, step := range unstaged {
		writeNode(&sb, "    ", step)
	}

	terminates := false
	for _, step := range process.Steps {
		from := sanitizeID(step.ID)
		for _, cond := range step.Conditions {
			label := strings.ReplaceAll(cond.Raw, "\"", "'")
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, label, sanitizeID(cond.Then)))
			terminates = terminates || cond.Then == domain.StepEnd
		}
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, sanitizeID(step.Default)))
		terminates = terminates || step.Default == domain.StepEnd
	}

	if terminates {
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", sanitizeID(domain.StepEnd), domain.StepEnd))
	}

	if overlay != nil {
		sb.WriteString("\n")
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.CompletedSteps {
			safe := sanitizeID(id)
			if safe == "" || seen[safe] {
				continue
			}
			seen[safe] = true
			sb.WriteString(fmt.Sprintf("    class %s completed;\n", safe))
		}
		if overlay.CurrentStepID != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeID(overlay.CurrentStepID)))
		}
	}

	return sb.String()
}

func writeNode(sb *strings.Builder, indent string, step domain.CompiledStep) {
	label := step.ID
	if step.ComponentID != "" {
		label = fmt.Sprintf("%s <br/> %s", step.ID, step.ComponentID)
	}
	sb.WriteString(fmt.Sprintf("%s%s[\"%s\"]\n", indent, sanitizeID(step.ID), label))
}

func sanitizeID(id string) string {
	// "end" closes a subgraph in Mermaid and cannot be a node id.
	if id == domain.StepEnd {
		return "END"
	}
	replacer := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_")
	return replacer.Replace(id)
}
