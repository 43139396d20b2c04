// Package compiler turns a loaded process definition into its immutable
// executable form: task schemas merged in, condition expressions parsed,
// every transition target checked against the step index.
//
// Structural errors stop compilation; unreachable steps only produce
// warnings and the artifact is still built.
package compiler

import (
	"fmt"

	"github.com/onrampd/onramp/pkg/domain"
	"github.com/onrampd/onramp/pkg/expr"
)

// TaskResolver resolves a task reference into its inheritance-merged
// definition. Satisfied by loader.TaskSet.
type TaskResolver interface {
	Resolve(ref string) (*domain.TaskDefinition, error)
}

// Compile builds a CompiledProcess from a definition. The returned
// warnings describe non-fatal findings (unreachable steps, malformed
// condition expressions); the artifact is produced regardless.
func Compile(def *domain.ProcessDefinition, tasks TaskResolver) (*domain.CompiledProcess, []string, error) {
	index := make(map[string]int, len(def.Steps))
	for i, step := range def.Steps {
		if _, exists := index[step.ID]; exists {
			return nil, nil, &domain.DuplicateStepError{ProcessID: def.ID, StepID: step.ID}
		}
		index[step.ID] = i
	}

	stages := make(map[string]bool, len(def.Stages))
	for _, stage := range def.Stages {
		stages[stage.ID] = true
	}

	var warnings []string
	steps := make([]domain.CompiledStep, 0, len(def.Steps))
	for _, step := range def.Steps {
		compiled, stepWarnings, err := compileStep(def, step, index, stages, tasks)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, stepWarnings...)
		steps = append(steps, *compiled)
	}

	warnings = append(warnings, unreachable(def, index)...)

	return &domain.CompiledProcess{
		ProcessID:     def.ID,
		Version:       def.Version,
		InitialStepID: def.Steps[0].ID,
		Stages:        append([]domain.Stage(nil), def.Stages...),
		StepIndex:     index,
		Steps:         steps,
	}, warnings, nil
}

func compileStep(def *domain.ProcessDefinition, step domain.Step, index map[string]int, stages map[string]bool, tasks TaskResolver) (*domain.CompiledStep, []string, error) {
	if step.Stage != "" && !stages[step.Stage] {
		return nil, nil, &domain.UnresolvedReferenceError{ProcessID: def.ID, Kind: "stage", Ref: step.Stage}
	}

	task, err := tasks.Resolve(step.TaskRef)
	if err != nil {
		return nil, nil, err
	}

	if err := checkTarget(def, index, step.Next.Default); err != nil {
		return nil, nil, err
	}

	var warnings []string
	conditions := make([]domain.CompiledCondition, 0, len(step.Next.Conditions))
	for _, cond := range step.Next.Conditions {
		if err := checkTarget(def, index, cond.Then); err != nil {
			return nil, nil, err
		}

		parsed, err := expr.Parse(cond.When)
		if err != nil {
			// A malformed condition never matches; it must not break the
			// compiled artifact.
			warnings = append(warnings, fmt.Sprintf("step %s: %v", step.ID, err))
			parsed = nil
		}
		conditions = append(conditions, domain.CompiledCondition{
			Raw:  cond.When,
			When: parsed,
			Then: cond.Then,
		})
	}

	return &domain.CompiledStep{
		ID:             step.ID,
		Stage:          step.Stage,
		TaskID:         task.ID,
		ComponentID:    task.ComponentID,
		RequiredFields: task.RequiredFields,
		Fields:         task.Schema.Fields,
		Conditions:     conditions,
		Default:        step.Next.Default,
	}, warnings, nil
}

func checkTarget(def *domain.ProcessDefinition, index map[string]int, target string) error {
	if target == domain.StepEnd {
		return nil
	}
	if _, ok := index[target]; !ok {
		return &domain.UnresolvedReferenceError{ProcessID: def.ID, Kind: "step", Ref: target}
	}
	return nil
}

// unreachable reports steps with no incoming transition that are not the
// initial step.
func unreachable(def *domain.ProcessDefinition, index map[string]int) []string {
	incoming := make(map[string]bool, len(def.Steps))
	for _, step := range def.Steps {
		incoming[step.Next.Default] = true
		for _, cond := range step.Next.Conditions {
			incoming[cond.Then] = true
		}
	}

	var warnings []string
	for _, step := range def.Steps {
		if step.ID == def.Steps[0].ID {
			continue
		}
		if !incoming[step.ID] {
			warnings = append(warnings, fmt.Sprintf("step %s is unreachable", step.ID))
		}
	}
	return warnings
}
