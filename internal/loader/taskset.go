package loader

import (
	"github.com/onrampd/onramp/pkg/domain"
)

// TaskSet is an immutable registry of task definitions, keyed by id. It is
// built once per load pass and passed explicitly to the compiler; there is
// no process-wide lookup table.
type TaskSet struct {
	tasks map[string]domain.TaskDefinition
}

// NewTaskSet creates an empty task set.
func NewTaskSet() *TaskSet {
	return &TaskSet{tasks: make(map[string]domain.TaskDefinition)}
}

// Add registers a task definition. Later documents with the same id win.
func (ts *TaskSet) Add(task domain.TaskDefinition) {
	ts.tasks[task.ID] = task
}

// Len returns the number of registered tasks.
func (ts *TaskSet) Len() int { return len(ts.tasks) }

// Resolve walks the extends chain of a task depth-first and returns the
// fully merged definition. A reference to an unknown task or a cycle in
// the chain (including self-reference) is an error.
func (ts *TaskSet) Resolve(ref string) (*domain.TaskDefinition, error) {
	return ts.resolve(ref, nil, make(map[string]bool))
}

func (ts *TaskSet) resolve(ref string, chain []string, visited map[string]bool) (*domain.TaskDefinition, error) {
	if visited[ref] {
		return nil, &domain.CircularInheritanceError{Cycle: append(chain, ref)}
	}

	task, ok := ts.tasks[ref]
	if !ok {
		return nil, &domain.UnresolvedReferenceError{Kind: "task", Ref: ref}
	}

	if task.Extends == "" {
		merged := cloneTask(task)
		return &merged, nil
	}

	visited[ref] = true
	parent, err := ts.resolve(task.Extends, append(chain, ref), visited)
	if err != nil {
		return nil, err
	}

	merged := mergeTask(*parent, task)
	return &merged, nil
}

// mergeTask applies the inheritance rules: the child's required-fields
// list is the deduplicated union of parent and child; the field schema is
// the parent's fields followed by the child's, where a child field of the
// same name replaces the parent's in place (last-write-wins by name).
func mergeTask(parent, child domain.TaskDefinition) domain.TaskDefinition {
	merged := cloneTask(child)
	merged.Extends = ""

	if merged.ComponentID == "" {
		merged.ComponentID = parent.ComponentID
	}

	merged.RequiredFields = mergeRequired(parent.RequiredFields, child.RequiredFields)
	merged.Schema.Fields = mergeFields(parent.Schema.Fields, child.Schema.Fields)
	return merged
}

func mergeRequired(parent, child []string) []string {
	seen := make(map[string]bool, len(parent)+len(child))
	merged := make([]string, 0, len(parent)+len(child))
	for _, name := range parent {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	for _, name := range child {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	return merged
}

func mergeFields(parent, child []domain.FieldSpec) []domain.FieldSpec {
	index := make(map[string]int, len(parent))
	merged := make([]domain.FieldSpec, len(parent))
	copy(merged, parent)
	for i, f := range parent {
		index[f.Name] = i
	}
	for _, f := range child {
		if i, ok := index[f.Name]; ok {
			merged[i] = f
			continue
		}
		index[f.Name] = len(merged)
		merged = append(merged, f)
	}
	return merged
}

func cloneTask(task domain.TaskDefinition) domain.TaskDefinition {
	clone := task
	clone.RequiredFields = append([]string(nil), task.RequiredFields...)
	clone.Schema.Fields = append([]domain.FieldSpec(nil), task.Schema.Fields...)
	return clone
}
