// Package loader reads process and task definition documents from a
// two-level content store (a directory with processes/ and tasks/
// namespaces), resolves task inheritance chains, and validates
// cross-references before anything reaches the compiler.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/onrampd/onramp/internal/logging"
	"github.com/onrampd/onramp/pkg/domain"
)

const (
	processNamespace = "processes"
	taskNamespace    = "tasks"
)

// Loader reads definition documents from a root directory.
type Loader struct {
	root   string
	logger *slog.Logger
}

// Option configures the Loader.
type Option func(*Loader)

// WithLogger sets the logger used for skip warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a Loader rooted at dir. Process documents live under
// dir/processes, task documents under dir/tasks.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{
		root:   dir,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Bundle is the result of one load pass: every surviving process
// definition plus the task set their references resolve against.
type Bundle struct {
	Processes []domain.ProcessDefinition
	Tasks     *TaskSet
}

// Load reads both namespaces. A document that fails to parse or fails
// minimal-shape validation is skipped with a warning; the batch continues.
// A process whose task references do not resolve is rejected whole.
// Only an unreadable namespace directory is fatal.
func (l *Loader) Load() (*Bundle, error) {
	tasks, err := l.LoadTasks()
	if err != nil {
		return nil, err
	}

	files, err := l.listDocuments(processNamespace)
	if err != nil {
		return nil, err
	}

	var processes []domain.ProcessDefinition
	for _, file := range files {
		def, err := l.readProcess(file)
		if err != nil {
			l.logger.Warn("skipping process document", "doc", filepath.Base(file), "err", err)
			continue
		}

		if err := l.checkTaskRefs(def, tasks); err != nil {
			l.logger.Error("rejecting process", "process", def.ID, "err", err)
			continue
		}

		processes = append(processes, *def)
	}

	return &Bundle{Processes: processes, Tasks: tasks}, nil
}

// LoadProcesses reads and validates every process document.
func (l *Loader) LoadProcesses() ([]domain.ProcessDefinition, error) {
	bundle, err := l.Load()
	if err != nil {
		return nil, err
	}
	return bundle.Processes, nil
}

// LoadAndResolveTask loads the task namespace and resolves a single
// reference, inheritance included.
func (l *Loader) LoadAndResolveTask(ref string) (*domain.TaskDefinition, error) {
	tasks, err := l.LoadTasks()
	if err != nil {
		return nil, err
	}
	return tasks.Resolve(ref)
}

// LoadTasks reads every task document into a TaskSet. Unparseable
// documents are skipped with a warning.
func (l *Loader) LoadTasks() (*TaskSet, error) {
	files, err := l.listDocuments(taskNamespace)
	if err != nil {
		return nil, err
	}

	set := NewTaskSet()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read task document %s: %w", file, err)
		}

		var task domain.TaskDefinition
		if err := yaml.Unmarshal(data, &task); err != nil {
			l.logger.Warn("skipping task document", "doc", filepath.Base(file), "err", err)
			continue
		}
		if task.ID == "" {
			l.logger.Warn("skipping task document", "doc", filepath.Base(file), "err", "missing id")
			continue
		}
		set.Add(task)
	}

	return set, nil
}

func (l *Loader) listDocuments(namespace string) ([]string, error) {
	dir := filepath.Join(l.root, namespace)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s namespace: %w", namespace, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func (l *Loader) readProcess(file string) (*domain.ProcessDefinition, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var def domain.ProcessDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &domain.DefinitionError{Doc: filepath.Base(file), Reason: err.Error()}
	}

	if err := validateShape(&def, filepath.Base(file)); err != nil {
		return nil, err
	}
	return &def, nil
}

// validateShape enforces the minimal structure a process document must
// have before it is worth compiling.
func validateShape(def *domain.ProcessDefinition, doc string) error {
	if def.ID == "" {
		return &domain.DefinitionError{Doc: doc, Reason: "missing id"}
	}
	if len(def.Steps) == 0 {
		return &domain.DefinitionError{Doc: doc, Reason: "empty step list"}
	}
	for _, step := range def.Steps {
		if step.ID == "" {
			return &domain.DefinitionError{Doc: doc, Reason: "step missing id"}
		}
		if step.TaskRef == "" {
			return &domain.DefinitionError{Doc: doc, Reason: fmt.Sprintf("step %s missing task_ref", step.ID)}
		}
		if step.Next.Default == "" {
			return &domain.DefinitionError{Doc: doc, Reason: fmt.Sprintf("step %s missing next.default", step.ID)}
		}
	}
	return nil
}

// checkTaskRefs resolves every step's task reference, inheritance
// included. Any failure rejects the whole process.
func (l *Loader) checkTaskRefs(def *domain.ProcessDefinition, tasks *TaskSet) error {
	for _, step := range def.Steps {
		if _, err := tasks.Resolve(step.TaskRef); err != nil {
			var circular *domain.CircularInheritanceError
			if errors.As(err, &circular) {
				return err
			}
			return &domain.UnresolvedReferenceError{ProcessID: def.ID, Kind: "task", Ref: step.TaskRef}
		}
	}
	return nil
}

// PickApplicableProcess selects the process for a subject profile: filter
// by the applicability predicate, then take the highest version. Returns
// domain.ErrNoApplicableProcess when nothing matches.
func PickApplicableProcess(all []domain.ProcessDefinition, profile domain.SubjectProfile) (*domain.ProcessDefinition, error) {
	var best *domain.ProcessDefinition
	for i := range all {
		def := &all[i]
		if !def.Matches(profile) {
			continue
		}
		if best == nil || def.Version > best.Version {
			best = def
		}
	}
	if best == nil {
		return nil, domain.ErrNoApplicableProcess
	}
	return best, nil
}
