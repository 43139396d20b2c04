package domain

// StepEnd is the terminal transition target. A step whose resolved next step
// is StepEnd completes the process; it never appears as a real step id.
const StepEnd = "end"

// ProcessDefinition is the declarative description of an end-to-end
// onboarding flow, as parsed from a process document. Immutable once loaded;
// one instance exists per on-disk document.
type ProcessDefinition struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Version int    `yaml:"version" json:"version"`

	// AppliesTo is the applicability predicate used for process selection.
	// A nil predicate matches every subject profile. It is never evaluated
	// at runtime.
	AppliesTo *Applicability `yaml:"applies_to,omitempty" json:"applies_to,omitempty"`

	// Stages are pure grouping metadata for presentation collaborators.
	Stages []Stage `yaml:"stages" json:"stages"`

	// Steps in declaration order; the first step is the initial step.
	Steps []Step `yaml:"steps" json:"steps"`
}

// Applicability restricts which subject profiles a process applies to.
type Applicability struct {
	SubjectType   string   `yaml:"subject_type,omitempty" json:"subject_type,omitempty"`
	Jurisdictions []string `yaml:"jurisdictions,omitempty" json:"jurisdictions,omitempty"`
}

// SubjectProfile identifies the population a subject belongs to, for
// process selection.
type SubjectProfile struct {
	SubjectType  string `json:"subject_type"`
	Jurisdiction string `json:"jurisdiction"`
}

// Matches reports whether the process applies to the given profile.
// An absent predicate, or an absent field within it, matches everything.
func (p *ProcessDefinition) Matches(profile SubjectProfile) bool {
	if p.AppliesTo == nil {
		return true
	}
	if p.AppliesTo.SubjectType != "" && p.AppliesTo.SubjectType != profile.SubjectType {
		return false
	}
	if len(p.AppliesTo.Jurisdictions) > 0 {
		found := false
		for _, j := range p.AppliesTo.Jurisdictions {
			if j == profile.Jurisdiction {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Stage groups steps for display. Order controls presentation only.
type Stage struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Order int    `yaml:"order" json:"order"`
}

// Step is one node in a process. It references a task by key and declares
// the transition rule out of the step.
type Step struct {
	ID      string         `yaml:"id" json:"id"`
	Stage   string         `yaml:"stage,omitempty" json:"stage,omitempty"`
	TaskRef string         `yaml:"task_ref" json:"task_ref"`
	Next    TransitionRule `yaml:"next" json:"next"`
}

// TransitionRule is an ordered list of conditional transitions plus a
// mandatory default target. Conditions are evaluated in declaration order;
// the first match wins.
type TransitionRule struct {
	Conditions []ConditionalTransition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Default    string                  `yaml:"default" json:"default"`
}

// ConditionalTransition pairs a predicate expression with a target step id.
type ConditionalTransition struct {
	When string `yaml:"when" json:"when"`
	Then string `yaml:"then" json:"then"`
}
