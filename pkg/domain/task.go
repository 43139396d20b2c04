package domain

// TaskDefinition is the ground-truth schema referenced by steps, possibly
// across several processes. Tasks support single-parent inheritance via
// Extends; the merge rules live in the loader.
type TaskDefinition struct {
	ID string `yaml:"id" json:"id"`

	// Extends names a parent task. Chains are resolved depth-first at load
	// time; cycles (including self-reference) are a load error.
	Extends string `yaml:"extends,omitempty" json:"extends,omitempty"`

	// ComponentID names the renderer a presentation collaborator should use
	// for this task. Opaque to the engine.
	ComponentID string `yaml:"component_id" json:"component_id"`

	RequiredFields []string    `yaml:"required_fields" json:"required_fields"`
	Schema         FieldSchema `yaml:"schema" json:"schema"`
}

// FieldSchema is an ordered list of field descriptors.
type FieldSchema struct {
	Fields []FieldSpec `yaml:"fields" json:"fields"`
}

// FieldSpec describes a single collected field.
type FieldSpec struct {
	Name       string   `yaml:"name" json:"name"`
	Label      string   `yaml:"label" json:"label"`
	Type       string   `yaml:"type" json:"type"`
	Required   bool     `yaml:"required" json:"required"`
	Validation string   `yaml:"validation,omitempty" json:"validation,omitempty"`
	Options    []string `yaml:"options,omitempty" json:"options,omitempty"`
}
