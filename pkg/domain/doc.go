// Package domain contains the core types of the onramp engine: declarative
// process and task definitions, their compiled executable form, per-subject
// execution state, and the tagged Value variant used for collected inputs.
//
// Types here carry no behavior beyond construction, lookup, and cloning.
// Loading lives in internal/loader, compilation in internal/compiler, and
// execution in internal/runtime.
package domain
