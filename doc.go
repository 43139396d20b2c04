// Package onramp compiles declarative onboarding process definitions and
// drives per-subject execution sessions over them.
//
// Process and task documents are loaded from a two-namespace content store,
// resolved (task inheritance, cross-references) and compiled once into
// immutable executable processes. The Engine facade then answers selection
// queries, initializes sessions, applies input patches, and advances
// sessions through conditional transitions, persisting every accepted
// change through a pluggable state store.
package onramp
