// Package ports defines the interfaces the engine depends on for durable
// storage and cross-instance coordination, plus a reusable contract test
// suite that every StateStore adapter must pass.
package ports
