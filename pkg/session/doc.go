// Package session serializes per-subject access to the state store.
//
// A single subject's read-modify-write cycle must never interleave with
// another in-flight call for the same subject; the Manager guarantees this
// with a reference-counted per-subject mutex, optionally extended across
// replicas by a DistributedLocker. Different subjects proceed concurrently.
package session
