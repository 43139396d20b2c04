// Package middleware provides composable StateStore wrappers for
// cross-cutting persistence concerns: encryption at rest and PII retention.
package middleware

import "github.com/onrampd/onramp/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies middlewares to a store, first middleware outermost.
func Chain(store ports.StateStore, middlewares ...Middleware) ports.StateStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
