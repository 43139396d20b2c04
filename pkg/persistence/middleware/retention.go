package middleware

import (
	"context"
	"regexp"

	"github.com/onrampd/onramp/pkg/domain"
	"github.com/onrampd/onramp/pkg/ports"
)

// masked replaces scrubbed field values.
const masked = "***"

type retentionMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewRetentionMiddleware creates a middleware that scrubs inputs whose field
// name matches one of the patterns once a session terminates. While a session
// is live its inputs stay intact: the engine still needs them for gating and
// transition conditions. After the terminal step nothing reads them again, so
// PII is masked before the final record lands.
func NewRetentionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &retentionMiddleware{next: next, patterns: patterns}
	}
}

func (m *retentionMiddleware) Save(ctx context.Context, subjectID string, state *domain.ExecutionState) error {
	if !state.Terminated() {
		return m.next.Save(ctx, subjectID, state)
	}

	// Clone so the caller's in-memory state is untouched.
	scrubbed := state.Clone()
	for name := range scrubbed.Inputs {
		for _, p := range m.patterns {
			if p.MatchString(name) {
				scrubbed.Inputs[name] = domain.String(masked)
				break
			}
		}
	}
	return m.next.Save(ctx, subjectID, scrubbed)
}

func (m *retentionMiddleware) Load(ctx context.Context, subjectID string) (*domain.ExecutionState, error) {
	return m.next.Load(ctx, subjectID)
}

func (m *retentionMiddleware) Delete(ctx context.Context, subjectID string) error {
	return m.next.Delete(ctx, subjectID)
}

func (m *retentionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
