// Package source contains the call-log providers an export can read from. Go
// keeps each package in its own folder; files in the folder share a namespace.
package source

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/CallLogCSV/internal/model"
)

// Source is anything that can hand over the raw call log in the provider's
// default order. Implementations must not reorder or drop rows.
type Source interface {
	Calls(ctx context.Context) ([]model.RawCall, error)
}

// MemorySource provides an in-memory call log guarded by an RWMutex. RWMutex
// lets many exports read concurrently while Add takes the single write lock.
type MemorySource struct {
	mu    sync.RWMutex
	calls []model.RawCall
}

// NewMemorySource constructs a MemorySource seeded with calls.
func NewMemorySource(calls ...model.RawCall) *MemorySource {
	m := &MemorySource{}
	m.Add(calls...)
	return m
}

// Add appends calls at the end of the log.
func (m *MemorySource) Add(calls ...model.RawCall) {
	m.mu.Lock()
	// defer schedules the unlock to run when the function returns, even if it
	// exits early.
	defer m.mu.Unlock()
	m.calls = append(m.calls, calls...)
}

// Calls returns a copy of the log so callers cannot mutate internal state.
func (m *MemorySource) Calls(ctx context.Context) ([]model.RawCall, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.RawCall, len(m.calls))
	copy(out, m.calls)
	return out, nil
}
