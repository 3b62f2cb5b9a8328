package notify

import (
	"context"
	"sync"
)

// Memory is an in-memory Channel for tests and dry runs. It honors the
// same idempotency contract as the real transport: announcing a
// fingerprint already in the visible history is a no-op.
type Memory struct {
	mu        sync.Mutex
	announced []Candidate
	seen      map[string]bool
	queue     []Approval
	committed map[string]bool
	failures  map[string]error
}

var _ Channel = (*Memory)(nil)

// NewMemory creates an empty in-memory channel.
func NewMemory() *Memory {
	return &Memory{
		seen:      make(map[string]bool),
		committed: make(map[string]bool),
		failures:  make(map[string]error),
	}
}

// Announce records the candidate unless its fingerprint is already visible.
func (m *Memory) Announce(_ context.Context, c Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen[c.Fingerprint] {
		return nil
	}
	m.seen[c.Fingerprint] = true
	m.announced = append(m.announced, c)
	return nil
}

// Approvals drains and returns the queued approvals.
func (m *Memory) Approvals(_ context.Context) ([]Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drained := m.queue
	m.queue = nil
	return drained, nil
}

// MarkCommitted records a successful ledger write for the fingerprint.
func (m *Memory) MarkCommitted(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.committed[fingerprint] = true
	delete(m.failures, fingerprint)
	return nil
}

// MarkFailed records a failed ledger write for the fingerprint.
func (m *Memory) MarkFailed(_ context.Context, fingerprint string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[fingerprint] = cause
	return nil
}

// Approve queues a human approval, as a test would.
func (m *Memory) Approve(fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, Approval{Fingerprint: fingerprint})
}

// Announced returns every candidate announced so far, in order.
func (m *Memory) Announced() []Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Candidate(nil), m.announced...)
}

// IsCommitted reports whether the fingerprint was marked committed.
func (m *Memory) IsCommitted(fingerprint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.committed[fingerprint]
}

// FailureFor returns the recorded write failure for the fingerprint, if any.
func (m *Memory) FailureFor(fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.failures[fingerprint]
}
