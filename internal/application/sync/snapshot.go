package sync

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Snapshot is the immutable pending-discrepancy view of one cycle. The
// orchestrator replaces it wholesale at the end of every successful cycle;
// readers never see a half-built map.
type Snapshot struct {
	CycleID string
	TakenAt time.Time
	Pending map[string]ledger.Transaction
}

// Fingerprints returns the pending fingerprints ordered by candidate date,
// ties broken by fingerprint. Announcements and the status API use this so
// their output is stable across calls.
func (s *Snapshot) Fingerprints() []string {
	fps := make([]string, 0, len(s.Pending))
	for fp := range s.Pending {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool {
		a, b := s.Pending[fps[i]], s.Pending[fps[j]]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return fps[i] < fps[j]
	})
	return fps
}

// snapshotSlot is a single-slot mailbox: one writer publishes, any number
// of readers load.
type snapshotSlot struct {
	current atomic.Pointer[Snapshot]
}

func (s *snapshotSlot) publish(snap *Snapshot) {
	s.current.Store(snap)
}

func (s *snapshotSlot) load() *Snapshot {
	return s.current.Load()
}

// Snapshot returns the pending discrepancies of the most recent completed
// cycle, or nil before the first one.
func (o *Orchestrator) Snapshot() *Snapshot {
	return o.pending.load()
}

// retiredSet tracks fingerprints that were committed to the ledger during
// this process lifetime. A retired candidate is never re-announced and an
// approval for it is ignored, whatever snapshot it appears in.
type retiredSet struct {
	done *atomic.Pointer[map[string]bool]
}

func newRetiredSet() retiredSet {
	p := &atomic.Pointer[map[string]bool]{}
	empty := map[string]bool{}
	p.Store(&empty)
	return retiredSet{done: p}
}

// add retires a fingerprint via copy-on-write. Only the approval loop
// writes, so the copy never races with another writer.
func (r retiredSet) add(fingerprint string) {
	old := *r.done.Load()
	next := make(map[string]bool, len(old)+1)
	for fp := range old {
		next[fp] = true
	}
	next[fingerprint] = true
	r.done.Store(&next)
}

func (r retiredSet) has(fingerprint string) bool {
	return (*r.done.Load())[fingerprint]
}
