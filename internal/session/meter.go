package session

import (
	"sort"
	"sync"
	"time"

	"github.com/roach88/tabengine/internal/domain"
)

// Meter holds the running sessions keyed by table code.
//
// Thread-safety: Meter is safe for concurrent use. Writers are expected to
// be serialized by the owning engine; the lock only protects readers.
type Meter struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	rounding Rounding
}

// NewMeter creates an empty meter billing with r.
func NewMeter(r Rounding) *Meter {
	if r == "" {
		r = RoundCeil
	}
	return &Meter{sessions: make(map[string]domain.Session), rounding: r}
}

// Rounding returns the minute rounding used by Bill.
func (m *Meter) Rounding() Rounding {
	return m.rounding
}

// Get returns the session running on table.
func (m *Meter) Get(table string) (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[table]
	return s, ok
}

// All returns the running sessions ordered by table code.
func (m *Meter) All() []domain.Session {
	m.mu.RLock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TableCode < out[j].TableCode })
	return out
}

// Len returns the number of running sessions.
func (m *Meter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Put records s as the running session of its table, replacing any other.
func (m *Meter) Put(s domain.Session) {
	m.mu.Lock()
	m.sessions[s.TableCode] = s
	m.mu.Unlock()
}

// Remove forgets the session of table.
func (m *Meter) Remove(table string) {
	m.mu.Lock()
	delete(m.sessions, table)
	m.mu.Unlock()
}

// Reset forgets every session.
func (m *Meter) Reset() {
	m.mu.Lock()
	m.sessions = make(map[string]domain.Session)
	m.mu.Unlock()
}

// Bill prices the session on table as of now without changing it.
func (m *Meter) Bill(table string, now time.Time, rate *domain.Rate) (Bill, bool) {
	s, ok := m.Get(table)
	if !ok {
		return Bill{}, false
	}
	return Compute(s, now, rate, m.rounding), true
}

// Fold returns every session with its running time folded into the
// accumulated seconds and started_at moved to now. The meter is not
// changed; call Apply once the folded values are persisted.
func (m *Meter) Fold(now time.Time) []domain.Session {
	all := m.All()
	for i, s := range all {
		all[i] = FoldSession(s, now)
	}
	return all
}

// Apply adopts folded sessions. Sessions whose table no longer runs a
// session with the same mode are skipped, so a stop that raced the
// snapshot is not resurrected.
func (m *Meter) Apply(folded []domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range folded {
		cur, ok := m.sessions[s.TableCode]
		if !ok || cur.Mode != s.Mode {
			continue
		}
		m.sessions[s.TableCode] = s
	}
}

// FoldSession moves the whole seconds run so far into the accumulated
// total. The sub-second remainder stays on started_at so repeated folds do
// not drift.
func FoldSession(s domain.Session, now time.Time) domain.Session {
	running := now.Sub(s.StartedAt)
	if running < 0 {
		running = 0
	}
	whole := running.Truncate(time.Second)
	s.AccumulatedSeconds += int64(whole / time.Second)
	s.StartedAt = now.Add(-(running - whole))
	return s
}
