package testutil

import (
	"fmt"
	"sync"
)

// FixedReferences hands out predictable payment references.
//
// With no configured references it returns "ref-0001", "ref-0002", ... so
// receipts in golden traces are byte-identical between runs. Configured
// references are returned first, in order.
//
// Thread-safety: FixedReferences is safe for concurrent use via internal mutex.
type FixedReferences struct {
	mu   sync.Mutex
	refs []string
	n    int
}

// NewFixedReferences creates a generator returning refs, then numbered
// fallbacks.
func NewFixedReferences(refs ...string) *FixedReferences {
	return &FixedReferences{refs: refs}
}

// Next returns the next reference.
//
// Implements order.References.
func (g *FixedReferences) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n <= len(g.refs) {
		return g.refs[g.n-1]
	}
	return fmt.Sprintf("ref-%04d", g.n)
}
