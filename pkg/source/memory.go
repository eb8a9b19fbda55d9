package source

import (
	"sort"
	"sync"
	"sync/atomic"

	variants "github.com/goliatone/go-variants"
)

// Memory is a mutable in-memory Source. Reads are lock free; writes are
// serialised and publish a new view with the next revision.
type Memory struct {
	mu      sync.Mutex
	current atomic.Pointer[variants.Assignments]
	subs    map[uint64]func(variants.Assignments)
	nextSub uint64
}

// NewMemory seeds a Memory source with values at revision 1.
func NewMemory(values map[string]any) *Memory {
	m := &Memory{subs: map[uint64]func(variants.Assignments){}}
	view := variants.NewAssignments(values, 1)
	m.current.Store(&view)
	return m
}

// Assignments implements variants.Source.
func (m *Memory) Assignments() variants.Assignments {
	if m == nil {
		return variants.Assignments{}
	}
	if view := m.current.Load(); view != nil {
		return *view
	}
	return variants.Assignments{}
}

// Revision returns the current revision.
func (m *Memory) Revision() uint64 {
	return m.Assignments().Revision()
}

// Set assigns value to key and returns the new revision.
func (m *Memory) Set(key string, value any) uint64 {
	return m.Update(func(values map[string]any) {
		values[key] = value
	})
}

// Delete removes key and returns the new revision.
func (m *Memory) Delete(key string) uint64 {
	return m.Update(func(values map[string]any) {
		delete(values, key)
	})
}

// Replace swaps every assignment for values.
func (m *Memory) Replace(values map[string]any) uint64 {
	return m.Update(func(current map[string]any) {
		for key := range current {
			delete(current, key)
		}
		for key, value := range values {
			current[key] = value
		}
	})
}

// Update applies fn to a private copy of the assignments and publishes the
// result as one revision. Subscribers are notified after the swap.
func (m *Memory) Update(fn func(values map[string]any)) uint64 {
	m.mu.Lock()
	prev := m.Assignments()
	values := prev.Values()
	if fn != nil {
		fn(values)
	}
	next := variants.NewAssignments(values, prev.Revision()+1)
	m.current.Store(&next)
	subs := m.subscribers()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next.Revision()
}

// Subscribe registers fn to receive every published view. The returned
// function cancels the subscription.
func (m *Memory) Subscribe(fn func(variants.Assignments)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = map[uint64]func(variants.Assignments){}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Memory) subscribers() []func(variants.Assignments) {
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(variants.Assignments), len(ids))
	for i, id := range ids {
		out[i] = m.subs[id]
	}
	return out
}
