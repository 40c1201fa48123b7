package pipeline

import "sync"

// Memo holds facet results keyed by Facet.Key. It is dropped wholesale once
// it reaches its limit.
type Memo struct {
	mu      sync.Mutex
	limit   int
	entries map[string]*FacetResult
}

func NewMemo(limit int) *Memo {
	return &Memo{limit: limit, entries: make(map[string]*FacetResult)}
}

func (m *Memo) get(key string) (*FacetResult, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	return r, ok
}

func (m *Memo) put(key string, r *FacetResult) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && len(m.entries) >= m.limit {
		m.entries = make(map[string]*FacetResult)
	}
	m.entries[key] = r
}

func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Reset forgets every memoized result.
func (m *Memo) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.entries = make(map[string]*FacetResult)
	m.mu.Unlock()
}
