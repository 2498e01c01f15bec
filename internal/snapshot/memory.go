package snapshot

import "sync"

// MemorySink keeps the audit trail in process memory. It is the default
// sink for tests and for runs that only need the in-run history API.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (m *MemorySink) Append(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Scan implements Sink. It iterates a snapshot of the entries so yield
// never runs under the sink's lock.
func (m *MemorySink) Scan(yield func(Entry) bool) error {
	entries, _ := m.History()
	for _, entry := range entries {
		if !yield(entry) {
			return nil
		}
	}
	return nil
}

// History implements Sink.
func (m *MemorySink) History() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// Close implements Sink.
func (m *MemorySink) Close() error { return nil }
