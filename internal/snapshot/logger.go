package snapshot

import (
	"context"
	"sync"

	"github.com/vk/docgraphgo/internal/ctxlog"
)

// Entry pairs one execution record with the snapshot it triggered.
type Entry struct {
	Record   ExecutionRecord `json:"record"`
	Snapshot Snapshot        `json:"snapshot"`
}

// Sink is a storage backend for the audit trail. Scan streams entries
// in append order without materializing the trail and stops early when
// yield returns false; it must be callable repeatedly. History is the
// convenience form that collects the whole trail into a slice.
type Sink interface {
	Append(entry Entry) error
	Scan(yield func(Entry) bool) error
	History() ([]Entry, error)
	Close() error
}

// collect drains a sink's Scan into a slice.
func collect(s Sink) ([]Entry, error) {
	var entries []Entry
	err := s.Scan(func(entry Entry) bool {
		entries = append(entries, entry)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Logger records every stage transition into a sink. Storage errors are
// reported through the context logger and counted, but never propagated:
// a failing sink must not abort the run it is auditing.
type Logger struct {
	mu      sync.Mutex
	sink    Sink
	dropped int
}

// NewLogger wraps a sink.
func NewLogger(sink Sink) *Logger {
	return &Logger{sink: sink}
}

// Record appends one (record, snapshot) pair to the sink.
func (l *Logger) Record(ctx context.Context, rec ExecutionRecord, snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.sink.Append(Entry{Record: rec, Snapshot: snap}); err != nil {
		l.dropped++
		ctxlog.FromContext(ctx).Warn("Snapshot write failed, continuing run.",
			"sequence", rec.Sequence, "stageID", rec.StageID, "error", err)
	}
}

// Scan streams the audit trail recorded so far in append order.
func (l *Logger) Scan(yield func(Entry) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Scan(yield)
}

// History returns the ordered audit trail recorded so far.
func (l *Logger) History() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.History()
}

// Dropped reports how many entries were lost to sink failures.
func (l *Logger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close releases the underlying sink.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Close()
}
