package snapshot

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// entryKeyPrefix namespaces audit entries inside the badger keyspace.
const entryKeyPrefix = "entry/"

// BadgerSink stores the audit trail in an embedded BadgerDB. Keys are
// zero-padded sequence numbers, so badger's lexicographic iteration
// yields entries in append order.
type BadgerSink struct {
	db *badger.DB
}

// NewBadgerSink opens (or creates) a badger database at dir. Badger's
// own logger is silenced; the engine's slog output is the only log
// stream this process emits.
func NewBadgerSink(dir string) (*BadgerSink, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger snapshot store: %w", err)
	}
	return &BadgerSink{db: db}, nil
}

func entryKey(sequence uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", entryKeyPrefix, sequence))
}

// Append implements Sink.
func (s *BadgerSink) Append(entry Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding snapshot entry: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.Record.Sequence), value)
	})
	if err != nil {
		return fmt.Errorf("writing snapshot entry: %w", err)
	}
	return nil
}

// Scan implements Sink. Badger's iterator already streams values one
// key at a time, so a false yield just ends the view transaction.
func (s *BadgerSink) Scan(yield func(Entry) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &entry)
			})
			if err != nil {
				return fmt.Errorf("decoding snapshot entry: %w", err)
			}
			if !yield(entry) {
				return nil
			}
		}
		return nil
	})
}

// History implements Sink.
func (s *BadgerSink) History() ([]Entry, error) {
	return collect(s)
}

// Close implements Sink.
func (s *BadgerSink) Close() error {
	return s.db.Close()
}
