package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONLSink appends one JSON line per stage transition to a single file.
// The file is the self-describing artifact an operator greps or replays
// after a run; History re-reads it from the start, so iteration is
// restartable by construction.
type JSONLSink struct {
	path string
	file *os.File
}

// NewJSONLSink opens (or creates) the log file, creating parent
// directories as needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot log: %w", err)
	}
	return &JSONLSink{path: path, file: file}, nil
}

// Append implements Sink.
func (s *JSONLSink) Append(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding snapshot entry: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("writing snapshot entry: %w", err)
	}
	return nil
}

// Scan implements Sink by rescanning the file from the beginning,
// decoding one line at a time. A trail larger than memory streams fine;
// a false yield stops the read immediately.
func (s *JSONLSink) Scan(yield func(Entry) bool) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("reopening snapshot log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return fmt.Errorf("decoding snapshot entry: %w", err)
		}
		if !yield(entry) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning snapshot log: %w", err)
	}
	return nil
}

// History implements Sink.
func (s *JSONLSink) History() ([]Entry, error) {
	return collect(s)
}

// Close implements Sink.
func (s *JSONLSink) Close() error {
	return s.file.Close()
}
