// Package runlog keeps the append-only history of finished conversion
// batches as one JSON object per line, plus the small filesystem helpers
// shared with the settings registry.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry is one finished batch. Entries describe themselves completely so
// the history file stays readable without the tool.
type Entry struct {
	ID           string   `json:"id"`
	Timestamp    string   `json:"timestamp"`
	InputFiles   []string `json:"input_files"`
	OutputFolder string   `json:"output_folder"`
	OutputFormat string   `json:"output_format"`
}

func NewEntry(inputs []string, outputDir, format string) Entry {
	return Entry{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		InputFiles:   append([]string(nil), inputs...),
		OutputFolder: outputDir,
		OutputFormat: format,
	}
}

// Append adds one entry to the history file, creating it on first use.
func Append(path string, entry Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal run entry: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open run log %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append run entry to %s: %w", path, err)
	}
	return nil
}

// Read returns every entry in file order. A missing file is an empty
// history. Unparsable lines are skipped.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	defer f.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read run log %s: %w", path, err)
	}
	return entries, nil
}

// Tail returns the last limit entries in file order. A limit of zero or
// less returns everything.
func Tail(path string, limit int) ([]Entry, error) {
	entries, err := Read(path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
