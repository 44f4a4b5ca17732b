package runlog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "history.jsonl")

	first := NewEntry([]string{"/in/a.wav", "/in/b.wav"}, "/out", "mp3")
	second := NewEntry([]string{"/in/c.flac"}, "/out", "ogg")
	for _, e := range []Entry{first, second} {
		if err := Append(path, e); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Fatalf("entries must carry distinct ids: %q %q", entries[0].ID, entries[1].ID)
	}
	if entries[0].OutputFormat != "mp3" || entries[1].OutputFormat != "ogg" {
		t.Fatalf("entries out of order: %+v", entries)
	}
	if len(entries[0].InputFiles) != 2 {
		t.Fatalf("expected input files kept, got %+v", entries[0])
	}
}

func TestReadMissingFileIsEmptyHistory(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("missing history must not error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(entries))
	}
}

func TestReadSkipsUnparsableLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	if err := Append(path, NewEntry([]string{"/in/a.wav"}, "/out", "mp3")); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{torn write"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the intact entry only, got %d", len(entries))
	}
}

func TestTailLimitsFromTheEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	for _, format := range []string{"mp3", "ogg", "flac"} {
		if err := Append(path, NewEntry([]string{"/in/a.wav"}, "/out", format)); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].OutputFormat != "ogg" || entries[1].OutputFormat != "flac" {
		t.Fatalf("expected the newest entries, got %+v", entries)
	}

	all, err := Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("limit 0 must return everything, got %d", len(all))
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "value.json")
	in := map[string]int{"workers": 3}
	if err := WriteJSON(path, in); err != nil {
		t.Fatal(err)
	}

	var out map[string]int
	if err := ReadJSON(path, &out); err != nil {
		t.Fatal(err)
	}
	if out["workers"] != 3 {
		t.Fatalf("unexpected round trip value: %+v", out)
	}
}
