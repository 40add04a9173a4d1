package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCappedWriterTruncatesAtLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party.log")
	w, err := newSizeLimitedWriter(path, 1)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()
	w.maxBytes = 64

	chunk := bytes.Repeat([]byte("x"), 40)
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("second write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 40 {
		t.Fatalf("size after truncating write = %d, want 40", info.Size())
	}
}

func TestCappedWriterReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party.log")
	w, err := newSizeLimitedWriter(path, 1)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := w.Write([]byte("after close")); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	_ = w.Close()
}
