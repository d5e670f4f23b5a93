package logger

import (
	"errors"
	"strings"
	"testing"
)

// TestLogger_WriteAndTail tests Write and the bounds handling of Tail
func TestLogger_WriteAndTail(t *testing.T) {
	log := NewLogger(100)
	w := &strings.Builder{}

	if log.Write(w) {
		t.Error("Write on empty log: expected false")
	}

	log.Log(Allow, "test", "this is a test")
	log.Log(Allow, "test2", "this is another test")
	log.Write(w)
	expected := "test: this is a test\ntest2: this is another test\n"
	if w.String() != expected {
		t.Errorf("Write: expected %q, got %q", expected, w.String())
	}

	tests := []struct {
		name     string
		number   int
		expected string
	}{
		{"too many", 100, expected},
		{"exact", 2, expected},
		{"fewer", 1, "test2: this is another test\n"},
		{"none", 0, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := &strings.Builder{}
			log.Tail(w, tc.number)
			if w.String() != tc.expected {
				t.Errorf("Tail(%d): expected %q, got %q", tc.number, tc.expected, w.String())
			}
		})
	}
}

// TestLogger_RepeatCollapse tests that identical consecutive entries fold
func TestLogger_RepeatCollapse(t *testing.T) {
	log := NewLogger(10)
	for i := 0; i < 3; i++ {
		log.Log(Allow, "ula", "same")
	}
	log.Log(Allow, "ula", "different")

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries: expected 2, got %d", len(entries))
	}
	if entries[0].Repeated != 2 {
		t.Errorf("Repeated: expected 2, got %d", entries[0].Repeated)
	}
	if got := entries[0].String(); got != "ula: same (repeat x3)\n" {
		t.Errorf("String: got %q", got)
	}
}

// TestLogger_MaxEntries tests that the oldest entries are dropped
func TestLogger_MaxEntries(t *testing.T) {
	log := NewLogger(3)
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		log.Log(Allow, "tag", d)
	}
	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("Entries: expected 3, got %d", len(entries))
	}
	if entries[0].Detail != "c" || entries[2].Detail != "e" {
		t.Errorf("Entries: expected c..e, got %s..%s", entries[0].Detail, entries[2].Detail)
	}
}

type deny struct{}

func (deny) AllowLogging() bool { return false }

// TestLogger_Permission tests that a refusing Permission drops entries
func TestLogger_Permission(t *testing.T) {
	log := NewLogger(10)
	log.Log(deny{}, "tag", "detail")
	log.Logf(deny{}, "tag", "detail %d", 1)
	if n := len(log.Entries()); n != 0 {
		t.Errorf("Entries: expected 0, got %d", n)
	}
}

// TestLogger_ErrorDetail tests that errors are logged by their message
func TestLogger_ErrorDetail(t *testing.T) {
	log := NewLogger(10)
	w := &strings.Builder{}
	err := errors.New("test error")

	log.Log(Allow, "tag", err)
	log.Logf(Allow, "tag", "wrapped: %v", err)
	log.Write(w)

	expected := "tag: test error\ntag: wrapped: test error\n"
	if w.String() != expected {
		t.Errorf("Write: expected %q, got %q", expected, w.String())
	}
}

// TestLogger_Echo tests that entries are copied to the echo writer
func TestLogger_Echo(t *testing.T) {
	log := NewLogger(10)
	w := &strings.Builder{}
	log.SetEcho(w)
	log.Log(Allow, "tag", "one\ntwo")
	if w.String() != "tag: onetwo\n" {
		t.Errorf("Echo: got %q", w.String())
	}
}
