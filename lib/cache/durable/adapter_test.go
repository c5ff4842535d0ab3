package durable

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/AnalineS/tiercache/lib/cache"
)

func TestAdapterRoundTrip(t *testing.T) {
	s := New(NewMemStorage(0))

	if err := s.Set("module:dose-calc", []byte(`{"id":42}`), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok := s.Get("module:dose-calc")
	if !ok || !bytes.Equal(value, []byte(`{"id":42}`)) {
		t.Fatalf("expected round trip, got %q (ok=%v)", value, ok)
	}
}

func TestKeySanitization(t *testing.T) {
	raw := NewMemStorage(0)
	s := New(raw)

	// keys with path separators, whitespace and bracket characters must
	// map onto the backend's legal key space
	dirty := `users/alice profile#v2[beta]\x`
	if err := s.Set(dirty, []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	keys, _ := raw.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected 1 raw key, got %v", keys)
	}
	for _, c := range []string{"/", "\\", " ", "#", "[", "]"} {
		if bytes.Contains([]byte(keys[0][len(namespace):]), []byte(c)) {
			t.Errorf("raw key %q still contains %q", keys[0], c)
		}
	}

	// and the sanitized key must still resolve through the adapter
	if _, ok := s.Get(dirty); !ok {
		t.Error("sanitized key no longer resolves")
	}
}

func TestSanitizedKeysDoNotCollide(t *testing.T) {
	s := New(NewMemStorage(0))

	// escaping must keep distinct logical keys distinct, including keys
	// that contain the escape character itself
	pairs := [][2]string{
		{"a/b", "a_b"},
		{"a b", "a/b"},
		{"a%2Fb", "a/b"},
		{"x#y", "x%23y"},
	}
	for _, pair := range pairs {
		_ = s.Set(pair[0], []byte("first"), 0)
		_ = s.Set(pair[1], []byte("second"), 0)

		value, ok := s.Get(pair[0])
		if !ok || !bytes.Equal(value, []byte("first")) {
			t.Errorf("%q was clobbered by %q: got %q (ok=%v)", pair[0], pair[1], value, ok)
		}
		value, ok = s.Get(pair[1])
		if !ok || !bytes.Equal(value, []byte("second")) {
			t.Errorf("%q did not round trip next to %q: got %q (ok=%v)", pair[1], pair[0], value, ok)
		}
	}
}

func TestQuotaExceededIsTyped(t *testing.T) {
	s := New(NewMemStorage(16))

	err := s.Set("big", bytes.Repeat([]byte("x"), 1024), 0)
	if !errors.Is(err, cache.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestCorruptedRecordIsMiss(t *testing.T) {
	raw := NewMemStorage(0)
	s := New(raw)

	_ = raw.SetItem(rawKey("broken"), "{not json at all")

	if _, ok := s.Get("broken"); ok {
		t.Fatal("corrupted record must read as a miss")
	}

	// the corrupt record is removed so it cannot poison future reads
	if _, ok, _ := raw.GetItem(rawKey("broken")); ok {
		t.Error("corrupted record should have been removed")
	}
}

func TestExpirySurvivesRestart(t *testing.T) {
	raw := NewMemStorage(0)

	now := time.Now()
	first := New(raw)
	first.clock = func() time.Time { return now }

	_ = first.Set("short", []byte("a"), 10*time.Millisecond)
	_ = first.Set("long", []byte("b"), time.Hour)

	// a new adapter over the same backend models a process restart
	second := New(raw)
	second.clock = func() time.Time { return now.Add(time.Minute) }

	if _, ok := second.Get("short"); ok {
		t.Error("entry written before restart should have expired")
	}
	if value, ok := second.Get("long"); !ok || !bytes.Equal(value, []byte("b")) {
		t.Error("unexpired entry should survive restart")
	}
}

func TestClearOnlyTouchesNamespace(t *testing.T) {
	raw := NewMemStorage(0)
	s := New(raw)

	_ = raw.SetItem("unrelated", "leave me alone")
	_ = s.Set("mine", []byte("x"), 0)

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, ok := s.Get("mine"); ok {
		t.Error("namespaced entry should be gone")
	}
	if _, ok, _ := raw.GetItem("unrelated"); !ok {
		t.Error("foreign record must survive a tier clear")
	}
}

func TestEntryReturnsExpired(t *testing.T) {
	s := New(NewMemStorage(0))

	now := time.Now()
	s.clock = func() time.Time { return now }

	_ = s.Set("stale", []byte("old"), time.Millisecond)
	now = now.Add(time.Second)

	entry, ok := s.Entry("stale")
	if !ok {
		t.Fatal("Entry must return expired entries")
	}
	if !entry.ExpiredAt(now) {
		t.Error("entry should report itself expired")
	}
}
