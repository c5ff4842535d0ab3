package durable

import (
	"errors"
	"os"
	"sort"
	"testing"

	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/AnalineS/tiercache/lib/fixtures"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	code := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(code)
}

// storageFactory creates a fresh RawStorage for one test
type storageFactory func(t *testing.T, quotaBytes int64) RawStorage

// runRawStorageTests runs the shared contract suite against a backend.
func runRawStorageTests(t *testing.T, name string, factory storageFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetGetRemove", func(t *testing.T) {
			s := factory(t, 0)

			if _, ok, err := s.GetItem("missing"); err != nil || ok {
				t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
			}

			if err := s.SetItem("a", "one"); err != nil {
				t.Fatalf("SetItem failed: %v", err)
			}
			text, ok, err := s.GetItem("a")
			if err != nil || !ok || text != "one" {
				t.Fatalf("expected 'one', got %q (ok=%v err=%v)", text, ok, err)
			}

			// overwrite
			if err := s.SetItem("a", "two"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			text, _, _ = s.GetItem("a")
			if text != "two" {
				t.Errorf("expected 'two', got %q", text)
			}

			if err := s.RemoveItem("a"); err != nil {
				t.Fatalf("RemoveItem failed: %v", err)
			}
			if _, ok, _ := s.GetItem("a"); ok {
				t.Error("expected removed key to be absent")
			}

			// removing an absent key is not an error
			if err := s.RemoveItem("never-existed"); err != nil {
				t.Errorf("removing absent key must not fail: %v", err)
			}
		})

		t.Run("KeysAndClear", func(t *testing.T) {
			s := factory(t, 0)

			_ = s.SetItem("x", "1")
			_ = s.SetItem("y", "2")
			_ = s.SetItem("z", "3")

			keys, err := s.Keys()
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			sort.Strings(keys)
			if len(keys) != 3 || keys[0] != "x" || keys[2] != "z" {
				t.Errorf("unexpected keys: %v", keys)
			}

			if err := s.Clear(); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			keys, _ = s.Keys()
			if len(keys) != 0 {
				t.Errorf("expected no keys after Clear, got %v", keys)
			}
		})

		t.Run("Quota", func(t *testing.T) {
			s := factory(t, 32)

			if err := s.SetItem("k1", "0123456789"); err != nil {
				t.Fatalf("write within quota failed: %v", err)
			}

			err := s.SetItem("k2", "this text is far too large for the quota")
			if !errors.Is(err, cache.ErrQuotaExceeded) {
				t.Fatalf("expected ErrQuotaExceeded, got %v", err)
			}

			// the failed write must not have consumed quota
			if err := s.SetItem("k3", "tiny"); err != nil {
				t.Errorf("small write after rejection failed: %v", err)
			}

			// removing frees quota again
			_ = s.RemoveItem("k1")
			if err := s.SetItem("k4", "0123456789"); err != nil {
				t.Errorf("write after free failed: %v", err)
			}
		})
	})
}

func TestRawStorages(t *testing.T) {
	runRawStorageTests(t, "Memory", func(t *testing.T, quota int64) RawStorage {
		return NewMemStorage(quota)
	})

	runRawStorageTests(t, "LevelDB", func(t *testing.T, quota int64) RawStorage {
		s, err := NewLevelDBStorage(t.TempDir(), quota)
		if err != nil {
			t.Fatalf("cannot open leveldb: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestLevelDBReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	s, err := NewLevelDBStorage(dir, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.SetItem("persist", "still here")
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewLevelDBStorage(dir, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	text, ok, err := s.GetItem("persist")
	if err != nil || !ok || text != "still here" {
		t.Fatalf("expected value to survive reopen, got %q (ok=%v err=%v)", text, ok, err)
	}
}
