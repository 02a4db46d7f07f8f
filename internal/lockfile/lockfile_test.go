package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquire(t *testing.T) {
	t.Run("creates lock file", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := Acquire(dir)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(filepath.Join(dir, lockName)); os.IsNotExist(err) {
			t.Error("lock file not created")
		}
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := Acquire(dir)
		if err != nil {
			t.Fatalf("first Acquire failed: %v", err)
		}
		defer lock1.Release()

		_, err = Acquire(dir)
		if !errors.Is(err, ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}
	})

	t.Run("release allows reacquisition", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := Acquire(dir)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("second Release failed: %v", err)
		}

		lock2, err := Acquire(dir)
		if err != nil {
			t.Fatalf("reacquire failed: %v", err)
		}
		lock2.Release()
	})

	t.Run("reclaims stale lock", func(t *testing.T) {
		dir := t.TempDir()
		lockPath := filepath.Join(dir, lockName)
		if err := os.WriteFile(lockPath, []byte("pid=1\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-StaleThreshold - time.Minute)
		if err := os.Chtimes(lockPath, old, old); err != nil {
			t.Fatal(err)
		}

		lock, err := Acquire(dir)
		if err != nil {
			t.Fatalf("Acquire over stale lock failed: %v", err)
		}
		lock.Release()
	})
}
