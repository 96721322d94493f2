package runstore

import (
	"strings"
	"testing"
)

func TestAcquireDataLock_BlocksConcurrentAcquire(t *testing.T) {
	dataDir := t.TempDir()

	lock, err := AcquireDataLock(dataDir)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	if _, err := AcquireDataLock(dataDir); err == nil {
		t.Fatalf("expected second acquire to fail")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}

	lock2, err := AcquireDataLock(dataDir)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}

func TestAcquireDataLock_ConflictNamesBoundRun(t *testing.T) {
	dataDir := t.TempDir()

	lock, err := AcquireDataLock(dataDir)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()
	if err := lock.Bind("20260831-101112"); err != nil {
		t.Fatalf("bind run: %v", err)
	}

	_, err = AcquireDataLock(dataDir)
	if err == nil {
		t.Fatal("expected conflicting acquire to fail")
	}
	if !strings.Contains(err.Error(), "run=20260831-101112") {
		t.Errorf("conflict error %q does not name the active run", err)
	}
	if !strings.Contains(err.Error(), "pid=") {
		t.Errorf("conflict error %q does not name the holder pid", err)
	}
}

func TestDataLock_BindRequiresHeldLock(t *testing.T) {
	var unheld DataLock
	if err := unheld.Bind("20260831-101112"); err == nil {
		t.Fatal("Bind on an unheld lock must fail")
	}
}
