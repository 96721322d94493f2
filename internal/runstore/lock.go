package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	lockDirName   = ".extractor.lock"
	lockOwnerFile = "owner.json"
)

// lockOwner is persisted inside the lock so a refused acquire can say who
// holds it and which run it is serving.
type lockOwner struct {
	PID       int    `json:"pid"`
	StartedAt string `json:"started_at"`
	Hostname  string `json:"hostname,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

func (o lockOwner) describe() string {
	parts := []string{fmt.Sprintf("pid=%d", o.PID), "since=" + o.StartedAt}
	if o.Hostname != "" {
		parts = append(parts, "host="+o.Hostname)
	}
	if o.RunID != "" {
		parts = append(parts, "run="+o.RunID)
	}
	return strings.Join(parts, " ")
}

// DataLock guards a data directory against two concurrent runs. The proxy
// session, checkpoint blob, and full-source cache are all single-run state,
// so a second process must be refused up front.
type DataLock struct {
	lockDir string
	owner   lockOwner
}

// AcquireDataLock takes the lock for this process. The run ID is not known
// yet at acquire time; Bind records it once the run directory exists.
func AcquireDataLock(dataDir string) (DataLock, error) {
	target := strings.TrimSpace(dataDir)
	if target == "" {
		return DataLock{}, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return DataLock{}, fmt.Errorf("create data directory %s: %w", target, err)
	}

	lockDir := filepath.Join(target, lockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			var holder lockOwner
			if readErr := ReadJSON(filepath.Join(lockDir, lockOwnerFile), &holder); readErr == nil && holder.PID > 0 {
				return DataLock{}, fmt.Errorf("another run is already active in %s (%s)", target, holder.describe())
			}
			return DataLock{}, fmt.Errorf("another run is already active in %s", target)
		}
		return DataLock{}, fmt.Errorf("acquire run lock for %s: %w", target, err)
	}

	lock := DataLock{
		lockDir: lockDir,
		owner: lockOwner{
			PID:       os.Getpid(),
			StartedAt: time.Now().UTC().Format(time.RFC3339),
			Hostname:  hostnameOrUnknown(),
		},
	}
	if err := lock.writeOwner(); err != nil {
		_ = os.Remove(lockDir)
		return DataLock{}, fmt.Errorf("write run lock owner for %s: %w", target, err)
	}
	return lock, nil
}

// Bind records the run directory this lock is now serving, so a concurrent
// acquire can name the run that refused it.
func (l *DataLock) Bind(runID string) error {
	if strings.TrimSpace(l.lockDir) == "" {
		return fmt.Errorf("lock is not held")
	}
	l.owner.RunID = runID
	return l.writeOwner()
}

func (l DataLock) writeOwner() error {
	return WriteJSON(filepath.Join(l.lockDir, lockOwnerFile), l.owner)
}

func (l DataLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release run lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
