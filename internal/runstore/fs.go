// Package runstore owns the on-disk layout of extraction runs: one directory
// per run under the data dir, holding the run metadata, the results stream,
// and the run lock.
package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunMeta is the run.json record written when a run directory is created and
// finalized when the run ends.
type RunMeta struct {
	RunID          string `json:"run_id"`
	CreatedAt      string `json:"created_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
	VideoIdentity  string `json:"video_identity"`
	Quality        string `json:"quality"`
	TotalClips     int    `json:"total_clips"`
	ProcessedCount int    `json:"processed_count"`
	FailedCount    int    `json:"failed_count"`
	Resumed        bool   `json:"resumed"`
}

func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// WriteBytes writes data atomically: temp file in the target directory, then
// rename.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".clipx-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}

func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteBytes(path, data)
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse JSON %s: %w", path, err)
	}
	return nil
}

// RunsDir is where run directories live under the data dir.
func RunsDir(dataDir string) string {
	return filepath.Join(dataDir, "runs")
}

// NewRunDir creates a fresh run directory named by a sortable UTC timestamp
// and returns its path and run ID.
func NewRunDir(dataDir string) (string, string, error) {
	runID := time.Now().UTC().Format("20060102-150405")
	dir := filepath.Join(RunsDir(dataDir), runID)
	for i := 1; ; i++ {
		err := os.MkdirAll(filepath.Dir(dir), 0o755)
		if err != nil {
			return "", "", fmt.Errorf("create runs directory: %w", err)
		}
		if err := os.Mkdir(dir, 0o755); err == nil {
			return dir, runID, nil
		} else if !os.IsExist(err) {
			return "", "", fmt.Errorf("create run directory %s: %w", dir, err)
		}
		// Same-second collision; suffix and retry.
		runID = fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), i)
		dir = filepath.Join(RunsDir(dataDir), runID)
	}
}

func LatestRunDir(runsDir string) (string, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return "", fmt.Errorf("read runs directory %s: %w", runsDir, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no run directories found in %s", runsDir)
	}

	sort.Strings(dirs)
	return filepath.Join(runsDir, dirs[len(dirs)-1]), nil
}

func ListRunDirs(runsDir string) ([]string, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read runs directory %s: %w", runsDir, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(runsDir, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func RunMetaPath(runDir string) string {
	return filepath.Join(runDir, "run.json")
}

func LoadRunMeta(runDir string) (RunMeta, error) {
	var meta RunMeta
	if err := ReadJSON(RunMetaPath(runDir), &meta); err != nil {
		return RunMeta{}, err
	}
	return meta, nil
}

func SaveRunMeta(runDir string, meta RunMeta) error {
	return WriteJSON(RunMetaPath(runDir), meta)
}
