// Package checkpoint persists per-run progress so an interrupted run can
// skip already-completed clips on restart. Saves happen after every clip, so
// a crash loses at most one clip's work.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ProgressKey names the single blob each run scope stores.
const ProgressKey = "processing-progress"

// Progress is the persisted resume state.
type Progress struct {
	VideoIdentity      string   `json:"video_identity"`
	TotalClips         int      `json:"total_clips"`
	ProcessedCount     int      `json:"processed_count"`
	FailedCount        int      `json:"failed_count"`
	CompletedClipNames []string `json:"completed_clip_names"`
	LastUpdatedAt      string   `json:"last_updated_at"`
}

// IsCompleted reports whether a clip was already attempted in a prior run.
// Failed clips count: they are not retried on resume.
func (p *Progress) IsCompleted(name string) bool {
	for _, n := range p.CompletedClipNames {
		if n == name {
			return true
		}
	}
	return false
}

// MarkCompleted records a clip as attempted, idempotently.
func (p *Progress) MarkCompleted(name string) {
	if !p.IsCompleted(name) {
		p.CompletedClipNames = append(p.CompletedClipNames, name)
	}
}

// Store is the durable key-value blob interface: get/set/delete only, no
// partial updates. Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Manager wraps a Store with the resume policy: a checkpoint only resumes a
// run for the same normalized video identity; anything else is stale and
// ignored. Save failures degrade to a warning so they never abort a run.
type Manager struct {
	store  Store
	logger *slog.Logger
}

func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{store: store, logger: logger}
}

// Load returns saved progress for videoIdentity, or nil for a fresh run.
// Read failures and stale checkpoints both mean "fresh run".
func (m *Manager) Load(ctx context.Context, videoIdentity string) *Progress {
	data, err := m.store.Get(ctx, ProgressKey)
	if err != nil {
		m.logger.Warn("failed to load progress, starting fresh", "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		m.logger.Warn("corrupt progress checkpoint ignored", "error", err)
		return nil
	}
	if progress.VideoIdentity != videoIdentity {
		m.logger.Info("stale checkpoint for a different video ignored",
			"saved", progress.VideoIdentity, "current", videoIdentity)
		return nil
	}
	m.logger.Info("resuming from saved progress",
		"processed", progress.ProcessedCount, "failed", progress.FailedCount, "total", progress.TotalClips)
	return &progress
}

// Save persists progress after a clip. Failures are logged, never escalated.
func (m *Manager) Save(ctx context.Context, progress Progress) {
	progress.LastUpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(progress)
	if err != nil {
		m.logger.Warn("failed to encode progress", "error", err)
		return
	}
	if err := m.store.Set(ctx, ProgressKey, data); err != nil {
		m.logger.Warn("failed to save progress", "error", err)
		return
	}
	m.logger.Debug("progress checkpoint saved",
		"completed", progress.ProcessedCount+progress.FailedCount, "total", progress.TotalClips)
}

// Clear removes the checkpoint after a fully successful run.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, ProgressKey); err != nil {
		return fmt.Errorf("clear progress checkpoint: %w", err)
	}
	return nil
}
