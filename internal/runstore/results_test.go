package runstore

import (
	"testing"

	"yt-clip-extractor/internal/model"
)

func TestResultsWriterRoundTrip(t *testing.T) {
	runDir := t.TempDir()

	writer, err := NewResultsWriter(runDir)
	if err != nil {
		t.Fatalf("NewResultsWriter: %v", err)
	}
	if err := writer.EmitClip(model.ClipResult{Name: "Intro", ClipIndex: 0, URL: "https://example.com/a.mp4"}); err != nil {
		t.Fatalf("EmitClip: %v", err)
	}
	if err := writer.EmitClip(model.ClipResult{Name: "Outro", ClipIndex: 1, Failed: true, Error: "exhausted"}); err != nil {
		t.Fatalf("EmitClip: %v", err)
	}
	if err := writer.EmitSummary(model.RunSummary{Summary: true, TotalClips: 2, ProcessedCount: 1, FailedCount: 1}); err != nil {
		t.Fatalf("EmitSummary: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	clips, summary, err := ReadResults(runDir)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	if clips[0].Name != "Intro" || clips[1].Name != "Outro" {
		t.Errorf("clip order = %q, %q; want Intro, Outro", clips[0].Name, clips[1].Name)
	}
	if !clips[1].Failed || clips[1].Error != "exhausted" {
		t.Errorf("failed clip = %+v, want failure fields preserved", clips[1])
	}
	if summary == nil {
		t.Fatal("summary record missing")
	}
	if summary.ProcessedCount != 1 || summary.FailedCount != 1 {
		t.Errorf("summary counts = %d/%d, want 1/1", summary.ProcessedCount, summary.FailedCount)
	}
}

func TestNewRunDirAndMeta(t *testing.T) {
	dataDir := t.TempDir()

	dir, runID, err := NewRunDir(dataDir)
	if err != nil {
		t.Fatalf("NewRunDir: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run ID")
	}

	meta := RunMeta{RunID: runID, VideoIdentity: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Quality: "480p", TotalClips: 3}
	if err := SaveRunMeta(dir, meta); err != nil {
		t.Fatalf("SaveRunMeta: %v", err)
	}
	loaded, err := LoadRunMeta(dir)
	if err != nil {
		t.Fatalf("LoadRunMeta: %v", err)
	}
	if loaded != meta {
		t.Errorf("LoadRunMeta = %+v, want %+v", loaded, meta)
	}

	latest, err := LatestRunDir(RunsDir(dataDir))
	if err != nil {
		t.Fatalf("LatestRunDir: %v", err)
	}
	if latest != dir {
		t.Errorf("LatestRunDir = %q, want %q", latest, dir)
	}
}
