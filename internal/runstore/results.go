package runstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"yt-clip-extractor/internal/model"
)

// ResultsFilename is the per-run results stream: one JSON object per line,
// clip records in processing order, the summary record last.
const ResultsFilename = "results.jsonl"

func ResultsPath(runDir string) string {
	return filepath.Join(runDir, ResultsFilename)
}

// ResultsWriter appends clip records and the terminal summary to the run's
// results stream. Each record is flushed as soon as it is written so a crash
// never loses an emitted record.
type ResultsWriter struct {
	mu   sync.Mutex
	file *os.File
}

func NewResultsWriter(runDir string) (*ResultsWriter, error) {
	file, err := os.OpenFile(ResultsPath(runDir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open results stream: %w", err)
	}
	return &ResultsWriter{file: file}, nil
}

func (w *ResultsWriter) EmitClip(result model.ClipResult) error {
	return w.writeLine(result)
}

func (w *ResultsWriter) EmitSummary(summary model.RunSummary) error {
	return w.writeLine(summary)
}

func (w *ResultsWriter) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result record: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("append result record: %w", err)
	}
	return w.file.Sync()
}

func (w *ResultsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadResults loads a run's results stream back, clip records and summary
// separated.
func ReadResults(runDir string) ([]model.ClipResult, *model.RunSummary, error) {
	data, err := os.ReadFile(ResultsPath(runDir))
	if err != nil {
		return nil, nil, fmt.Errorf("read results stream: %w", err)
	}

	var clips []model.ClipResult
	var summary *model.RunSummary
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var probe struct {
			Summary bool `json:"summary"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			return nil, nil, fmt.Errorf("parse result record: %w", err)
		}
		if probe.Summary {
			var s model.RunSummary
			if err := json.Unmarshal(line, &s); err != nil {
				return nil, nil, fmt.Errorf("parse summary record: %w", err)
			}
			summary = &s
			continue
		}
		var c model.ClipResult
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, nil, fmt.Errorf("parse clip record: %w", err)
		}
		clips = append(clips, c)
	}
	return clips, summary, nil
}
