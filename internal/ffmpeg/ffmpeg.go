// Package ffmpeg wraps the external ffmpeg/ffprobe tools for the three local
// media operations the pipeline needs: resolution probing, range extraction
// from a full source, and thumbnail generation.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Resolution is a probed video stream size.
type Resolution struct {
	Width  int
	Height int
}

// String renders the conventional "<height>p" label.
func (r Resolution) String() string {
	return fmt.Sprintf("%dp", r.Height)
}

// Transcoder shells out to ffmpeg and ffprobe. Zero value is usable.
type Transcoder struct {
	FFmpegBinary  string
	FFprobeBinary string
}

func (t Transcoder) ffmpeg() string {
	if strings.TrimSpace(t.FFmpegBinary) != "" {
		return t.FFmpegBinary
	}
	return "ffmpeg"
}

func (t Transcoder) ffprobe() string {
	if strings.TrimSpace(t.FFprobeBinary) != "" {
		return t.FFprobeBinary
	}
	return "ffprobe"
}

// Probe returns the first video stream's resolution.
func (t Transcoder) Probe(ctx context.Context, inputPath string) (Resolution, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		inputPath,
	}
	cmd := exec.CommandContext(ctx, t.ffprobe(), args...)
	output, err := cmd.Output()
	if err != nil {
		return Resolution{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return Resolution{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			return Resolution{Width: stream.Width, Height: stream.Height}, nil
		}
	}
	return Resolution{}, fmt.Errorf("no video stream found in %s", inputPath)
}

// ExtractRange copies [startSec, startSec+durationSec) from inputPath into
// outputPath without re-encoding.
func (t Transcoder) ExtractRange(ctx context.Context, inputPath, outputPath string, startSec, durationSec int) error {
	if durationSec <= 0 {
		return fmt.Errorf("extraction duration must be positive, got %d", durationSec)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-ss", fmt.Sprintf("%d", startSec),
		"-t", fmt.Sprintf("%d", durationSec),
		"-c", "copy",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, t.ffmpeg(), args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg range extraction failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Thumbnail grabs one frame a second into the clip as a JPEG.
func (t Transcoder) Thumbnail(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-ss", "1",
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, t.ffmpeg(), args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
