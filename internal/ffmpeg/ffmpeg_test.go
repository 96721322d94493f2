package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFakeBinary(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestProbe_ParsesVideoStream(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "ffprobe", `cat <<'EOF'
{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":854,"height":480}]}
EOF`)
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	res, err := Transcoder{}.Probe(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if res.Width != 854 || res.Height != 480 {
		t.Fatalf("resolution = %+v, want 854x480", res)
	}
	if res.String() != "480p" {
		t.Fatalf("label = %q, want 480p", res.String())
	}
}

func TestProbe_NoVideoStream(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "ffprobe", `echo '{"streams":[{"codec_type":"audio"}]}'`)
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	if _, err := (Transcoder{}).Probe(context.Background(), "/tmp/audio.m4a"); err == nil {
		t.Fatal("expected error when no video stream is present")
	}
}

func TestExtractRange_ArgumentsAndFailure(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	writeFakeBinary(t, dir, "ffmpeg", `printf '%s\n' "$@" > `+argsFile)
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	err := Transcoder{}.ExtractRange(context.Background(), "/tmp/full.mp4", "/tmp/clip.mp4", 30, 60)
	if err != nil {
		t.Fatalf("ExtractRange failed: %v", err)
	}
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.ReplaceAll(string(data), "\n", " ")
	for _, want := range []string{"-ss 30", "-t 60", "-c copy", "/tmp/full.mp4", "/tmp/clip.mp4"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args missing %q: %s", want, joined)
		}
	}

	if err := (Transcoder{}).ExtractRange(context.Background(), "in", "out", 0, 0); err == nil {
		t.Fatal("expected error for non-positive duration")
	}
}

func TestThumbnail_SurfacesStderr(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "ffmpeg", `echo "could not open input" >&2; exit 1`)
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	err := Transcoder{}.Thumbnail(context.Background(), "/tmp/clip.mp4", "/tmp/thumb.jpg")
	if err == nil || !strings.Contains(err.Error(), "could not open input") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
