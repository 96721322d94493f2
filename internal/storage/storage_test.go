package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestObjectKey_Format(t *testing.T) {
	key := ObjectKey("clip_Intro", "mp4")
	pattern := regexp.MustCompile(`^clip_Intro_\d+_[0-9a-f]{16}\.mp4$`)
	if !pattern.MatchString(key) {
		t.Fatalf("key %q does not match expected format", key)
	}
	if ObjectKey("clip_Intro", "mp4") == key {
		t.Fatal("object keys must be unique across calls")
	}
}

func TestFileStore_PutAndURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	url, err := store.Put(context.Background(), "clip_a_1_abcd.mp4", []byte("media"), "video/mp4")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Fatalf("expected file URL without base URL, got %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "clip_a_1_abcd.mp4"))
	if err != nil || string(data) != "media" {
		t.Fatalf("stored object mismatch: %q err=%v", data, err)
	}
}

func TestFileStore_BaseURL(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "https://records.example.com/v2/")
	if err != nil {
		t.Fatal(err)
	}
	url, err := store.Put(context.Background(), "k.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://records.example.com/v2/k.jpg" {
		t.Fatalf("url = %q", url)
	}
}

func TestFileStore_RejectsTraversalKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../escape.mp4", "a/b.mp4"} {
		if _, err := store.Put(context.Background(), key, nil, "video/mp4"); err == nil {
			t.Fatalf("expected rejection of key %q", key)
		}
	}
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(src, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := NewFileStore(filepath.Join(dir, "objects"), "")
	if err != nil {
		t.Fatal(err)
	}

	url, err := UploadFile(context.Background(), store, src, "video", "clip_Intro")
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if !strings.Contains(url, "clip_Intro_") || !strings.HasSuffix(url, ".mp4") {
		t.Fatalf("unexpected url %q", url)
	}

	if _, err := UploadFile(context.Background(), store, filepath.Join(dir, "missing.jpg"), "image", "clip_X"); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
