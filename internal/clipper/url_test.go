package clipper

import (
	"strings"
	"testing"
)

func TestCleanVideoURL(t *testing.T) {
	const want = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	cases := []struct {
		name string
		in   string
	}{
		{"plain watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ"},
		{"short link with timestamp", "https://youtu.be/dQw4w9WgXcQ?t=30"},
		{"watch with playlist params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLx&index=3"},
		{"watch with start and end", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&start=10&end=40"},
		{"watch with time_continue", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&time_continue=99"},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ"},
		{"live", "https://www.youtube.com/live/dQw4w9WgXcQ"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"schemeless", "youtube.com/watch?v=dQw4w9WgXcQ"},
		{"trailing slash", "https://youtu.be/dQw4w9WgXcQ/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CleanVideoURL(tc.in)
			if err != nil {
				t.Fatalf("CleanVideoURL(%q) error = %v", tc.in, err)
			}
			if got != want {
				t.Errorf("CleanVideoURL(%q) = %q, want %q", tc.in, got, want)
			}
		})
	}
}

func TestCleanVideoURLRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
		hint string
	}{
		{"empty", "", "required"},
		{"foreign host", "https://vimeo.com/12345", "host"},
		{"short identifier", "https://youtu.be/abc", "identifier"},
		{"long identifier", "https://www.youtube.com/watch?v=abcdefghijklmnop", "identifier"},
		{"missing v param", "https://www.youtube.com/watch?list=PLx", "identifier"},
		{"channel page", "https://www.youtube.com/@somechannel", "unsupported"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CleanVideoURL(tc.in)
			if err == nil {
				t.Fatalf("CleanVideoURL(%q) accepted, want error", tc.in)
			}
			if !strings.Contains(strings.ToLower(err.Error()), tc.hint) {
				t.Errorf("error %q does not mention %q", err, tc.hint)
			}
		})
	}
}
