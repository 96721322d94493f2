package clipper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// CleanVideoURL normalizes a source URL to the canonical watch form, dropping
// the playlist and playback-position parameters that break range requests.
// Non-YouTube hosts and malformed video identifiers are rejected so the run
// fails before any external cost is incurred.
func CleanVideoURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("video URL is required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid video URL %q: %w", raw, err)
	}

	host := strings.ToLower(parsed.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(parsed.Path, "/")
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		path := strings.Trim(parsed.Path, "/")
		switch {
		case path == "watch":
			id = parsed.Query().Get("v")
		case strings.HasPrefix(path, "shorts/"):
			id = strings.TrimPrefix(path, "shorts/")
		case strings.HasPrefix(path, "live/"):
			id = strings.TrimPrefix(path, "live/")
		case strings.HasPrefix(path, "embed/"):
			id = strings.TrimPrefix(path, "embed/")
		default:
			return "", fmt.Errorf("unsupported YouTube URL form %q", raw)
		}
	default:
		return "", fmt.Errorf("unsupported video host %q: only YouTube URLs are accepted", host)
	}

	id = strings.TrimSuffix(id, "/")
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("could not find a valid video identifier in %q", raw)
	}
	return "https://www.youtube.com/watch?v=" + id, nil
}
