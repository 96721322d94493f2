package model

import (
	"fmt"
	"strings"
)

const (
	// MaxClipsPerRun bounds one run's clip list.
	MaxClipsPerRun = 20
	// MaxClipDurationSeconds bounds a single clip's length.
	MaxClipDurationSeconds = 600
)

// ValidQualities lists the accepted quality tiers, lowest first.
var ValidQualities = []string{"360p", "480p", "720p", "1080p"}

// ValidationError carries every violation found in one pass so callers can
// surface a single aggregated report instead of failing on the first issue.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "input validation failed:\n" + strings.Join(e.Violations, "\n")
}

// ValidateOptions lets policy limits be tuned without recompiling; zero
// values fall back to the package defaults.
type ValidateOptions struct {
	MaxClips           int
	MaxClipDurationSec int
}

// Validate checks the whole request and returns a *ValidationError listing
// every violation, or nil. It performs no side effects.
func Validate(req Request, opts ValidateOptions) error {
	maxClips := opts.MaxClips
	if maxClips <= 0 {
		maxClips = MaxClipsPerRun
	}
	maxDuration := opts.MaxClipDurationSec
	if maxDuration <= 0 {
		maxDuration = MaxClipDurationSeconds
	}

	var violations []string

	if strings.TrimSpace(req.VideoURL) == "" {
		violations = append(violations, "Video URL is required")
	}

	switch {
	case len(req.Clips) == 0:
		violations = append(violations, "At least one clip must be specified")
	case len(req.Clips) > maxClips:
		violations = append(violations, fmt.Sprintf("Maximum %d clips allowed per run for cost and performance reasons", maxClips))
	default:
		seen := make(map[string]bool, len(req.Clips))
		for i, clip := range req.Clips {
			n := i + 1
			if strings.TrimSpace(clip.Name) == "" {
				violations = append(violations, fmt.Sprintf("Clip %d: Name is required", n))
			} else if seen[clip.Name] {
				violations = append(violations, fmt.Sprintf("Clip %d: Name %q is already used by an earlier clip", n, clip.Name))
			} else {
				seen[clip.Name] = true
			}

			if strings.TrimSpace(clip.Start) == "" || strings.TrimSpace(clip.End) == "" {
				violations = append(violations, fmt.Sprintf("Clip %d: Both start and end times are required", n))
				continue
			}
			if _, ok := ParseTimecode(clip.Start); !ok {
				violations = append(violations, fmt.Sprintf("Clip %d: Start time %q is not a valid timecode (HH:MM:SS, MM:SS, or SS)", n, clip.Start))
			}
			if _, ok := ParseTimecode(clip.End); !ok {
				violations = append(violations, fmt.Sprintf("Clip %d: End time %q is not a valid timecode (HH:MM:SS, MM:SS, or SS)", n, clip.End))
			}

			duration := clip.DurationSeconds()
			if duration <= 0 {
				violations = append(violations, fmt.Sprintf("Clip %d: End time must be after start time", n))
			} else if duration > maxDuration {
				violations = append(violations, fmt.Sprintf("Clip %d: Maximum clip duration is %d seconds", n, maxDuration))
			}
		}
	}

	if req.Quality != "" && !isValidQuality(req.Quality) {
		violations = append(violations, fmt.Sprintf("Quality must be one of: %s", strings.Join(ValidQualities, ", ")))
	}
	if req.MaxRetries < 0 {
		violations = append(violations, "Max retries must not be negative")
	}
	if req.UseCookies && strings.TrimSpace(req.Cookies) == "" {
		violations = append(violations, "Cookies text is required when use_cookies is set")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func isValidQuality(q string) bool {
	for _, v := range ValidQualities {
		if q == v {
			return true
		}
	}
	return false
}
