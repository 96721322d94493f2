package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimecode converts "HH:MM:SS", "MM:SS", or plain "SS" into seconds.
// The boolean reports whether the input was well formed.
func ParseTimecode(raw string) (int, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}
	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}

// ToSeconds is the lenient form used throughout processing: malformed input
// maps to 0 rather than failing the clip. Validation reports malformed
// timecodes separately, before a run starts.
func ToSeconds(raw string) int {
	seconds, _ := ParseTimecode(raw)
	return seconds
}

// FormatTimecode renders seconds as zero-padded HH:MM:SS.
func FormatTimecode(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
