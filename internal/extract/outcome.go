package extract

import (
	"errors"
	"strings"
)

var (
	// ErrAllStrategiesFailed marks per-clip exhaustion: every enabled tier
	// failed or was skipped without producing an output file.
	ErrAllStrategiesFailed = errors.New("all download strategies failed to produce the expected output file")
	// ErrAuthChallenge marks a sign-in challenge from the source platform.
	// It is fatal to the whole run: no per-clip recovery is possible without
	// fresh credentials.
	ErrAuthChallenge = errors.New("source platform requires sign-in; provide a fresh cookie file from a logged-in browser session")
)

// IsAuthChallenge reports whether err is, or carries, an authentication
// challenge from the source platform.
func IsAuthChallenge(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthChallenge) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "sign in to confirm")
}

// Outcome is the uniform result of one strategy attempt. Exactly one of the
// three constructors applies: the tier produced a file, deliberately stood
// aside, or genuinely failed.
type Outcome struct {
	File       string
	SkipReason string
	Err        error
}

func Success(file string) Outcome { return Outcome{File: file} }
func Skip(reason string) Outcome  { return Outcome{SkipReason: reason} }
func Fail(err error) Outcome      { return Outcome{Err: err} }

func (o Outcome) Succeeded() bool { return o.File != "" }
func (o Outcome) Skipped() bool   { return o.SkipReason != "" }
