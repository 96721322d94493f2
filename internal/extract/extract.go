// Package extract runs the tiered download cascade for a single clip: a
// ranged download first, a compatibility-format ranged download second, and a
// full-source download with local range extraction last. Each tier reports a
// uniform Outcome so the cascade can fall through deliberately instead of
// guessing from error text.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"yt-clip-extractor/internal/retry"
	"yt-clip-extractor/internal/ytdlp"
)

// Downloader is the slice of the yt-dlp client the cascade needs.
type Downloader interface {
	DownloadSection(ctx context.Context, opts ytdlp.SectionOptions) error
	DownloadFull(ctx context.Context, opts ytdlp.FullOptions) error
	ProbeDuration(ctx context.Context, opts ytdlp.ProbeOptions) (int, error)
}

// RangeExtractor cuts a time range out of a local source file.
type RangeExtractor interface {
	ExtractRange(ctx context.Context, inputPath, outputPath string, startSec, durationSec int) error
}

// Egress supplies the proxy URL for the next command and rotates the session
// after network failures. A no-proxy run uses DirectEgress.
type Egress interface {
	ProxyURL() string
	Rotate(ctx context.Context) error
}

// DirectEgress is the no-proxy Egress: empty URL, rotation is a no-op.
type DirectEgress struct{}

func (DirectEgress) ProxyURL() string             { return "" }
func (DirectEgress) Rotate(context.Context) error { return nil }

// Job carries everything the cascade needs for one clip.
type Job struct {
	ClipName       string
	ClipIdentifier string
	VideoURL       string
	StartSeconds   int
	EndSeconds     int
	MaxHeight      int
	OutputPath     string
	CookiesPath    string
	TempDir        string
	MaxAttempts    int
	LogWriter      io.Writer

	// FallbackCharges counts successes on fallback tiers; the orchestrator
	// raises one extra processing charge per count.
	FallbackCharges int
}

func (j *Job) DurationSeconds() int { return j.EndSeconds - j.StartSeconds }

// Strategy is one tier of the cascade.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, job *Job) Outcome
}

const (
	minSectionTimeout = 180 * time.Second
	maxSectionTimeout = 720 * time.Second
)

// AdaptiveTimeout sizes the per-attempt deadline for a ranged download from
// the clip length: twice the clip duration plus a minute of overhead, clamped
// to [3, 12] minutes.
func AdaptiveTimeout(durationSec int) time.Duration {
	d := time.Duration(2*durationSec+60) * time.Second
	if d < minSectionTimeout {
		return minSectionTimeout
	}
	if d > maxSectionTimeout {
		return maxSectionTimeout
	}
	return d
}

// DirectStrategy is the first tier: a ranged download with the strict format
// selector.
type DirectStrategy struct {
	Downloader Downloader
	Egress     Egress
	Logger     *slog.Logger
	// Backoff overrides the retry engine's base delay; zero keeps the default.
	Backoff time.Duration
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Attempt(ctx context.Context, job *Job) Outcome {
	return attemptSection(ctx, job, s.Downloader, s.Egress, s.Logger, s.Backoff, false)
}

// CompatStrategy is the second tier: the same ranged download with the
// permissive format selector for sources whose capped encode is unavailable.
// A success here is a fallback success and raises an extra charge.
type CompatStrategy struct {
	Downloader Downloader
	Egress     Egress
	Logger     *slog.Logger
	Backoff    time.Duration
}

func (s *CompatStrategy) Name() string { return "compat" }

func (s *CompatStrategy) Attempt(ctx context.Context, job *Job) Outcome {
	out := attemptSection(ctx, job, s.Downloader, s.Egress, s.Logger, s.Backoff, true)
	if out.Succeeded() {
		job.FallbackCharges++
	}
	return out
}

func attemptSection(ctx context.Context, job *Job, dl Downloader, egress Egress, logger *slog.Logger, backoff time.Duration, compat bool) Outcome {
	label := "ranged download"
	if compat {
		label = "compat ranged download"
	}
	timeout := AdaptiveTimeout(job.DurationSeconds())

	err := retry.Run(ctx, label, func(ctx context.Context) error {
		// Options are rebuilt every attempt so a rotated proxy takes effect.
		return dl.DownloadSection(ctx, ytdlp.SectionOptions{
			VideoURL:     job.VideoURL,
			OutputPath:   job.OutputPath,
			StartSeconds: job.StartSeconds,
			EndSeconds:   job.EndSeconds,
			MaxHeight:    job.MaxHeight,
			Compat:       compat,
			CookiesPath:  job.CookiesPath,
			ProxyURL:     egress.ProxyURL(),
			LogWriter:    job.LogWriter,
		})
	}, retry.Options{
		MaxAttempts:       job.MaxAttempts,
		PerAttemptTimeout: timeout,
		OnNetworkFailure:  egress.Rotate,
		BaseDelay:         backoff,
		Logger:            logger,
	})
	if err != nil {
		return Fail(err)
	}
	return verifyOutput(job.OutputPath)
}

// FullSourceStrategy is the last tier: download the whole source once, then
// cut the range locally. The source stays cached for later clips in the run.
type FullSourceStrategy struct {
	Downloader Downloader
	Extractor  RangeExtractor
	Egress     Egress
	Cache      *SourceCache
	Logger     *slog.Logger

	// MaxSourceMinutes caps how long a source this tier will download; zero
	// disables the safeguard.
	MaxSourceMinutes int
	// DownloadTimeout bounds each full-download attempt.
	DownloadTimeout time.Duration
	// DownloadRetries bounds full-download attempts; the expensive tier gets
	// fewer tries than the ranged ones.
	DownloadRetries int
	// ProbeTimeout bounds the duration probe; zero means 30s.
	ProbeTimeout time.Duration
	Backoff      time.Duration
}

func (s *FullSourceStrategy) Name() string { return "full-source" }

func (s *FullSourceStrategy) Attempt(ctx context.Context, job *Job) Outcome {
	logger := s.logger()

	if cached, ok := s.Cache.Get(job.MaxHeight); ok {
		logger.Info("reusing cached full source", "clip", job.ClipName, "source", cached)
		if err := s.extract(ctx, job, cached); err != nil {
			logger.Warn("extraction from cached source failed, invalidating cache", "clip", job.ClipName, "error", err)
			s.Cache.Invalidate()
		} else {
			return s.finish(job)
		}
	}

	if reason, skip := s.tooLongToDownload(ctx, job); skip {
		return Skip(reason)
	}

	source, err := s.download(ctx, job)
	if err != nil {
		return Fail(err)
	}
	s.Cache.Put(job.MaxHeight, source)

	if err := s.extract(ctx, job, source); err != nil {
		s.Cache.Invalidate()
		return Fail(err)
	}
	return s.finish(job)
}

// finish verifies the clip file and counts the fallback surcharge. The charge
// attaches to the successful local extraction, so cache hits count the same
// as fresh downloads.
func (s *FullSourceStrategy) finish(job *Job) Outcome {
	out := verifyOutput(job.OutputPath)
	if out.Succeeded() {
		job.FallbackCharges++
	}
	return out
}

// tooLongToDownload probes the source runtime before committing to a full
// download. A failed probe does not block the attempt; only a confirmed
// over-limit runtime does.
func (s *FullSourceStrategy) tooLongToDownload(ctx context.Context, job *Job) (string, bool) {
	if s.MaxSourceMinutes <= 0 {
		return "", false
	}
	probeTimeout := s.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 30 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	duration, err := s.Downloader.ProbeDuration(probeCtx, ytdlp.ProbeOptions{
		VideoURL:    job.VideoURL,
		CookiesPath: job.CookiesPath,
		ProxyURL:    s.Egress.ProxyURL(),
	})
	if err != nil {
		s.logger().Warn("duration probe failed, proceeding with full download", "clip", job.ClipName, "error", err)
		return "", false
	}
	limit := s.MaxSourceMinutes * 60
	if duration > limit {
		return fmt.Sprintf("source runtime %ds exceeds the %dm full-download limit", duration, s.MaxSourceMinutes), true
	}
	return "", false
}

func (s *FullSourceStrategy) download(ctx context.Context, job *Job) (string, error) {
	prefix := "full_source_" + job.ClipIdentifier
	template := filepath.Join(job.TempDir, prefix+".%(ext)s")

	retries := s.DownloadRetries
	if retries < 1 {
		retries = 1
	}
	err := retry.Run(ctx, "full-source download", func(ctx context.Context) error {
		return s.Downloader.DownloadFull(ctx, ytdlp.FullOptions{
			VideoURL:       job.VideoURL,
			OutputTemplate: template,
			MaxHeight:      job.MaxHeight,
			CookiesPath:    job.CookiesPath,
			ProxyURL:       s.Egress.ProxyURL(),
			LogWriter:      job.LogWriter,
		})
	}, retry.Options{
		MaxAttempts:       retries,
		PerAttemptTimeout: s.DownloadTimeout,
		OnNetworkFailure:  s.Egress.Rotate,
		BaseDelay:         s.Backoff,
		Logger:            s.logger(),
	})
	if err != nil {
		return "", err
	}

	// yt-dlp chose the extension, so glob for the file it wrote.
	matches, err := filepath.Glob(filepath.Join(job.TempDir, prefix+".*"))
	if err != nil {
		return "", fmt.Errorf("locate downloaded source: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("full-source download reported success but wrote no file matching %s.*", prefix)
	}
	return matches[0], nil
}

func (s *FullSourceStrategy) extract(ctx context.Context, job *Job, source string) error {
	return s.Extractor.ExtractRange(ctx, source, job.OutputPath, job.StartSeconds, job.DurationSeconds())
}

func (s *FullSourceStrategy) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func verifyOutput(path string) Outcome {
	info, err := os.Stat(path)
	if err != nil {
		return Fail(fmt.Errorf("download reported success but output file is missing: %w", err))
	}
	if info.Size() == 0 {
		return Fail(fmt.Errorf("download produced an empty file at %s", path))
	}
	return Success(path)
}
