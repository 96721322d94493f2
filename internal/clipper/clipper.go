// Package clipper drives one extraction run end to end: input validation and
// URL normalization, quality resolution, proxy session establishment, the
// per-clip download cascade, artifact upload, metering, and checkpointed
// resume. Clips are processed strictly sequentially; the proxy session and
// the full-source cache are shared across iterations and not safe for
// concurrent use.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"yt-clip-extractor/internal/checkpoint"
	"yt-clip-extractor/internal/config"
	"yt-clip-extractor/internal/extract"
	"yt-clip-extractor/internal/ffmpeg"
	"yt-clip-extractor/internal/metering"
	"yt-clip-extractor/internal/model"
	"yt-clip-extractor/internal/proxy"
	"yt-clip-extractor/internal/quality"
	"yt-clip-extractor/internal/storage"
)

// Media is the transcoder surface the orchestrator and the full-source tier
// need. ffmpeg.Transcoder satisfies it.
type Media interface {
	extract.RangeExtractor
	Probe(ctx context.Context, inputPath string) (ffmpeg.Resolution, error)
	Thumbnail(ctx context.Context, inputPath, outputPath string) error
}

// SessionSource hands out and rotates sticky proxy sessions. *proxy.Manager
// satisfies it.
type SessionSource interface {
	NewHealthySession(ctx context.Context, maxAttempts int) (proxy.Session, error)
	Current() (proxy.Session, bool)
	Rotate(ctx context.Context) error
}

// ResultSink receives the per-clip records and the terminal summary.
type ResultSink interface {
	EmitClip(result model.ClipResult) error
	EmitSummary(summary model.RunSummary) error
}

// Orchestrator wires the pipeline's collaborators together for one run at a
// time.
type Orchestrator struct {
	Config      config.Config
	Logger      *slog.Logger
	Downloader  extract.Downloader
	Media       Media
	Store       storage.ObjectStore
	Meter       *metering.Charger
	Checkpoints *checkpoint.Manager
	// Sessions may be nil when no proxy endpoint is configured; the run then
	// egresses directly.
	Sessions SessionSource
	Results  ResultSink

	// Now and Backoff are test seams; zero values use the real clock and the
	// retry engine's default delay.
	Now     func() time.Time
	Backoff time.Duration
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// sessionEgress adapts a SessionSource to the cascade's Egress. Reads always
// go through Current so a rotation between attempts is picked up by the next
// command build.
type sessionEgress struct {
	sessions SessionSource
}

func (e sessionEgress) ProxyURL() string {
	session, ok := e.sessions.Current()
	if !ok {
		return ""
	}
	return session.URL
}

func (e sessionEgress) Rotate(ctx context.Context) error {
	return e.sessions.Rotate(ctx)
}

// Run executes one extraction run. Validation failures and authentication
// challenges return an error; per-clip failures do not, they are recorded in
// the results stream and the summary counts.
func (o *Orchestrator) Run(ctx context.Context, req model.Request) (model.RunSummary, error) {
	logger := o.logger()

	if err := model.Validate(req, model.ValidateOptions{
		MaxClips:           o.Config.MaxClips,
		MaxClipDurationSec: o.Config.MaxClipSeconds,
	}); err != nil {
		return model.RunSummary{}, err
	}
	identity, err := CleanVideoURL(req.VideoURL)
	if err != nil {
		return model.RunSummary{}, &model.ValidationError{Violations: []string{err.Error()}}
	}
	if identity != strings.TrimSpace(req.VideoURL) {
		logger.Info("normalized video URL", "input", req.VideoURL, "cleaned", identity)
	}

	tier := quality.Tier(req.Quality)
	if req.Quality == "" {
		tier = quality.Tier720
	}
	qc := quality.Resolve(tier)
	logger.Info("starting run", "video", identity, "clips", len(req.Clips), "quality", string(tier), "max_height", qc.MaxHeight)

	runStartCharged := o.Meter.Charge(ctx, quality.EventRunStarted)

	tempDir, err := os.MkdirTemp("", "yt-clip-extractor-*")
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			logger.Warn("remove temp directory", "dir", tempDir, "error", rmErr)
		}
	}()

	cookiesPath := ""
	if req.UseCookies && req.Cookies != "" {
		cookiesPath = filepath.Join(tempDir, "cookies.txt")
		if err := os.WriteFile(cookiesPath, []byte(req.Cookies), 0o600); err != nil {
			return model.RunSummary{}, fmt.Errorf("write cookie file: %w", err)
		}
	}

	var egress extract.Egress = extract.DirectEgress{}
	if req.Proxy.Enabled() && o.Sessions != nil {
		if _, err := o.Sessions.NewHealthySession(ctx, o.Config.ProxySessionAttempts); err != nil {
			logger.Warn("proxy session establishment failed, egressing directly", "error", err)
		} else {
			egress = sessionEgress{sessions: o.Sessions}
		}
	}

	progress := o.Checkpoints.Load(ctx, identity)
	resumed := progress != nil
	if progress == nil {
		progress = &checkpoint.Progress{VideoIdentity: identity, TotalClips: len(req.Clips)}
	} else {
		logger.Info("resuming interrupted run", "completed", len(progress.CompletedClipNames))
	}

	cache := extract.NewSourceCache(logger)
	defer cache.Close()
	cascade := o.buildCascade(egress, cache, req.FallbacksEnabled())

	summary := model.RunSummary{
		Summary:             true,
		TotalClips:          len(req.Clips),
		RunStartCharged:     runStartCharged,
		QualityUsed:         string(tier),
		ResumedFromPrevious: resumed,
	}

	for i, clip := range req.Clips {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if progress.IsCompleted(clip.Name) {
			logger.Info("skipping clip completed by a previous run", "clip", clip.Name)
			continue
		}

		result, fatal := o.processClip(ctx, processParams{
			index:       i,
			clip:        clip,
			identity:    identity,
			tier:        tier,
			maxHeight:   qc.MaxHeight,
			retryBudget: req.RetryBudget(),
			tempDir:     tempDir,
			cookiesPath: cookiesPath,
			cascade:     cascade,
		})
		if fatal != nil {
			return summary, fatal
		}

		progress.MarkCompleted(clip.Name)
		if result.Failed {
			progress.FailedCount++
		} else {
			progress.ProcessedCount++
		}
		o.Checkpoints.Save(ctx, *progress)

		if err := o.Results.EmitClip(result); err != nil {
			logger.Warn("emit clip result", "clip", clip.Name, "error", err)
		}
	}

	summary.ProcessedCount = progress.ProcessedCount
	summary.FailedCount = progress.FailedCount
	summary.RunFinished = o.now().UTC().Format(time.RFC3339)

	if err := o.Checkpoints.Clear(ctx); err != nil {
		logger.Warn("clear checkpoint", "error", err)
	}
	if err := o.Results.EmitSummary(summary); err != nil {
		logger.Warn("emit run summary", "error", err)
	}
	logger.Info("run finished", "processed", summary.ProcessedCount, "failed", summary.FailedCount)
	return summary, nil
}

func (o *Orchestrator) buildCascade(egress extract.Egress, cache *extract.SourceCache, fallbacks bool) *extract.Cascade {
	logger := o.logger()
	strategies := []extract.Strategy{
		&extract.DirectStrategy{Downloader: o.Downloader, Egress: egress, Logger: logger, Backoff: o.Backoff},
	}
	if fallbacks {
		strategies = append(strategies,
			&extract.CompatStrategy{Downloader: o.Downloader, Egress: egress, Logger: logger, Backoff: o.Backoff},
			&extract.FullSourceStrategy{
				Downloader:       o.Downloader,
				Extractor:        o.Media,
				Egress:           egress,
				Cache:            cache,
				Logger:           logger,
				MaxSourceMinutes: o.Config.FullSourceMaxMinutes,
				DownloadTimeout:  time.Duration(o.Config.FullTimeoutMinutes) * time.Minute,
				DownloadRetries:  o.Config.FullDownloadRetries,
				ProbeTimeout:     o.Config.ProbeTimeout,
				Backoff:          o.Backoff,
			},
		)
	}
	return &extract.Cascade{Strategies: strategies, Logger: logger}
}

type processParams struct {
	index       int
	clip        model.ClipRequest
	identity    string
	tier        quality.Tier
	maxHeight   int
	retryBudget int
	tempDir     string
	cookiesPath string
	cascade     *extract.Cascade
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func clipIdentifier(index int, name string) string {
	return fmt.Sprintf("clip_%d_%s", index, unsafeNameChars.ReplaceAllString(name, "_"))
}

// processClip runs the cascade and the post-download steps for one clip. The
// returned error is non-nil only for run-fatal conditions (authentication
// challenge, cancellation); ordinary clip failures come back as a failed
// result.
func (o *Orchestrator) processClip(ctx context.Context, p processParams) (model.ClipResult, error) {
	logger := o.logger()
	started := o.now()

	identifier := clipIdentifier(p.index, p.clip.Name)
	startSec := model.ToSeconds(p.clip.Start)
	endSec := model.ToSeconds(p.clip.End)

	result := model.ClipResult{
		Name:             p.clip.Name,
		Description:      p.clip.Label,
		StartTime:        p.clip.Start,
		EndTime:          p.clip.End,
		MaxHeight:        p.maxHeight,
		OutputFormat:     "mp4",
		ClipIndex:        p.index,
		VideoURL:         p.identity,
		RequestedQuality: string(p.tier),
	}
	finish := func() {
		result.ProcessingTime = o.now().Sub(started).Round(time.Millisecond).String()
	}

	job := &extract.Job{
		ClipName:       p.clip.Name,
		ClipIdentifier: identifier,
		VideoURL:       p.identity,
		StartSeconds:   startSec,
		EndSeconds:     endSec,
		MaxHeight:      p.maxHeight,
		OutputPath:     filepath.Join(p.tempDir, identifier+".mp4"),
		CookiesPath:    p.cookiesPath,
		TempDir:        p.tempDir,
		MaxAttempts:    p.retryBudget,
	}

	file, err := p.cascade.Run(ctx, job)
	if err != nil {
		if errors.Is(err, extract.ErrAuthChallenge) {
			finish()
			return result, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			finish()
			return result, ctxErr
		}
		logger.Error("clip failed on every strategy", "clip", p.clip.Name, "error", err)
		result.Failed = true
		result.Error = err.Error()
		finish()
		return result, nil
	}

	// The extra provider cost of a fallback tier is incurred at download
	// time, so it is charged before any upload can fail.
	for range job.FallbackCharges {
		o.Meter.Charge(ctx, quality.EventClipProcessed)
	}

	if res, probeErr := o.Media.Probe(ctx, file); probeErr != nil {
		logger.Warn("resolution probe failed", "clip", p.clip.Name, "error", probeErr)
	} else {
		result.ActualHeight = res.Height
		result.ActualResolution = res.String()
		if delivered := quality.Resolve(quality.Classify(res.Height)).MaxHeight; delivered < p.maxHeight {
			if o.now().Before(o.Config.PricingCutover) {
				result.QualityWarning = fmt.Sprintf("requested %s but source delivered %s; charged at the flat rate", p.tier, res)
			} else {
				result.QualityWarning = fmt.Sprintf("requested %s but source delivered %s; charged at the delivered tier", p.tier, res)
			}
		}
	}

	thumbPath := filepath.Join(p.tempDir, identifier+"_thumb.jpg")
	if thumbErr := o.Media.Thumbnail(ctx, file, thumbPath); thumbErr != nil {
		logger.Warn("thumbnail generation failed", "clip", p.clip.Name, "error", thumbErr)
	} else if thumbURL, upErr := storage.UploadFile(ctx, o.Store, thumbPath, "thumbnail", identifier); upErr != nil {
		logger.Warn("thumbnail upload failed", "clip", p.clip.Name, "error", upErr)
	} else {
		result.ThumbnailURL = thumbURL
	}

	clipURL, err := storage.UploadFile(ctx, o.Store, file, "video", identifier)
	if err != nil {
		logger.Error("clip upload failed", "clip", p.clip.Name, "error", err)
		result.Failed = true
		result.Error = fmt.Sprintf("upload failed: %v", err)
		finish()
		return result, nil
	}
	result.URL = clipURL
	result.Duration = endSec - startSec
	if info, statErr := os.Stat(file); statErr == nil {
		result.Size = info.Size()
	}

	event := quality.ChargeableEvent(p.tier, result.ActualHeight, o.now(), o.Config.PricingCutover)
	result.EventCharged = event
	result.Charged = o.Meter.Charge(ctx, event)

	finish()
	logger.Info("clip completed", "clip", p.clip.Name, "url", clipURL, "event", event, "charged", result.Charged)
	return result, nil
}
