// Package ytdlp invokes the external yt-dlp downloader for ranged and
// full-source downloads. It only builds argument vectors and streams process
// output; strategy selection and retries live in internal/extract.
package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// SectionOptions describes one ranged download: exactly [start, end) seconds
// of the source, capped at MaxHeight, remuxed to mp4 at OutputPath.
type SectionOptions struct {
	VideoURL     string
	OutputPath   string
	StartSeconds int
	EndSeconds   int
	MaxHeight    int
	// Compat selects the permissive format fallback (accepts a worse encode
	// when the capped one is unavailable) and drops the HLS skip hint.
	Compat      bool
	CookiesPath string
	ProxyURL    string
	LogWriter   io.Writer
	Progress    func(stream OutputStream, line string)
}

// FullOptions describes a whole-source download used by the last cascade
// tier. OutputTemplate is a yt-dlp output template, typically ending in
// %(ext)s because the container is the source's choice.
type FullOptions struct {
	VideoURL       string
	OutputTemplate string
	MaxHeight      int
	CookiesPath    string
	ProxyURL       string
	LogWriter      io.Writer
	Progress       func(stream OutputStream, line string)
}

// ProbeOptions fetches source metadata without downloading media.
type ProbeOptions struct {
	VideoURL    string
	CookiesPath string
	ProxyURL    string
}

// DependencyReport mirrors which external binaries are present.
type DependencyReport struct {
	YTDLPFound   bool   `json:"yt_dlp_found"`
	YTDLPPath    string `json:"yt_dlp_path,omitempty"`
	FFmpegFound  bool   `json:"ffmpeg_found"`
	FFmpegPath   string `json:"ffmpeg_path,omitempty"`
	FFprobeFound bool   `json:"ffprobe_found"`
	FFprobePath  string `json:"ffprobe_path,omitempty"`
}

func DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	if path, err := exec.LookPath("ffprobe"); err == nil {
		report.FFprobeFound = true
		report.FFprobePath = path
	}
	return report
}

func CheckDependencies() error {
	report := DependencyStatus()
	if !report.YTDLPFound {
		return fmt.Errorf("missing dependency: yt-dlp is not installed or not on PATH")
	}
	if !report.FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is required for remuxing and range extraction and was not found on PATH")
	}
	if !report.FFprobeFound {
		return fmt.Errorf("missing dependency: ffprobe is required for resolution detection and was not found on PATH")
	}
	return nil
}

// SectionFormatSelector returns the format expression for a ranged download.
// The direct form prefers the capped encode, then any mp4, then anything;
// compatibility mode trades quality for availability.
func SectionFormatSelector(maxHeight int, compat bool) string {
	if compat {
		return fmt.Sprintf("best[height<=%d]/worst", maxHeight)
	}
	return fmt.Sprintf("best[height<=%d]/best[ext=mp4]/best", maxHeight)
}

// FullFormatSelector returns the format expression for a full-source
// download. The cap is respected even on the expensive path.
func FullFormatSelector(maxHeight int) string {
	return fmt.Sprintf("best[height<=%d]/best[ext=mp4]/best", maxHeight)
}

// BuildSectionArgs assembles the argument vector for a ranged download.
func BuildSectionArgs(opts SectionOptions) []string {
	args := []string{}
	if !opts.Compat {
		args = append(args, "--extractor-args", "youtube:skip=hls")
	}
	args = append(args,
		"--no-check-certificates",
		"--ignore-errors",
		"--no-playlist",
		"-f", SectionFormatSelector(opts.MaxHeight, opts.Compat),
		"--download-sections", fmt.Sprintf("*%d-%d", opts.StartSeconds, opts.EndSeconds),
		"--no-part",
		"--no-mtime",
		"--remux-video", "mp4",
		"-o", opts.OutputPath,
	)
	args = appendCommonArgs(args, opts.CookiesPath, opts.ProxyURL)
	return append(args, opts.VideoURL)
}

// BuildFullArgs assembles the argument vector for a full-source download.
func BuildFullArgs(opts FullOptions) []string {
	args := []string{
		"--no-check-certificates",
		"--ignore-errors",
		"--no-playlist",
		"-f", FullFormatSelector(opts.MaxHeight),
		"--no-part",
		"--no-mtime",
		"-o", opts.OutputTemplate,
	}
	args = appendCommonArgs(args, opts.CookiesPath, opts.ProxyURL)
	return append(args, opts.VideoURL)
}

func appendCommonArgs(args []string, cookiesPath, proxyURL string) []string {
	if strings.TrimSpace(cookiesPath) != "" {
		args = append(args, "--cookies", cookiesPath)
	}
	if strings.TrimSpace(proxyURL) != "" {
		args = append(args, "--proxy", strings.TrimSpace(proxyURL))
	}
	return args
}

// Client shells out to yt-dlp. The zero value is usable; Binary defaults to
// "yt-dlp" on PATH.
type Client struct {
	Binary string
}

func (c Client) binary() string {
	if strings.TrimSpace(c.Binary) != "" {
		return c.Binary
	}
	return "yt-dlp"
}

// DownloadSection performs one ranged download attempt. The context bounds
// the whole process; a deadline hit kills yt-dlp and surfaces as an error.
func (c Client) DownloadSection(ctx context.Context, opts SectionOptions) error {
	if strings.TrimSpace(opts.VideoURL) == "" {
		return fmt.Errorf("video URL is required")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	return c.run(ctx, BuildSectionArgs(opts), opts.LogWriter, opts.Progress)
}

// DownloadFull performs one full-source download attempt.
func (c Client) DownloadFull(ctx context.Context, opts FullOptions) error {
	if strings.TrimSpace(opts.VideoURL) == "" {
		return fmt.Errorf("video URL is required")
	}
	if strings.TrimSpace(opts.OutputTemplate) == "" {
		return fmt.Errorf("output template is required")
	}
	return c.run(ctx, BuildFullArgs(opts), opts.LogWriter, opts.Progress)
}

// ProbeDuration fetches the source's total runtime in seconds without
// downloading media.
func (c Client) ProbeDuration(ctx context.Context, opts ProbeOptions) (int, error) {
	if strings.TrimSpace(opts.VideoURL) == "" {
		return 0, fmt.Errorf("video URL is required")
	}
	args := []string{
		"--no-check-certificates",
		"--no-playlist",
		"--skip-download",
		"--print", "duration",
	}
	args = appendCommonArgs(args, opts.CookiesPath, opts.ProxyURL)
	args = append(args, opts.VideoURL)

	cmd := exec.CommandContext(ctx, c.binary(), args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("yt-dlp duration probe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" || text == "NA" {
		return 0, fmt.Errorf("yt-dlp reported no duration for %s", opts.VideoURL)
	}
	// yt-dlp prints either an integer or a float number of seconds.
	if v, err := strconv.Atoi(text); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", text, err)
	}
	return int(f), nil
}

func (c Client) run(ctx context.Context, args []string, logWriter io.Writer, progress func(OutputStream, string)) error {
	cmd := exec.CommandContext(ctx, c.binary(), args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	var outBuf strings.Builder
	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			appendLimited(&outBuf, &errBuf, stream, line)
			if logWriter != nil {
				_, _ = io.WriteString(logWriter, line+"\n")
			}
			mu.Unlock()
			if progress != nil {
				progress(stream, line)
			}
		}
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe)
	go read(StreamStderr, stderrPipe)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("yt-dlp timed out: %w: %s", ctxErr, strings.TrimSpace(errBuf.String()))
		}
		return fmt.Errorf("yt-dlp failed: %w\n%s\n%s", err, strings.TrimSpace(errBuf.String()), strings.TrimSpace(outBuf.String()))
	}
	return nil
}

// splitByNewlineOrCR treats carriage returns as line breaks so yt-dlp's
// in-place progress updates arrive as individual lines.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// appendLimited keeps a bounded head of each stream for error messages.
func appendLimited(outBuf, errBuf *strings.Builder, stream OutputStream, line string) {
	const maxKeep = 8192
	b := outBuf
	if stream == StreamStderr {
		b = errBuf
	}
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	remain := maxKeep - b.Len()
	if len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
