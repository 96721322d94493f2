package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"yt-clip-extractor/internal/checkpoint"
	checkpointsqlite "yt-clip-extractor/internal/checkpoint/sqlite"
	"yt-clip-extractor/internal/clipper"
	"yt-clip-extractor/internal/config"
	"yt-clip-extractor/internal/ffmpeg"
	"yt-clip-extractor/internal/logging"
	"yt-clip-extractor/internal/metering"
	"yt-clip-extractor/internal/model"
	"yt-clip-extractor/internal/proxy"
	"yt-clip-extractor/internal/runstore"
	"yt-clip-extractor/internal/storage"
	"yt-clip-extractor/internal/ytdlp"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	summaryOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	summaryFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	summaryMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func runExtract(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	input := fs.String("input", "", "request JSON file")
	dataDir := fs.String("data-dir", "", "override the data directory")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*input) == "" {
		fs.Usage()
		return errors.New("--input is required")
	}

	req, err := loadRequest(*input)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*dataDir) != "" {
		cfg.DataDir = strings.TrimSpace(*dataDir)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if err := ytdlp.CheckDependencies(); err != nil {
		return err
	}

	lock, err := runstore.AcquireDataLock(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release()
	}()

	runDir, runID, err := runstore.NewRunDir(cfg.DataDir)
	if err != nil {
		return err
	}
	if err := lock.Bind(runID); err != nil {
		logger.Warn("record run on lock", "run_id", runID, "error", err)
	}
	results, err := runstore.NewResultsWriter(runDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = results.Close()
	}()

	store, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "objects"), cfg.ObjectStoreBaseURL)
	if err != nil {
		return err
	}

	var sink metering.Sink = metering.LogSink{Logger: logging.WithComponent(logger, "metering")}
	if cfg.MeteringEndpoint != "" {
		sink = metering.NewHTTPSink(cfg.MeteringEndpoint)
	}

	kv, err := checkpointsqlite.NewStore(cfg.CheckpointDBPath())
	if err != nil {
		return err
	}
	defer func() {
		_ = kv.Close()
	}()

	var sessions clipper.SessionSource
	if cfg.ProxyURL != "" {
		sessions = proxy.NewManager(
			proxy.StickyIssuer{BaseURL: cfg.ProxyURL, Groups: proxyGroups(req)},
			proxy.HTTPProber{Target: cfg.ProxyProbeTarget, Timeout: cfg.SessionProbeTimeout},
			logging.WithComponent(logger, "proxy"),
		)
	}

	orch := &clipper.Orchestrator{
		Config:      cfg,
		Logger:      logger,
		Downloader:  ytdlp.Client{},
		Media:       ffmpeg.Transcoder{},
		Store:       store,
		Meter:       metering.NewCharger(sink, logging.WithComponent(logger, "metering")),
		Checkpoints: checkpoint.NewManager(kv, logging.WithComponent(logger, "checkpoint")),
		Sessions:    sessions,
		Results:     results,
	}

	summary, runErr := orch.Run(context.Background(), req)

	identity := ""
	if id, idErr := clipper.CleanVideoURL(req.VideoURL); idErr == nil {
		identity = id
	}
	meta := runstore.RunMeta{
		RunID:          runID,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		VideoIdentity:  identity,
		Quality:        summary.QualityUsed,
		TotalClips:     summary.TotalClips,
		ProcessedCount: summary.ProcessedCount,
		FailedCount:    summary.FailedCount,
		Resumed:        summary.ResumedFromPrevious,
		FinishedAt:     summary.RunFinished,
	}
	if metaErr := runstore.SaveRunMeta(runDir, meta); metaErr != nil {
		logger.Warn("save run metadata", "error", metaErr)
	}

	if runErr != nil {
		return runErr
	}
	if *jsonOut {
		return printJSON(summary)
	}
	printRunSummary(runDir, summary)
	return nil
}

func proxyGroups(req model.Request) []string {
	if req.Proxy == nil {
		return nil
	}
	return req.Proxy.ProxyGroups
}

func printRunSummary(runDir string, summary model.RunSummary) {
	fmt.Println(summaryTitleStyle.Render("run complete"))
	fmt.Println(kv("quality", summary.QualityUsed))
	fmt.Println(kv("processed", summaryOKStyle.Render(fmt.Sprintf("%d", summary.ProcessedCount))))
	if summary.FailedCount > 0 {
		fmt.Println(kv("failed", summaryFailStyle.Render(fmt.Sprintf("%d", summary.FailedCount))))
	} else {
		fmt.Println(kv("failed", "0"))
	}
	if summary.ResumedFromPrevious {
		fmt.Println(summaryMutedStyle.Render("resumed from a previous interrupted run"))
	}
	if !summary.RunStartCharged {
		fmt.Println(summaryMutedStyle.Render("note: run-start metering charge did not go through"))
	}
	fmt.Println(kv("results", runstore.ResultsPath(runDir)))
}
