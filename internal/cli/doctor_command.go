package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"yt-clip-extractor/internal/config"
	"yt-clip-extractor/internal/ytdlp"
)

type doctorReport struct {
	ytdlp.DependencyReport
	DataDir         string `json:"data_dir"`
	DataDirWritable bool   `json:"data_dir_writable"`
	ProxyConfigured bool   `json:"proxy_configured"`
	MeteringMode    string `json:"metering_mode"`
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	report := doctorReport{
		DependencyReport: ytdlp.DependencyStatus(),
		DataDir:          cfg.DataDir,
		DataDirWritable:  dirWritable(cfg.DataDir),
		ProxyConfigured:  cfg.ProxyURL != "",
		MeteringMode:     "log-only",
	}
	if cfg.MeteringEndpoint != "" {
		report.MeteringMode = "http"
	}

	if *jsonOut {
		return printJSON(report)
	}

	fmt.Println("preflight checks:")
	fmt.Println("  " + checkLine("yt-dlp", report.YTDLPFound, report.YTDLPPath))
	fmt.Println("  " + checkLine("ffmpeg", report.FFmpegFound, report.FFmpegPath))
	fmt.Println("  " + checkLine("ffprobe", report.FFprobeFound, report.FFprobePath))
	fmt.Println("  " + checkLine("data dir writable", report.DataDirWritable, report.DataDir))
	fmt.Println("  " + kv("proxy", yesNo(report.ProxyConfigured)))
	fmt.Println("  " + kv("metering", report.MeteringMode))

	if !report.YTDLPFound || !report.FFmpegFound || !report.FFprobeFound || !report.DataDirWritable {
		return fmt.Errorf("preflight checks failed")
	}
	fmt.Println("all checks passed")
	return nil
}

func checkLine(name string, ok bool, detail string) string {
	mark := "ok"
	if !ok {
		mark = "MISSING"
	}
	if detail == "" {
		return fmt.Sprintf("%-18s %s", name, mark)
	}
	return fmt.Sprintf("%-18s %s (%s)", name, mark, detail)
}

func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return false
	}
	_ = os.Remove(probe)
	return true
}
