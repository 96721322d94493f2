package cli

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"yt-clip-extractor/internal/config"
	"yt-clip-extractor/internal/model"
	"yt-clip-extractor/internal/runstore"
)

func runResults(args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id under the data dir; defaults to the latest run")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	runDir := ""
	if strings.TrimSpace(*runID) != "" {
		runDir = filepath.Join(runstore.RunsDir(cfg.DataDir), strings.TrimSpace(*runID))
	} else {
		runDir, err = runstore.LatestRunDir(runstore.RunsDir(cfg.DataDir))
		if err != nil {
			return err
		}
	}

	clips, summary, err := runstore.ReadResults(runDir)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(struct {
			RunDir  string             `json:"run_dir"`
			Clips   []model.ClipResult `json:"clips"`
			Summary *model.RunSummary  `json:"summary,omitempty"`
		}{RunDir: runDir, Clips: clips, Summary: summary})
	}

	fmt.Println(summaryTitleStyle.Render("run " + filepath.Base(runDir)))
	for _, clip := range clips {
		if clip.Failed {
			fmt.Printf("  %s %s: %s\n", summaryFailStyle.Render("fail"), clip.Name, truncateRunes(clip.Error, 100))
			continue
		}
		line := fmt.Sprintf("  %s %s: %s (%s", summaryOKStyle.Render("ok"), clip.Name, clip.URL, formatBytesIEC(clip.Size))
		if clip.ActualResolution != "" {
			line += ", " + clip.ActualResolution
		}
		line += ")"
		fmt.Println(line)
		if clip.QualityWarning != "" {
			fmt.Println("       " + summaryMutedStyle.Render(clip.QualityWarning))
		}
	}
	if summary != nil {
		fmt.Println(summaryMutedStyle.Render(fmt.Sprintf("processed %d, failed %d of %d clips",
			summary.ProcessedCount, summary.FailedCount, summary.TotalClips)))
	} else {
		fmt.Println(summaryMutedStyle.Render("run did not finish; rerun to resume"))
	}
	return nil
}
