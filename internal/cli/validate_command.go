package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"yt-clip-extractor/internal/clipper"
	"yt-clip-extractor/internal/config"
	"yt-clip-extractor/internal/model"
)

type validateReport struct {
	Valid         bool     `json:"valid"`
	VideoIdentity string   `json:"video_identity,omitempty"`
	Clips         int      `json:"clips"`
	Violations    []string `json:"violations,omitempty"`
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	input := fs.String("input", "", "request JSON file")
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

	report := validateReport{Clips: len(req.Clips)}
	if err := model.Validate(req, model.ValidateOptions{
		MaxClips:           cfg.MaxClips,
		MaxClipDurationSec: cfg.MaxClipSeconds,
	}); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			report.Violations = verr.Violations
		} else {
			report.Violations = []string{err.Error()}
		}
	}
	if len(report.Violations) == 0 {
		identity, err := clipper.CleanVideoURL(req.VideoURL)
		if err != nil {
			report.Violations = []string{err.Error()}
		} else {
			report.VideoIdentity = identity
		}
	}
	report.Valid = len(report.Violations) == 0

	if *jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else if report.Valid {
		fmt.Printf("request is valid: %d clip(s) of %s\n", report.Clips, report.VideoIdentity)
	} else {
		fmt.Println("request is invalid:")
		for _, v := range report.Violations {
			fmt.Println("  - " + v)
		}
	}

	if !report.Valid {
		return errors.New("request validation failed")
	}
	return nil
}
