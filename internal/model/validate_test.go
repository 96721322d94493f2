package model

import (
	"errors"
	"strings"
	"testing"
)

func validRequest() Request {
	return Request{
		VideoURL: "https://www.youtube.com/watch?v=abcdefghijk",
		Clips: []ClipRequest{
			{Name: "Intro", Start: "00:00", End: "00:30"},
		},
		Quality: "480p",
	}
}

func TestValidate_AcceptsWellFormedRequest(t *testing.T) {
	if err := Validate(validRequest(), ValidateOptions{}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidate_RejectsTooManyClips(t *testing.T) {
	req := validRequest()
	req.Clips = nil
	for i := 0; i < 21; i++ {
		req.Clips = append(req.Clips, ClipRequest{
			Name:  "Clip" + strings.Repeat("x", i+1),
			Start: "00:00",
			End:   "00:10",
		})
	}

	err := Validate(req, ValidateOptions{})
	if err == nil {
		t.Fatal("expected validation error for 21 clips")
	}
	if !strings.Contains(err.Error(), "Maximum 20 clips allowed") {
		t.Fatalf("error should name the clip limit, got: %v", err)
	}
}

func TestValidate_AggregatesEveryViolation(t *testing.T) {
	req := Request{
		Quality: "2160p",
		Clips: []ClipRequest{
			{Name: "", Start: "00:30", End: "00:10"},
			{Name: "Long", Start: "00:00", End: "20:00"},
		},
	}

	err := Validate(req, ValidateOptions{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	wantFragments := []string{
		"Video URL is required",
		"Clip 1: Name is required",
		"Clip 1: End time must be after start time",
		"Clip 2: Maximum clip duration is 600 seconds",
		"Quality must be one of",
	}
	joined := err.Error()
	for _, fragment := range wantFragments {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("missing violation %q in:\n%s", fragment, joined)
		}
	}
	if len(verr.Violations) != len(wantFragments) {
		t.Fatalf("expected %d violations, got %d: %v", len(wantFragments), len(verr.Violations), verr.Violations)
	}
}

func TestValidate_RejectsDuplicateClipNames(t *testing.T) {
	req := validRequest()
	req.Clips = append(req.Clips, ClipRequest{Name: "Intro", Start: "01:00", End: "01:30"})

	err := Validate(req, ValidateOptions{})
	if err == nil || !strings.Contains(err.Error(), "already used") {
		t.Fatalf("expected duplicate-name violation, got %v", err)
	}
}

func TestValidate_CookiesRequiredWhenEnabled(t *testing.T) {
	req := validRequest()
	req.UseCookies = true

	err := Validate(req, ValidateOptions{})
	if err == nil || !strings.Contains(err.Error(), "Cookies text is required") {
		t.Fatalf("expected cookies violation, got %v", err)
	}
}

func TestRequest_Defaults(t *testing.T) {
	var req Request
	if !req.FallbacksEnabled() {
		t.Fatal("fallbacks should default to enabled")
	}
	if got := req.RetryBudget(); got != 3 {
		t.Fatalf("retry budget default = %d, want 3", got)
	}
	if !req.Proxy.Enabled() {
		t.Fatal("proxy should default to enabled")
	}

	off := false
	req.Proxy = &ProxySettings{UseProxy: &off}
	if req.Proxy.Enabled() {
		t.Fatal("explicit use_proxy=false should disable the proxy")
	}
}
