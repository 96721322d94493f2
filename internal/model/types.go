package model

// ClipRequest is one requested sub-range of the source video. Names must be
// unique within a run; they key resume bookkeeping across restarts.
type ClipRequest struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// DurationSeconds returns end-start using lenient timecode parsing.
func (c ClipRequest) DurationSeconds() int {
	return ToSeconds(c.End) - ToSeconds(c.Start)
}

// ProxySettings controls network egress. UseProxy is a pointer so that an
// absent field means "on" (the safe default for a geo-blocked upstream),
// while an explicit false disables the proxy entirely.
type ProxySettings struct {
	UseProxy    *bool    `json:"use_proxy,omitempty"`
	ProxyGroups []string `json:"proxy_groups,omitempty"`
}

// Enabled reports whether proxy egress should be used.
func (p *ProxySettings) Enabled() bool {
	if p == nil || p.UseProxy == nil {
		return true
	}
	return *p.UseProxy
}

// Request is the single input object describing one extraction run.
type Request struct {
	VideoURL        string         `json:"video_url"`
	Clips           []ClipRequest  `json:"clips"`
	Proxy           *ProxySettings `json:"proxy,omitempty"`
	UseCookies      bool           `json:"use_cookies,omitempty"`
	Cookies         string         `json:"cookies,omitempty"`
	MaxRetries      int            `json:"max_retries,omitempty"`
	Quality         string         `json:"quality,omitempty"`
	EnableFallbacks *bool          `json:"enable_fallbacks,omitempty"`
}

// FallbacksEnabled defaults to true when the field is absent.
func (r Request) FallbacksEnabled() bool {
	if r.EnableFallbacks == nil {
		return true
	}
	return *r.EnableFallbacks
}

// RetryBudget returns the per-strategy attempt budget, defaulting to 3.
func (r Request) RetryBudget() int {
	if r.MaxRetries <= 0 {
		return 3
	}
	return r.MaxRetries
}

// ClipResult is the per-clip record appended to the results stream, exactly
// once per clip per run. Success and failure share one shape; Failed plus the
// populated side distinguishes them.
type ClipResult struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	URL              string `json:"url,omitempty"`
	ThumbnailURL     string `json:"thumbnail_url,omitempty"`
	Duration         int    `json:"duration,omitempty"`
	Size             int64  `json:"size,omitempty"`
	MaxHeight        int    `json:"max_height"`
	ActualResolution string `json:"actual_resolution,omitempty"`
	ActualHeight     int    `json:"actual_height,omitempty"`
	QualityWarning   string `json:"quality_warning,omitempty"`
	OutputFormat     string `json:"output_format"`
	ClipIndex        int    `json:"clip_index"`
	VideoURL         string `json:"video_url"`
	ProcessingTime   string `json:"processing_time"`
	Failed           bool   `json:"failed"`
	Charged          bool   `json:"charged"`
	RequestedQuality string `json:"requested_quality"`
	EventCharged     string `json:"event_charged,omitempty"`
	Error            string `json:"error,omitempty"`
}

// RunSummary is the single terminal record in the results stream. Summary is
// the marker field that distinguishes it from per-clip records.
type RunSummary struct {
	Summary             bool   `json:"summary"`
	TotalClips          int    `json:"total_clips"`
	ProcessedCount      int    `json:"processed_count"`
	FailedCount         int    `json:"failed_count"`
	RunStartCharged     bool   `json:"run_start_charged"`
	RunFinished         string `json:"run_finished"`
	QualityUsed         string `json:"quality_used"`
	ResumedFromPrevious bool   `json:"resumed_from_previous"`
}
