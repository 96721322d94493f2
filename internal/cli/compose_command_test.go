package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func findFieldIndexByKey(m composeModel, key string) int {
	for i, f := range m.fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

func TestComposeBoolFieldSupportsYN(t *testing.T) {
	m := newComposeModel("request.json")
	m.index = findFieldIndexByKey(m, "use_proxy")
	if m.index < 0 {
		t.Fatal("use_proxy field not found")
	}

	model, _ := m.updateKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	m2 := model.(composeModel)
	if got := m2.currentField().Value; got != "n" {
		t.Fatalf("expected use_proxy value n after 'n', got %q", got)
	}

	model, _ = m2.updateKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m3 := model.(composeModel)
	if got := m3.currentField().Value; got != "y" {
		t.Fatalf("expected use_proxy value y after 'y', got %q", got)
	}
}

func TestComposeSelectFieldCycles(t *testing.T) {
	m := newComposeModel("request.json")
	m.index = findFieldIndexByKey(m, "quality")
	if m.index < 0 {
		t.Fatal("quality field not found")
	}
	if got := m.currentField().Value; got != "720p" {
		t.Fatalf("default quality = %q, want 720p", got)
	}

	model, _ := m.updateKey(tea.KeyMsg{Type: tea.KeyRight})
	m2 := model.(composeModel)
	if got := m2.currentField().Value; got != "1080p" {
		t.Fatalf("quality after right = %q, want 1080p", got)
	}

	model, _ = m2.updateKey(tea.KeyMsg{Type: tea.KeyRight})
	m3 := model.(composeModel)
	if got := m3.currentField().Value; got != "360p" {
		t.Fatalf("quality wraps to %q, want 360p", got)
	}
}

func TestParseClipSpecs(t *testing.T) {
	clips, err := parseClipSpecs("Intro=00:00-00:30; Verse=01:10-02:00")
	if err != nil {
		t.Fatalf("parseClipSpecs: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	if clips[0].Name != "Intro" || clips[0].Start != "00:00" || clips[0].End != "00:30" {
		t.Errorf("first clip = %+v, want Intro 00:00-00:30", clips[0])
	}
	if clips[1].Name != "Verse" || clips[1].Start != "01:10" || clips[1].End != "02:00" {
		t.Errorf("second clip = %+v, want Verse 01:10-02:00", clips[1])
	}
}

func TestParseClipSpecsRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "Intro", "Intro=00:00"} {
		if _, err := parseClipSpecs(raw); err == nil {
			t.Errorf("parseClipSpecs(%q) accepted, want error", raw)
		}
	}
}

func TestComposeToRequestValidates(t *testing.T) {
	m := newComposeModel("request.json")
	m.fields[findFieldIndexByKey(m, "video_url")].Value = "https://youtu.be/dQw4w9WgXcQ"
	m.fields[findFieldIndexByKey(m, "clips")].Value = "Intro=00:00-00:30"

	req, err := m.toRequest()
	if err != nil {
		t.Fatalf("toRequest: %v", err)
	}
	if len(req.Clips) != 1 || req.Clips[0].Name != "Intro" {
		t.Errorf("clips = %+v, want one Intro clip", req.Clips)
	}
	if req.Quality != "720p" {
		t.Errorf("quality = %q, want the 720p default", req.Quality)
	}
	if req.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", req.MaxRetries)
	}
	if req.Proxy == nil || req.Proxy.UseProxy == nil || !*req.Proxy.UseProxy {
		t.Error("proxy not enabled by default")
	}

	// End after start must be rejected before the file is written.
	m.fields[findFieldIndexByKey(m, "clips")].Value = "Intro=00:30-00:10"
	if _, err := m.toRequest(); err == nil {
		t.Error("toRequest accepted a clip ending before it starts")
	}
}
