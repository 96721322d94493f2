package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"yt-clip-extractor/internal/clipper"
	"yt-clip-extractor/internal/model"
	"yt-clip-extractor/internal/runstore"
)

type composeFieldKind int

const (
	composeFieldString composeFieldKind = iota
	composeFieldInt
	composeFieldBool
	composeFieldSelect
)

type composeField struct {
	Key      string
	Label    string
	Help     string
	Kind     composeFieldKind
	Value    string
	Options  []string
	Required bool
}

type composeModel struct {
	outputPath string
	fields     []composeField
	index      int
	input      textinput.Model
	width      int
	errText    string
	saved      bool
	fatalErr   error
}

var (
	composeTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	composeMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	composeErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	composePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func runCompose(args []string) error {
	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	output := fs.String("output", "request.json", "where to write the request file")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("compose requires an interactive terminal (TTY); write the request JSON by hand instead")
	}

	m := newComposeModel(strings.TrimSpace(*output))
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	fm, ok := finalModel.(composeModel)
	if !ok {
		return nil
	}
	if fm.fatalErr != nil {
		return fm.fatalErr
	}
	if fm.saved {
		fmt.Printf("request written to %s\n", fm.outputPath)
		fmt.Printf("next: yt-clip-extractor run --input %s\n", fm.outputPath)
	} else {
		fmt.Println("compose cancelled")
	}
	return nil
}

func newComposeModel(outputPath string) composeModel {
	fields := []composeField{
		{Key: "video_url", Label: "Video URL", Help: "YouTube watch or youtu.be link", Kind: composeFieldString, Required: true},
		{Key: "clips", Label: "Clips", Help: "name=start-end, separated by ';' (e.g. Intro=00:00-00:30; Verse=01:10-02:00)", Kind: composeFieldString, Required: true},
		{Key: "quality", Label: "Quality", Help: "Resolution cap for downloads", Kind: composeFieldSelect, Value: "720p", Options: []string{"360p", "480p", "720p", "1080p"}},
		{Key: "use_proxy", Label: "Use Proxy", Help: "Route downloads through the configured proxy service", Kind: composeFieldBool, Value: "y"},
		{Key: "proxy_groups", Label: "Proxy Groups", Help: "Optional comma-separated group names", Kind: composeFieldString},
		{Key: "use_cookies", Label: "Use Cookies", Help: "Send browser cookies for age/region gated sources", Kind: composeFieldBool, Value: "n"},
		{Key: "cookies_file", Label: "Cookies File", Help: "Netscape cookies.txt; read into the request at save", Kind: composeFieldString},
		{Key: "max_retries", Label: "Max Retries", Help: "Attempts per download strategy", Kind: composeFieldInt, Value: "3"},
		{Key: "enable_fallbacks", Label: "Enable Fallbacks", Help: "Allow compat and full-source recovery tiers", Kind: composeFieldBool, Value: "y"},
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 2048
	input.Width = 72
	m := composeModel{outputPath: outputPath, fields: fields, input: input}
	m.loadFieldIntoInput()
	m.input.Focus()
	return m
}

func (m composeModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m composeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.input.Width = clampInt(size.Width-8, 20, 120)
		return m, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	return m.updateKey(keyMsg)
}

func (m composeModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := strings.ToLower(msg.String())
	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "shift+tab":
		m.commitInput()
		if m.index > 0 {
			m.index--
		}
		m.loadFieldIntoInput()
		return m, nil
	case "down", "tab":
		m.commitInput()
		if m.index < len(m.fields)-1 {
			m.index++
		}
		m.loadFieldIntoInput()
		return m, nil
	case " ", "space", "left", "right", "h", "l":
		switch m.currentField().Kind {
		case composeFieldBool:
			m.toggleBoolField()
			return m, nil
		case composeFieldSelect:
			if key == "left" || key == "h" {
				m.cycleSelectField(-1)
			} else {
				m.cycleSelectField(1)
			}
			return m, nil
		}
	case "y":
		if m.currentField().Kind == composeFieldBool {
			m.setBoolField(true)
			return m, nil
		}
	case "n":
		if m.currentField().Kind == composeFieldBool {
			m.setBoolField(false)
			return m, nil
		}
	case "enter", "ctrl+s":
		m.commitInput()
		if m.index < len(m.fields)-1 && key != "ctrl+s" {
			m.index++
			m.loadFieldIntoInput()
			return m, nil
		}
		req, err := m.toRequest()
		if err != nil {
			m.errText = err.Error()
			return m, nil
		}
		if err := runstore.WriteJSON(m.outputPath, req); err != nil {
			m.fatalErr = err
			return m, tea.Quit
		}
		m.saved = true
		return m, tea.Quit
	}

	kind := m.currentField().Kind
	if kind == composeFieldBool || kind == composeFieldSelect {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.fields[m.index].Value = m.input.Value()
	return m, cmd
}

func (m composeModel) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	header := composeTitleStyle.Render("yt-clip-extractor compose") + "\n" +
		composeMutedStyle.Render("tab/up/down: move | space/left/right: toggle | y/n: set | enter: next/save | ctrl+s: save | esc: cancel")

	lines := make([]string, 0, len(m.fields)+4)
	for i, f := range m.fields {
		prefix := "  "
		if i == m.index {
			prefix = "> "
		}
		display := strings.TrimSpace(f.Value)
		if f.Kind == composeFieldBool {
			v, _ := parseBool(display)
			display = yesNo(v)
		}
		if f.Kind == composeFieldSelect {
			display = "[" + display + "]"
		}
		if display == "" {
			display = composeMutedStyle.Render("(empty)")
		}
		lines = append(lines, truncateRunes(fmt.Sprintf("%s%s: %s", prefix, f.Label, display), maxInt(width-6, 20)))
	}

	curr := m.currentField()
	body := strings.Join(lines, "\n") + fmt.Sprintf("\n\n%s\n", curr.Label)
	if strings.TrimSpace(curr.Help) != "" {
		body += composeMutedStyle.Render(curr.Help) + "\n"
	}
	body += m.input.View()
	if strings.TrimSpace(m.errText) != "" {
		body += "\n" + composeErrorStyle.Render(m.errText)
	}

	panel := composePanelStyle.Width(maxInt(width-2, 40)).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, panel)
}

func (m *composeModel) currentField() composeField {
	if len(m.fields) == 0 {
		return composeField{}
	}
	m.index = clampInt(m.index, 0, len(m.fields)-1)
	return m.fields[m.index]
}

func (m *composeModel) commitInput() {
	m.fields[m.index].Value = strings.TrimSpace(m.input.Value())
}

func (m *composeModel) loadFieldIntoInput() {
	m.input.SetValue(m.fields[m.index].Value)
	m.input.CursorEnd()
}

func (m *composeModel) toggleBoolField() {
	curr := m.fields[m.index]
	v, _ := parseBool(curr.Value)
	curr.Value = boolToYN(!v)
	m.fields[m.index] = curr
	m.loadFieldIntoInput()
}

func (m *composeModel) setBoolField(v bool) {
	m.fields[m.index].Value = boolToYN(v)
	m.loadFieldIntoInput()
}

func (m *composeModel) cycleSelectField(step int) {
	curr := m.fields[m.index]
	if len(curr.Options) == 0 {
		return
	}
	pos := 0
	for i, opt := range curr.Options {
		if strings.EqualFold(opt, strings.TrimSpace(curr.Value)) {
			pos = i
			break
		}
	}
	pos = (pos + step + len(curr.Options)) % len(curr.Options)
	curr.Value = curr.Options[pos]
	m.fields[m.index] = curr
	m.loadFieldIntoInput()
}

func (m *composeModel) fieldValue(key string) string {
	for _, f := range m.fields {
		if f.Key == key {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// toRequest converts the form into a validated request.
func (m *composeModel) toRequest() (model.Request, error) {
	for _, f := range m.fields {
		if f.Required && strings.TrimSpace(f.Value) == "" {
			return model.Request{}, fmt.Errorf("%s is required", strings.ToLower(f.Label))
		}
	}

	clips, err := parseClipSpecs(m.fieldValue("clips"))
	if err != nil {
		return model.Request{}, err
	}
	retries, err := strconv.Atoi(defaultIfEmpty(m.fieldValue("max_retries"), "3"))
	if err != nil || retries < 1 {
		return model.Request{}, errors.New("max retries must be an integer >= 1")
	}
	useProxy, _ := parseBool(m.fieldValue("use_proxy"))
	useCookies, _ := parseBool(m.fieldValue("use_cookies"))
	fallbacks, _ := parseBool(defaultIfEmpty(m.fieldValue("enable_fallbacks"), "y"))

	req := model.Request{
		VideoURL:        m.fieldValue("video_url"),
		Clips:           clips,
		Quality:         m.fieldValue("quality"),
		MaxRetries:      retries,
		EnableFallbacks: boolPtr(fallbacks),
		Proxy:           &model.ProxySettings{UseProxy: boolPtr(useProxy)},
	}
	if groups := m.fieldValue("proxy_groups"); groups != "" {
		for _, g := range strings.Split(groups, ",") {
			if g = strings.TrimSpace(g); g != "" {
				req.Proxy.ProxyGroups = append(req.Proxy.ProxyGroups, g)
			}
		}
	}
	if useCookies {
		path := m.fieldValue("cookies_file")
		if path == "" {
			return model.Request{}, errors.New("cookies file is required when use cookies is on")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return model.Request{}, fmt.Errorf("read cookies file: %w", err)
		}
		req.UseCookies = true
		req.Cookies = string(data)
	}

	if err := model.Validate(req, model.ValidateOptions{}); err != nil {
		return model.Request{}, err
	}
	if _, err := clipper.CleanVideoURL(req.VideoURL); err != nil {
		return model.Request{}, err
	}
	return req, nil
}

// parseClipSpecs parses "name=start-end" entries separated by semicolons.
func parseClipSpecs(raw string) ([]model.ClipRequest, error) {
	var clips []model.ClipRequest
	for _, spec := range strings.Split(raw, ";") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		name, timerange, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("clip %q: expected name=start-end", spec)
		}
		start, end, ok := strings.Cut(timerange, "-")
		if !ok {
			return nil, fmt.Errorf("clip %q: expected a start-end time range", spec)
		}
		clips = append(clips, model.ClipRequest{
			Name:  strings.TrimSpace(name),
			Start: strings.TrimSpace(start),
			End:   strings.TrimSpace(end),
		})
	}
	if len(clips) == 0 {
		return nil, errors.New("at least one clip is required")
	}
	return clips, nil
}
