package ui

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unkn0wn-root/respane/internal/bindings"
	"github.com/unkn0wn-root/respane/internal/config"
	"github.com/unkn0wn-root/respane/internal/export"
	"github.com/unkn0wn-root/respane/internal/loader"
	"github.com/unkn0wn-root/respane/internal/response"
	"github.com/unkn0wn-root/respane/internal/telemetry"
)

// RequestLister supplies the request IDs shown in the sidebar.
type RequestLister interface {
	Requests(ctx context.Context) ([]string, error)
}

type Config struct {
	Requests       RequestLister
	Loader         *loader.Loader
	Exporter       *export.Exporter
	Bridge         *PromptBridge
	Bindings       *bindings.Map
	Pane           config.PaneSettings
	ExportDir      string
	InitialRequest string
	Sink           telemetry.Sink
	Logger         *log.Logger
	Now            func() time.Time
}

type responseTab int

const (
	tabBody responseTab = iota
	tabCookies
	tabHeaders
	tabCount
)

func (t responseTab) label() string {
	switch t {
	case tabCookies:
		return "Cookies"
	case tabHeaders:
		return "Headers"
	default:
		return "Body"
	}
}

func tabFromSetting(name string) responseTab {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.TabCookies:
		return tabCookies
	case config.TabHeaders:
		return tabHeaders
	default:
		return tabBody
	}
}

// Model hosts the response pane. Its Update loop is the only place pane state
// changes; lookups and exports run in commands and report back as messages.
type Model struct {
	cfg      Config
	loader   *loader.Loader
	exporter *export.Exporter
	keys     *bindings.Map
	sink     telemetry.Sink
	logger   *log.Logger
	now      func() time.Time

	requests []string
	cursor   int

	current *response.Response
	loaded  bool
	tab     responseTab
	body    viewport.Model

	filters     map[string]string
	filterInput textinput.Model
	filtering   bool

	inflight map[string]time.Time
	spinner  spinner.Model
	slow     time.Duration

	save         *savePrompt
	pendingSaves []*savePrompt
	saveInput    textinput.Model
	lastSaveDir  string

	status statusMsg
	width  int
	height int
}

func New(cfg Config) Model {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = telemetry.Noop()
	}
	keys := cfg.Bindings
	if keys == nil {
		keys = bindings.DefaultMap()
	}
	ld := cfg.Loader
	if ld == nil {
		ld = loader.New(nil)
	}
	exp := cfg.Exporter
	if exp == nil {
		var dialog export.Dialog
		if cfg.Bridge != nil {
			dialog = cfg.Bridge
		}
		exp = export.New(export.Config{Dialog: dialog, Sink: sink, Logger: logger})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	filterInput := textinput.New()
	filterInput.Placeholder = "JMESPath, e.g. items[0].name"
	filterInput.Prompt = "filter> "
	filterInput.CharLimit = 512

	saveInput := textinput.New()
	saveInput.Prompt = "save to> "
	saveInput.CharLimit = 4096

	return Model{
		cfg:         cfg,
		loader:      ld,
		exporter:    exp,
		keys:        keys,
		sink:        sink,
		logger:      logger,
		now:         now,
		tab:         tabFromSetting(cfg.Pane.DefaultTab),
		body:        viewport.New(80, 20),
		filters:     make(map[string]string),
		filterInput: filterInput,
		inflight:    make(map[string]time.Time),
		spinner:     createRequestSpinner(),
		slow:        cfg.Pane.SlowThreshold(),
		saveInput:   saveInput,
		lastSaveDir: strings.TrimSpace(cfg.ExportDir),
		width:       100,
		height:      30,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadRequestsCmd()}
	if m.cfg.Bridge != nil {
		cmds = append(cmds, m.cfg.Bridge.listen())
	}
	return tea.Batch(cmds...)
}

func (m Model) loadRequestsCmd() tea.Cmd {
	lister := m.cfg.Requests
	if lister == nil {
		return func() tea.Msg { return requestsLoadedMsg{} }
	}
	return func() tea.Msg {
		ids, err := lister.Requests(context.Background())
		return requestsLoadedMsg{ids: ids, err: err}
	}
}

// ActiveRequest is the request whose response the pane shows.
func (m Model) ActiveRequest() string {
	return m.loader.Active()
}

// Response is the response currently on screen, nil when absent.
func (m Model) Response() *response.Response {
	return m.current
}

func createRequestSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return s
}
