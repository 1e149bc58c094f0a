package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/respane/internal/bindings"
	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/export"
	"github.com/unkn0wn-root/respane/internal/loader"
	"github.com/unkn0wn-root/respane/internal/telemetry"
)

const eventFilterChange = "response.body.filter"

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeBody()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case requestsLoadedMsg:
		cmd := m.applyRequests(msg)
		return m, cmd
	case RequestsChangedMsg:
		return m, m.loadRequestsCmd()
	case responseLoadedMsg:
		m.applyResponse(msg.result)
		return m, nil
	case RequestStartedMsg:
		cmd := m.startRequest(msg)
		return m, cmd
	case RequestFinishedMsg:
		cmd := m.finishRequest(msg)
		return m, cmd
	case spinner.TickMsg:
		if len(m.inflight) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case savePromptMsg:
		m.openSaveModal(msg.prompt)
		if m.cfg.Bridge == nil {
			return m, nil
		}
		return m, tea.Batch(textinput.Blink, m.cfg.Bridge.listen())
	case exportDoneMsg:
		m.applyExport(msg.result)
		return m, nil
	case copyDoneMsg:
		m.applyCopy(msg)
		return m, nil
	case statusMsg:
		m.status = msg
		return m, nil
	}
	return m, nil
}

func (m *Model) setStatusMessage(msg statusMsg) {
	m.status = msg
}

func (m *Model) applyRequests(msg requestsLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Printf("ui: list requests: %v", msg.err)
		m.setStatusMessage(statusMsg{level: statusWarn, text: "Could not list requests: " + errdef.Message(msg.err)})
	}

	ids := make([]string, 0, len(msg.ids)+len(m.inflight)+1)
	seen := make(map[string]struct{}, cap(ids))
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range m.inflight {
		add(id)
	}
	for _, id := range msg.ids {
		add(id)
	}

	active := m.loader.Active()
	if active == "" && !m.loaded {
		active = strings.TrimSpace(m.cfg.InitialRequest)
		if active == "" && len(ids) > 0 {
			active = ids[0]
		}
		if active != "" {
			if _, ok := seen[active]; !ok {
				ids = append([]string{active}, ids...)
			}
			m.requests = ids
			m.cursor = indexOf(ids, active)
			return m.selectRequest(active)
		}
	}
	if active != "" {
		if _, ok := seen[active]; !ok {
			ids = append([]string{active}, ids...)
		}
	}
	m.requests = ids
	m.cursor = max(indexOf(ids, active), 0)
	if active == "" && !m.loaded {
		m.loaded = true
	}
	return nil
}

// selectRequest makes id the active request. The displayed response is
// dropped immediately so nothing from the previous request stays visible
// while the lookup runs.
func (m *Model) selectRequest(id string) tea.Cmd {
	ticket := m.loader.Select(id)
	m.current = nil
	m.loaded = false
	m.filtering = false
	m.filterInput.Blur()
	m.filterInput.SetValue(m.filters[ticket.RequestID])
	m.refreshBody()
	if ticket.RequestID == "" {
		m.loaded = true
		return nil
	}
	return fetchCmd(m.loader, ticket)
}

func fetchCmd(ld *loader.Loader, ticket loader.Ticket) tea.Cmd {
	return func() tea.Msg {
		return responseLoadedMsg{result: ld.Fetch(context.Background(), ticket)}
	}
}

func (m *Model) applyResponse(res loader.Result) {
	if !m.loader.Current(res.Ticket) {
		m.logger.Printf("ui: dropping stale response lookup for %q", res.Ticket.RequestID)
		return
	}
	m.loaded = true
	m.current = nil
	if res.Err != nil {
		m.logger.Printf("ui: load response for %q: %v", res.Ticket.RequestID, res.Err)
		m.setStatusMessage(statusMsg{
			level: statusWarn,
			text:  "Could not load response: " + errdef.Message(res.Err),
		})
	} else {
		m.current = res.Response
	}
	m.refreshBody()
}

func (m *Model) startRequest(msg RequestStartedMsg) tea.Cmd {
	id := strings.TrimSpace(msg.RequestID)
	if id == "" {
		return nil
	}
	started := msg.Started
	if started.IsZero() {
		started = m.now()
	}
	first := len(m.inflight) == 0
	m.inflight[id] = started
	if indexOf(m.requests, id) < 0 {
		m.requests = append([]string{id}, m.requests...)
		if m.loader.Active() != "" {
			m.cursor = max(indexOf(m.requests, m.loader.Active()), 0)
		}
	}
	if first {
		return m.spinner.Tick
	}
	return nil
}

func (m *Model) finishRequest(msg RequestFinishedMsg) tea.Cmd {
	id := strings.TrimSpace(msg.RequestID)
	delete(m.inflight, id)
	if msg.Err != nil {
		m.setStatusMessage(statusMsg{level: statusError, text: errdef.Message(msg.Err)})
	}
	cmds := []tea.Cmd{m.loadRequestsCmd()}
	if id != "" && id == m.loader.Active() {
		cmds = append(cmds, m.selectRequest(id))
	}
	return tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.save != nil {
		cmd := m.handleSaveKey(msg)
		return m, cmd
	}
	if m.filtering {
		cmd := m.handleFilterKey(msg)
		return m, cmd
	}

	action, ok := m.keys.Match(msg.String())
	if !ok {
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		return m, cmd
	}

	switch action {
	case bindings.ActionQuit:
		return m, tea.Quit
	case bindings.ActionNextTab:
		m.tab = (m.tab + 1) % tabCount
		m.refreshBody()
	case bindings.ActionPrevTab:
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.refreshBody()
	case bindings.ActionNextRequest:
		cmd := m.moveCursor(1)
		return m, cmd
	case bindings.ActionPrevRequest:
		cmd := m.moveCursor(-1)
		return m, cmd
	case bindings.ActionReload:
		cmd := tea.Batch(m.loadRequestsCmd(), m.selectRequest(m.loader.Active()))
		return m, cmd
	case bindings.ActionFilter:
		if m.loader.Active() == "" {
			return m, nil
		}
		m.tab = tabBody
		m.filtering = true
		m.filterInput.SetValue(m.filters[m.loader.Active()])
		m.filterInput.CursorEnd()
		m.filterInput.Focus()
		return m, textinput.Blink
	case bindings.ActionDownload:
		return m, m.downloadCmd()
	case bindings.ActionCopy:
		cmd := m.copyResponseTab()
		return m, cmd
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) tea.Cmd {
	if len(m.requests) == 0 {
		return nil
	}
	next := m.cursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.requests) {
		next = len(m.requests) - 1
	}
	if next == m.cursor && m.requests[next] == m.loader.Active() {
		return nil
	}
	m.cursor = next
	return m.selectRequest(m.requests[next])
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue(m.filters[m.loader.Active()])
		return nil
	case tea.KeyEnter:
		m.filtering = false
		m.filterInput.Blur()
		m.setFilter(m.loader.Active(), m.filterInput.Value())
		return nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return cmd
}

func (m *Model) setFilter(requestID, expr string) {
	expr = strings.TrimSpace(expr)
	if requestID == "" || m.filters[requestID] == expr {
		return
	}
	if expr == "" {
		delete(m.filters, requestID)
	} else {
		m.filters[requestID] = expr
	}
	m.sink.Record(context.Background(), telemetry.Event{
		Name: eventFilterChange,
		Fields: map[string]string{
			"request": requestID,
			"active":  fmt.Sprintf("%t", expr != ""),
		},
	})
	m.refreshBody()
}

func (m Model) downloadCmd() tea.Cmd {
	resp := m.current
	exp := m.exporter
	return func() tea.Msg {
		return exportDoneMsg{result: exp.Export(context.Background(), resp)}
	}
}

func (m *Model) applyExport(res export.Result) {
	switch res.Outcome {
	case export.OutcomeSucceeded:
		if res.Path != "" {
			m.lastSaveDir = filepath.Dir(res.Path)
		}
		m.setStatusMessage(statusMsg{level: statusSuccess, text: res.Summary()})
	case export.OutcomeCancelled:
		m.setStatusMessage(statusMsg{level: statusInfo, text: res.Summary()})
	case export.OutcomeFailed:
		m.logger.Printf("ui: export failed: %v", res.Err)
		m.setStatusMessage(statusMsg{level: statusError, text: "Save failed: " + res.Summary()})
	default:
		m.setStatusMessage(statusMsg{level: statusInfo, text: res.Summary()})
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
