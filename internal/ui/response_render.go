package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alecthomas/chroma/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/unkn0wn-root/respane/internal/bindings"
	"github.com/unkn0wn-root/respane/internal/response"
)

const (
	sidebarWidth = 28
	chromeRows   = 6
)

func (m Model) View() string {
	sidebar := sidebarStyle.Width(sidebarWidth).Height(max(m.height-2, 1)).Render(m.renderSidebar())
	pane := paneStyle.Width(max(m.width-sidebarWidth-3, 20)).Render(m.renderPane())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, pane)
	if m.save != nil {
		body = lipgloss.Place(m.width, max(m.height-1, 1), lipgloss.Center, lipgloss.Center, m.renderSaveModal())
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, statusStyle(m.status.level).Render(m.status.text))
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Requests"))
	b.WriteString("\n")
	if len(m.requests) == 0 {
		b.WriteString(mutedStyle.Render("no stored responses"))
		return b.String()
	}
	for i, id := range m.requests {
		marker := "  "
		if _, ok := m.inflight[id]; ok {
			marker = m.spinner.View() + " "
		}
		label := runewidth.Truncate(id, sidebarWidth-4, "…")
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + label))
		} else {
			b.WriteString(marker + label)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderPane() string {
	active := m.loader.Active()
	if started, ok := m.inflight[active]; ok {
		return loadingLabel(m.now().Sub(started), m.slow, m.spinner.View())
	}
	if !m.loaded {
		return mutedStyle.Render("Loading response…")
	}
	if m.current == nil {
		return m.placeholderView()
	}

	var b strings.Builder
	b.WriteString(renderSummary(m.current))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	if m.filtering {
		b.WriteString(m.filterInput.View())
		b.WriteString("\n")
	} else if expr := m.filters[active]; expr != "" && m.tab == tabBody {
		b.WriteString(mutedStyle.Render("filter: " + expr))
		b.WriteString("\n")
	}
	b.WriteString(m.body.View())
	return b.String()
}

// loadingLabel shows a spinner until slow has passed, then whole elapsed seconds.
func loadingLabel(elapsed, slow time.Duration, spin string) string {
	if elapsed < slow {
		return spin + " Sending request…"
	}
	return fmt.Sprintf("Waiting for response… %ds", int(elapsed/time.Second))
}

func (m Model) placeholderView() string {
	if m.loader.Active() == "" {
		return mutedStyle.Render("Select a request to see its latest response.")
	}
	lines := []string{
		mutedStyle.Render("No response yet. Send the request to see it here."),
		"",
		m.hint(bindings.ActionNextRequest, "next request"),
		m.hint(bindings.ActionReload, "reload"),
		m.hint(bindings.ActionQuit, "quit"),
	}
	return strings.Join(lines, "\n")
}

func (m Model) hint(action bindings.ActionID, label string) string {
	keys := m.keys.Keys(action)
	if len(keys) == 0 {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf("%-10s %s", keys[0], label))
}

func renderSummary(resp *response.Response) string {
	status := statusCodeStyle(resp.StatusClass()).Render(resp.StatusTag())
	return strings.Join([]string{status, resp.TimeTag(), resp.SizeTag()}, mutedStyle.Render("  ·  "))
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, int(tabCount))
	for t := tabBody; t < tabCount; t++ {
		label := t.label()
		if t == tabCookies {
			label = fmt.Sprintf("%s (%d)", label, len(m.current.Cookies()))
		}
		if t == tabHeaders {
			label = fmt.Sprintf("%s (%d)", label, len(m.current.Headers))
		}
		if t == m.tab {
			parts = append(parts, activeTab.Render(label))
		} else {
			parts = append(parts, inactiveTab.Render(label))
		}
	}
	return strings.Join(parts, "   ")
}

func (m *Model) resizeBody() {
	m.body.Width = max(m.width-sidebarWidth-4, 20)
	m.body.Height = max(m.height-chromeRows, 3)
	m.refreshBody()
}

func (m *Model) refreshBody() {
	if m.current == nil {
		m.body.SetContent("")
		return
	}
	_, display := m.tabContent(m.tab)
	m.body.SetContent(display)
	m.body.GotoTop()
}

// tabContent returns the plain text of tab and its styled rendering.
func (m Model) tabContent(tab responseTab) (string, string) {
	resp := m.current
	if resp == nil {
		return "", ""
	}
	width := m.body.Width
	switch tab {
	case tabCookies:
		text := cookiesText(resp.Cookies(), width)
		return text, text
	case tabHeaders:
		text := headersText(resp.Headers, width)
		return text, styleHeaderNames(text)
	default:
		return bodyContent(resp, m.filters[resp.RequestID])
	}
}

func bodyContent(resp *response.Response, filter string) (string, string) {
	if resp.IsError() {
		return resp.Error, errorText.Render(resp.Error)
	}
	data, err := resp.Decode()
	if err != nil {
		msg := "Unable to decode body: " + err.Error()
		return msg, errorText.Render(msg)
	}
	if len(data) == 0 {
		return "", mutedStyle.Render("(empty body)")
	}
	if !utf8.Valid(data) {
		msg := binarySummary(data, resp.ContentType)
		return msg, mutedStyle.Render(msg)
	}

	text := string(data)
	if strings.TrimSpace(filter) != "" {
		filtered, err := applyBodyFilter(text, filter)
		if err != nil {
			return err.Error(), errorText.Render(err.Error())
		}
		return filtered, highlight(filtered, "json")
	}
	if isJSONBody(resp.ContentType, data) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err == nil {
			pretty := buf.String()
			return pretty, highlight(pretty, "json")
		}
	}
	return text, text
}

func isJSONBody(contentType string, data []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid(trimmed)
}

func highlight(src, lexer string) string {
	var buf strings.Builder
	if err := quick.Highlight(&buf, src, lexer, "terminal256", "monokai"); err != nil {
		return src
	}
	return buf.String()
}

func binarySummary(data []byte, contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return fmt.Sprintf("Binary body, %s (%s). Save it to inspect the contents.", humanize.IBytes(uint64(len(data))), ct)
}

func cookiesText(cookies []*http.Cookie, width int) string {
	if len(cookies) == 0 {
		return "No cookies"
	}
	var b strings.Builder
	for _, c := range cookies {
		line := c.Name + "=" + c.Value
		var attrs []string
		if c.Domain != "" {
			attrs = append(attrs, "domain="+c.Domain)
		}
		if c.Path != "" {
			attrs = append(attrs, "path="+c.Path)
		}
		if !c.Expires.IsZero() {
			attrs = append(attrs, "expires="+c.Expires.UTC().Format(time.RFC1123))
		}
		if c.Secure {
			attrs = append(attrs, "secure")
		}
		if c.HttpOnly {
			attrs = append(attrs, "httponly")
		}
		if len(attrs) > 0 {
			line += "; " + strings.Join(attrs, "; ")
		}
		b.WriteString(truncateLine(line, width))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func headersText(headers []response.Header, width int) string {
	if len(headers) == 0 {
		return "No headers"
	}
	nameWidth := 0
	for _, h := range headers {
		nameWidth = max(nameWidth, runewidth.StringWidth(h.Name))
	}
	var b strings.Builder
	for _, h := range headers {
		name := h.Name + ":" + strings.Repeat(" ", nameWidth-runewidth.StringWidth(h.Name))
		b.WriteString(truncateLine(name+" "+h.Value, width))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func styleHeaderNames(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		lines[i] = headerNameCol.Render(name+":") + rest
	}
	return strings.Join(lines, "\n")
}

func truncateLine(line string, width int) string {
	if width <= 0 {
		return line
	}
	return runewidth.Truncate(line, width, "…")
}
