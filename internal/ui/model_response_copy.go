package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/unkn0wn-root/respane/internal/export"
)

func (m *Model) copyResponseTab() tea.Cmd {
	if m.current == nil {
		msg := statusMsg{text: "No response available to copy", level: statusWarn}
		return func() tea.Msg { return msg }
	}
	label := m.tab.label()
	text, _ := m.tabContent(m.tab)
	resp := m.current
	exp := m.exporter
	return func() tea.Msg {
		return copyDoneMsg{label: label, result: exp.CopyText(context.Background(), resp, ensureTrailingNewline(text))}
	}
}

func (m *Model) applyCopy(msg copyDoneMsg) {
	if msg.result.Outcome != export.OutcomeSucceeded {
		m.setStatusMessage(statusMsg{level: statusWarn, text: "Copy failed: " + msg.result.Summary()})
		return
	}
	m.setStatusMessage(statusMsg{
		level: statusSuccess,
		text:  fmt.Sprintf("Copied %s tab (%s)", msg.label, humanize.IBytes(uint64(msg.result.Bytes))),
	})
}

func ensureTrailingNewline(s string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
