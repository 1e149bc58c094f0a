package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/export"
	"github.com/unkn0wn-root/respane/internal/filesvc"
)

type savePrompt struct {
	opts  export.SaveOptions
	reply chan string
}

func (p *savePrompt) answer(path string) {
	select {
	case p.reply <- path:
	default:
	}
}

// PromptBridge is the exporter's dialog port inside the TUI. SaveFile hands
// the request to the running Model, which shows its save modal, and blocks
// until the user submits or escapes.
type PromptBridge struct {
	prompts chan *savePrompt
	done    chan struct{}
	once    sync.Once
}

func NewPromptBridge() *PromptBridge {
	return &PromptBridge{
		prompts: make(chan *savePrompt),
		done:    make(chan struct{}),
	}
}

func (b *PromptBridge) SaveFile(ctx context.Context, opts export.SaveOptions) (string, error) {
	p := &savePrompt{opts: opts, reply: make(chan string, 1)}
	select {
	case b.prompts <- p:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.done:
		return "", errdef.New(errdef.CodeDialog, "save prompt unavailable")
	}
	select {
	case path := <-p.reply:
		return path, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.done:
		return "", errdef.New(errdef.CodeDialog, "save prompt closed")
	}
}

// Close releases any exporter still waiting on a prompt.
func (b *PromptBridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *PromptBridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-b.prompts:
			return savePromptMsg{prompt: p}
		case <-b.done:
			return nil
		}
	}
}

func (m *Model) openSaveModal(p *savePrompt) {
	if p == nil {
		return
	}
	if m.save != nil {
		m.pendingSaves = append(m.pendingSaves, p)
		return
	}
	m.save = p
	m.filtering = false
	m.filterInput.Blur()
	m.saveInput.SetValue(m.defaultSavePath(p.opts))
	m.saveInput.CursorEnd()
	m.saveInput.Focus()
}

func (m *Model) closeSaveModal() {
	m.save = nil
	m.saveInput.Blur()
	m.saveInput.SetValue("")
	if len(m.pendingSaves) > 0 {
		next := m.pendingSaves[0]
		m.pendingSaves = m.pendingSaves[1:]
		m.openSaveModal(next)
	}
}

func (m *Model) handleSaveKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.save.answer("")
		m.closeSaveModal()
		return nil
	case tea.KeyEnter:
		m.save.answer(m.resolveSavePath(m.saveInput.Value()))
		m.closeSaveModal()
		return nil
	}
	var cmd tea.Cmd
	m.saveInput, cmd = m.saveInput.Update(msg)
	return cmd
}

func (m *Model) saveBaseDir() string {
	base := strings.TrimSpace(m.lastSaveDir)
	if base == "" {
		if cwd, err := os.Getwd(); err == nil {
			base = cwd
		} else {
			base = "."
		}
	}
	return base
}

func (m *Model) defaultSavePath(opts export.SaveOptions) string {
	name := strings.TrimSpace(opts.DefaultName)
	if name == "" {
		name = "response"
	}
	return filepath.Join(m.saveBaseDir(), name)
}

// resolveSavePath returns "" for blank input so the exporter treats it as
// a cancel.
func (m *Model) resolveSavePath(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	resolved, err := filesvc.ResolvePath(input, m.saveBaseDir())
	if err != nil {
		m.logger.Printf("ui: resolve save path %q: %v", input, err)
		return input
	}
	return resolved
}

func (m Model) renderSaveModal() string {
	if m.save == nil {
		return ""
	}
	opts := m.save.opts
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Save"
	}
	lines := []string{titleStyle.Render(title), ""}
	for _, f := range opts.Filters {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Type: %s (*.%s)", f.Name, f.Extension)))
	}
	button := strings.TrimSpace(opts.ButtonLabel)
	if button == "" {
		button = "Save"
	}
	lines = append(lines,
		m.saveInput.View(),
		"",
		mutedStyle.Render(fmt.Sprintf("enter %s · esc cancel", strings.ToLower(button))),
	)
	return modalStyle.Render(strings.Join(lines, "\n"))
}
