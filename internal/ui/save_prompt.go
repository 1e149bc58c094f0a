package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/export"
	"github.com/unkn0wn-root/respane/internal/filesvc"
)

// TerminalDialog prompts for a destination with a one-off program. It backs
// headless exports where no pane is running.
type TerminalDialog struct {
	Base    string
	Options []tea.ProgramOption
}

func (d TerminalDialog) SaveFile(ctx context.Context, opts export.SaveOptions) (string, error) {
	return RunSavePrompt(ctx, opts, d.Base, d.Options...)
}

type promptModel struct {
	opts      export.SaveOptions
	input     textinput.Model
	done      bool
	cancelled bool
}

func newPromptModel(opts export.SaveOptions, base string) promptModel {
	in := textinput.New()
	in.Prompt = "save to> "
	in.CharLimit = 4096
	name := strings.TrimSpace(opts.DefaultName)
	if name == "" {
		name = "response"
	}
	if strings.TrimSpace(base) != "" {
		name = filepath.Join(base, name)
	}
	in.SetValue(name)
	in.CursorEnd()
	in.Focus()
	return promptModel{opts: opts, input: in}
}

func (p promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (p promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			p.done = true
			return p, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			p.cancelled = true
			return p, tea.Quit
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p promptModel) View() string {
	if p.done || p.cancelled {
		return ""
	}
	title := strings.TrimSpace(p.opts.Title)
	if title == "" {
		title = "Save"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	for _, f := range p.opts.Filters {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Type: %s (*.%s)", f.Name, f.Extension)))
		b.WriteString("\n")
	}
	b.WriteString(p.input.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter save · esc cancel"))
	b.WriteString("\n")
	return b.String()
}

func (p promptModel) path(base string) (string, error) {
	if p.cancelled {
		return "", nil
	}
	input := strings.TrimSpace(p.input.Value())
	if input == "" {
		return "", nil
	}
	return filesvc.ResolvePath(input, base)
}

// RunSavePrompt asks for a destination on the terminal. Escape or an empty
// answer returns "".
func RunSavePrompt(
	ctx context.Context,
	opts export.SaveOptions,
	base string,
	progOpts ...tea.ProgramOption,
) (string, error) {
	all := append([]tea.ProgramOption{tea.WithContext(ctx)}, progOpts...)
	final, err := tea.NewProgram(newPromptModel(opts, base), all...).Run()
	if err != nil {
		return "", errdef.Wrap(errdef.CodeDialog, err, "run save prompt")
	}
	pm, ok := final.(promptModel)
	if !ok {
		return "", errdef.New(errdef.CodeDialog, "unexpected prompt model %T", final)
	}
	return pm.path(base)
}
