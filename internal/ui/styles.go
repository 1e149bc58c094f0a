package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	activeTab     = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("212"))
	inactiveTab   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	sidebarStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).PaddingRight(1)
	paneStyle     = lipgloss.NewStyle().PaddingLeft(1)
	modalStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2)
	errorText     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	headerNameCol = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
)

func statusStyle(level statusLevel) lipgloss.Style {
	switch level {
	case statusWarn:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	case statusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	case statusSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	default:
		return mutedStyle
	}
}

// statusCodeStyle colors the summary tag by status class.
func statusCodeStyle(class int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch class {
	case 2:
		return base.Foreground(lipgloss.Color("42"))
	case 3:
		return base.Foreground(lipgloss.Color("81"))
	case 4:
		return base.Foreground(lipgloss.Color("214"))
	case 5:
		return base.Foreground(lipgloss.Color("203"))
	default:
		return base.Foreground(lipgloss.Color("244"))
	}
}
