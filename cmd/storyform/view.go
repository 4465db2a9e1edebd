package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/service"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	storyStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1).
			Width(76)
)

// terminalView печатает тосты и истории в out.
type terminalView struct {
	out  io.Writer
	form *service.StoryForm
}

func (v *terminalView) Toast(kind service.ToastKind, message string) {
	var style lipgloss.Style
	var icon string
	switch kind {
	case service.ToastSuccess:
		style, icon = successStyle, "✓"
	case service.ToastWarning:
		style, icon = warningStyle, "!"
	default:
		style, icon = errorStyle, "✗"
	}
	fmt.Fprintln(v.out, style.Render(icon+" "+message))
}

func (v *terminalView) ScrollToStories() {
	v.renderStories()
}

func (v *terminalView) renderStories() {
	history := v.form.History()
	if len(history) == 0 {
		fmt.Fprintln(v.out, mutedStyle.Render("No stories yet. Run: storyform generate --name Amara --setting underwater --creature \"sea dragon\""))
		return
	}

	copied := v.form.Copied()
	fmt.Fprintln(v.out, titleStyle.Render("Your stories"))
	for i, story := range history {
		header := fmt.Sprintf("Story %d", i+1)
		if copied != "" && story == copied {
			header += " " + successStyle.Render("✓ copied")
		}
		fmt.Fprintln(v.out, header)
		fmt.Fprintln(v.out, storyStyle.Render(story))
	}
	fmt.Fprintln(v.out, mutedStyle.Render(fmt.Sprintf("Only the last %d stories are kept.", domain.MaxHistory)))
}
