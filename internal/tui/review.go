// Package tui implements the batch review screen shown before accounts are
// created.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zroster/internal/identity"
)

// Decision is the outcome of a review.
type Decision int

const (
	Pending Decision = iota
	Confirmed
	Cancelled
)

const (
	defaultPageSize = 10
	minPageSize     = 3
	chromeLines     = 12 // header, separator, steps, table head, footer
)

// accent is zroster's colour in the zarlcorp palette.
var accent = zstyle.Sapphire

// Model shows an allocated batch and asks whether to create it.
type Model struct {
	title    string
	steps    []string
	rows     []identity.Identity
	offset   int
	width    int
	height   int
	decision Decision
}

// New creates a review for rows. steps describe what confirming will do.
func New(title string, steps []string, rows []identity.Identity) Model {
	return Model{
		title: title,
		steps: steps,
		rows:  rows,
	}
}

// Decision returns what the user chose.
func (m Model) Decision() Decision {
	return m.decision
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.offset = m.clampOffset(m.offset)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) || key.Matches(msg, zstyle.KeyBack) {
		m.decision = Cancelled
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		m.decision = Confirmed
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyUp) {
		m.offset = m.clampOffset(m.offset - 1)
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		m.offset = m.clampOffset(m.offset + 1)
		return m, nil
	}

	switch msg.String() {
	case "y", "Y":
		m.decision = Confirmed
		return m, tea.Quit
	case "n", "N":
		m.decision = Cancelled
		return m, tea.Quit
	case "g":
		m.offset = 0
	case "G":
		m.offset = m.clampOffset(len(m.rows))
	}

	return m, nil
}

func (m Model) pageSize() int {
	if m.height == 0 {
		return defaultPageSize
	}
	return max(m.height-chromeLines, minPageSize)
}

func (m Model) clampOffset(off int) int {
	maxOff := max(len(m.rows)-m.pageSize(), 0)
	return min(max(off, 0), maxOff)
}

func (m Model) View() string {
	header := zstyle.RenderHeader("zroster", m.title, accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter([]zstyle.HelpPair{
		{Key: "j/k", Desc: "scroll"},
		{Key: "y", Desc: "create"},
		{Key: "n", Desc: "cancel"},
	})

	return "\n" + header + "\n" + sep + "\n" + m.viewContent() + "\n" + footer + "\n"
}

func (m Model) viewContent() string {
	var b strings.Builder

	b.WriteString("\n")
	if len(m.rows) == 0 {
		b.WriteString("  " + zstyle.MutedText.Render("nothing to generate") + "\n")
		return b.String()
	}

	b.WriteString("  " + zstyle.MutedText.Render("this will:") + "\n")
	for _, step := range m.steps {
		fmt.Fprintf(&b, "  %s %s\n", zstyle.StatusWarn.Render("-"), step)
	}
	b.WriteString("\n")

	head := fmt.Sprintf("%4s  %-24s %-14s %s", "#", "name", "username", "password")
	b.WriteString("  " + zstyle.Subtitle.Render(head) + "\n")

	accentStyle := lipgloss.NewStyle().Foreground(accent)
	end := min(m.offset+m.pageSize(), len(m.rows))
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		line := fmt.Sprintf("%4d  %-24s %-14s %s", i+1, truncate(r.Name, 24), r.Username, r.Password)
		b.WriteString("  " + line + "\n")
	}

	pos := fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(m.rows))
	b.WriteString("\n  " + accentStyle.Render(pos) + "  " + zstyle.StatusWarn.Render("create these accounts?") + " (y/n)\n")

	return b.String()
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// Run shows m until the user decides or ctx is cancelled. A cancelled
// context counts as Cancelled.
func Run(ctx context.Context, m Model, in io.Reader, out io.Writer) (Decision, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled, nil
		}
		return Cancelled, fmt.Errorf("review: %w", err)
	}

	fm, ok := final.(Model)
	if !ok || fm.decision != Confirmed {
		return Cancelled, nil
	}
	return Confirmed, nil
}
