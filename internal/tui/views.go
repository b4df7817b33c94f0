package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/tui/styles"
)

// Fixed column widths in a list row
const (
	scoreWidth = 6
	countWidth = 9
)

// chromeHeight is the header plus footer
const chromeHeight = 3

// listHeight returns how many rows fit between header and footer
func (m *Model) listHeight() int {
	h := m.height - chromeHeight
	if m.filtering || m.filterActive() {
		h--
	}
	if m.showHelp {
		h -= 3
	}
	if h < 1 {
		h = 1
	}
	return h
}

// View renders the browser
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.filtering || m.filterActive() {
		b.WriteString(m.filterInput.View())
		b.WriteString("\n")
	}

	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader() string {
	title := styles.BadgeStyle.Render("animewiki")
	who := styles.SubtitleStyle.Render(fmt.Sprintf(" %s · %s watchlist", m.user, m.kind))

	progress := ""
	if m.loading {
		progress = " " + m.spinner.View() + styles.DimStyle.Render(fmt.Sprintf(" %d/%d", len(m.rows), m.total))
	} else {
		progress = styles.DimStyle.Render(fmt.Sprintf(" %d entries", len(m.rows)))
	}

	return title + who + progress + "\n"
}

func (m Model) renderList() string {
	if m.err != nil && len(m.rows) == 0 {
		return styles.ErrorStyle.Render(m.err.Error())
	}

	n := m.visibleCount()
	if n == 0 {
		switch {
		case m.loading:
			return styles.DimStyle.Render("loading...")
		case m.filterActive():
			return styles.DimStyle.Render("no matches")
		default:
			return styles.DimStyle.Render(fmt.Sprintf("Your %s watchlist is empty.", m.kind))
		}
	}

	height := m.listHeight()
	end := m.offset + height
	if end > n {
		end = n
	}

	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		idx := m.visible(i)
		lines = append(lines, m.renderRow(m.rows[idx], m.matched[idx], i == m.cursor))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r row, matched []int, selected bool) string {
	base := styles.NormalRowStyle
	if selected {
		base = styles.SelectedRowStyle
	}
	titleWidth := m.width - scoreWidth - countWidth - 4
	if titleWidth < 10 {
		titleWidth = 10
	}

	if r.err != nil {
		dim := base.Foreground(styles.DimGray)
		text := fmt.Sprintf(" %-*s %s", scoreWidth, "-", styles.Truncate(fmt.Sprintf("#%s unavailable: %s", r.id, reason(r.err)), titleWidth+countWidth))
		return dim.Width(m.width).Render(text)
	}

	e := r.entry
	score := base.Foreground(styles.Yellow).Render(fmt.Sprintf(" %-*s", scoreWidth, e.ScoreLabel()))

	title := styles.Truncate(e.DisplayTitle(), titleWidth)
	if title != e.DisplayTitle() {
		// Match positions are meaningless once the title is cut
		matched = nil
	}
	titleCell := styles.Highlight(title, matched, base)
	if pad := titleWidth - lipgloss.Width(title); pad > 0 {
		titleCell += base.Render(strings.Repeat(" ", pad))
	}

	count := base.Render(fmt.Sprintf(" %*s ", countWidth, e.CountLabel()))
	line := score + titleCell + count
	if w := lipgloss.Width(line); w < m.width {
		line += base.Render(strings.Repeat(" ", m.width-w))
	}
	return line
}

// reason turns a materialization failure into a short label
func reason(err error) string {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		err = fe.Err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate limited, press r to retry"
	case errors.Is(err, domain.ErrServerOffline):
		return "catalog unreachable"
	case errors.Is(err, domain.ErrServerError):
		return "catalog error"
	default:
		return err.Error()
	}
}

func (m Model) renderFooter() string {
	var left string
	switch {
	case m.err != nil && len(m.rows) > 0:
		left = styles.ErrorStyle.Render(m.err.Error())
	case m.status != "":
		left = styles.AccentStyle.Render(m.status)
	}

	helpView := m.help.View(m.keys)
	if left == "" {
		return helpView
	}
	return left + "\n" + helpView
}
