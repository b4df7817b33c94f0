package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/animewiki/internal/catalog"
	"github.com/mmcdole/animewiki/internal/collection"
	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/tui/styles"
	"golang.org/x/term"
)

const titleWidth = 48

// render applies style only when writing to a terminal
func (a *app) render(style lipgloss.Style, s string) string {
	if !a.interactive {
		return s
	}
	return style.Render(s)
}

// collectWithSpinner drains seq, animating a progress line on stderr when it
// is a terminal
func (a *app) collectWithSpinner(seq collection.Sequence) []collection.Item {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return collection.Collect(seq)
	}

	var n atomic.Int64
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		frames := spinner.Dot.Frames
		tick := time.NewTicker(spinner.Dot.FPS)
		defer tick.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				fmt.Fprint(os.Stderr, "\r\033[K")
				return
			case <-tick.C:
				frame := styles.SpinnerStyle.Render(frames[i%len(frames)])
				fmt.Fprintf(os.Stderr, "\r%s resolving watchlist (%d)", frame, n.Load())
			}
		}
	}()

	var items []collection.Item
	for id, r := range seq {
		items = append(items, collection.Item{ID: id, Result: r})
		n.Add(1)
	}
	close(done)
	<-stopped
	return items
}

func (a *app) printEntries(entries []domain.Entry) {
	for _, e := range entries {
		a.printEntry(e)
	}
}

func (a *app) printEntry(e domain.Entry) {
	id := a.render(styles.DimStyle, fmt.Sprintf("%8s", e.ID))
	title := a.render(styles.TitleStyle, fmt.Sprintf("%-*s", titleWidth, styles.Truncate(e.DisplayTitle(), titleWidth)))
	score := a.render(styles.ScoreStyle, fmt.Sprintf("%6s", e.ScoreLabel()))
	count := a.render(styles.SubtitleStyle, fmt.Sprintf("%9s", e.CountLabel()))
	fmt.Fprintf(a.out, "%s  %s %s %s\n", id, title, score, count)
}

func (a *app) printPage(p domain.Page[domain.Entry]) {
	if len(p.Items) == 0 {
		fmt.Fprintln(a.out, "No results.")
		return
	}
	a.printEntries(p.Items)
	a.printPagination(p.Pagination)
}

func (a *app) printPagination(p domain.Pagination) {
	if p.LastVisiblePage <= 1 {
		return
	}
	line := fmt.Sprintf("page %d of %d", p.CurrentPage, p.LastVisiblePage)
	if p.HasNextPage {
		line += fmt.Sprintf(" (next: -page %d)", p.CurrentPage+1)
	}
	fmt.Fprintln(a.out, a.render(styles.DimStyle, line))
}

// printUnavailable lists ids that could not be resolved
func (a *app) printUnavailable(failed []collection.Item) {
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.render(styles.ErrorStyle, fmt.Sprintf("%d unavailable:", len(failed))))
	for _, it := range failed {
		fmt.Fprintf(a.out, "%8s  %s\n", it.ID, failureReason(it.Err))
	}
}

func failureReason(err error) string {
	var fe *domain.FetchError
	retry := ""
	if errors.As(err, &fe) && fe.Retryable() {
		retry = ", try again later"
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "no longer in the catalog"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate limited" + retry
	case errors.Is(err, domain.ErrServerOffline):
		return "catalog unreachable" + retry
	default:
		return err.Error() + retry
	}
}

func (a *app) printCharacters(chars []domain.Character) {
	for i, c := range chars {
		fav := a.render(styles.ScoreStyle, fmt.Sprintf("%7d", c.Favorites))
		fmt.Fprintf(a.out, "%3d. %-32s %s favorites\n", i+1, styles.Truncate(c.Name, 32), fav)
	}
}

func (a *app) printGenres(genres []domain.Genre) {
	for _, g := range genres {
		id := a.render(styles.DimStyle, fmt.Sprintf("%4d", g.ID))
		fmt.Fprintf(a.out, "%s  %-28s %6d\n", id, g.Name, g.Count)
	}
}

func (a *app) printDetails(d *catalog.Details, saved bool) {
	e := d.Entry
	header := a.render(styles.TitleStyle, e.DisplayTitle())
	if saved {
		header += " " + a.render(styles.SuccessStyle, "[in watchlist]")
	}
	fmt.Fprintln(a.out, header)
	if e.TitleEnglish != "" && e.TitleEnglish != e.Title {
		fmt.Fprintln(a.out, a.render(styles.SubtitleStyle, e.Title))
	}

	meta := []string{e.Type, e.Status, e.CountLabel(), "score " + e.ScoreLabel()}
	if e.Year > 0 {
		meta = append(meta, fmt.Sprint(e.Year))
	}
	fmt.Fprintln(a.out, a.render(styles.DimStyle, strings.Join(nonEmpty(meta), " · ")))
	if len(e.Genres) > 0 {
		fmt.Fprintln(a.out, a.render(styles.AccentStyle, strings.Join(e.Genres, ", ")))
	}
	if e.Synopsis != "" {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, e.Synopsis)
	}

	if len(d.Characters) > 0 {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, a.render(styles.TitleStyle, "Characters"))
		for _, c := range d.Characters[:min(len(d.Characters), 10)] {
			fmt.Fprintf(a.out, "  %-32s %s\n", styles.Truncate(c.Name, 32), a.render(styles.DimStyle, c.Role))
		}
	}
	if len(d.Staff) > 0 {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, a.render(styles.TitleStyle, "Staff"))
		for _, s := range d.Staff[:min(len(d.Staff), 10)] {
			fmt.Fprintf(a.out, "  %-32s %s\n", styles.Truncate(s.Name, 32), a.render(styles.DimStyle, strings.Join(s.Positions, ", ")))
		}
	}
	if e.URL != "" {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, a.render(styles.DimStyle, e.URL))
	}
}

func nonEmpty(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
