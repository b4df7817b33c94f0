package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/animewiki/internal/api"
	"github.com/mmcdole/animewiki/internal/catalog"
	"github.com/mmcdole/animewiki/internal/collection"
	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/tui"
	"golang.org/x/term"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs, _ := newFlagSet("login")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name, err := oneArg(fs, "username")
	if err != nil {
		return err
	}
	user, err := a.session.Login(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", user)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	user, err := a.session.Current()
	if err != nil {
		return err
	}
	if user.Anonymous() {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintln(a.out, user)
	return nil
}

// itemArgs parses [-kind] <id> for the mutating commands
func itemArgs(name string, args []string) (domain.MediaKind, domain.MediaID, error) {
	fs, kindFlag := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return 0, "", err
	}
	kind, err := domain.ParseMediaKind(*kindFlag)
	if err != nil {
		return 0, "", err
	}
	raw, err := oneArg(fs, "id")
	if err != nil {
		return 0, "", err
	}
	id, err := domain.ParseMediaID(raw)
	if err != nil {
		return 0, "", err
	}
	return kind, id, nil
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	kind, id, err := itemArgs("add", args)
	if err != nil {
		return err
	}
	user, err := a.session.Current()
	if err != nil {
		return err
	}
	set, err := a.collections.Add(ctx, user, kind, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s to your %s watchlist (%d saved)\n", id, kind, set.Len())
	return nil
}

func cmdRemove(ctx context.Context, a *app, args []string) error {
	kind, id, err := itemArgs("remove", args)
	if err != nil {
		return err
	}
	user, err := a.session.Current()
	if err != nil {
		return err
	}
	set, err := a.collections.Remove(ctx, user, kind, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s from your %s watchlist (%d saved)\n", id, kind, set.Len())
	return nil
}

func cmdToggle(ctx context.Context, a *app, args []string) error {
	kind, id, err := itemArgs("toggle", args)
	if err != nil {
		return err
	}
	user, err := a.session.Current()
	if err != nil {
		return err
	}
	added, set, err := a.collections.Toggle(ctx, user, kind, id)
	if err != nil {
		return err
	}
	verb := "Removed"
	if added {
		verb = "Added"
	}
	fmt.Fprintf(a.out, "%s %s (%d saved)\n", verb, id, set.Len())
	return nil
}

func cmdWatchlist(ctx context.Context, a *app, args []string) error {
	fs, kindFlag := newFlagSet("watchlist")
	idsOnly := fs.Bool("ids", false, "print saved ids without fetching details")
	filter := fs.String("filter", "", "only show titles fuzzily matching this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := domain.ParseMediaKind(*kindFlag)
	if err != nil {
		return err
	}
	user, err := a.session.Current()
	if err != nil {
		return err
	}

	if *idsOnly {
		ids, err := a.collections.List(ctx, user, kind)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(a.out, id)
		}
		return nil
	}

	seq, err := a.collections.Materialize(ctx, user, kind)
	if err != nil {
		return err
	}
	items := a.collectWithSpinner(seq)
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, failed := collection.Partition(items)
	entries = catalog.FilterEntries(*filter, entries)

	if len(entries) == 0 && len(failed) == 0 {
		fmt.Fprintf(a.out, "Your %s watchlist is empty.\n", kind)
		return nil
	}
	a.printEntries(entries)
	if len(failed) > 0 {
		a.printUnavailable(failed)
	}
	return nil
}

func cmdBrowse(ctx context.Context, a *app, args []string) error {
	fs, kindFlag := newFlagSet("browse")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := domain.ParseMediaKind(*kindFlag)
	if err != nil {
		return err
	}
	if !a.interactive || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("browse needs an interactive terminal; use watchlist instead")
	}
	user, err := a.session.Current()
	if err != nil {
		return err
	}
	if user.Anonymous() {
		return domain.ErrUnauthenticated
	}

	model := tui.NewModel(a.collections, user, kind)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// pageFlag registers -page on fs
func pageFlag(fs *flag.FlagSet) *int {
	return fs.Int("page", 1, "result page, starting at 1")
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	fs, kindFlag := newFlagSet("search")
	page := pageFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := domain.ParseMediaKind(*kindFlag)
	if err != nil {
		return err
	}
	query, err := oneArg(fs, "query")
	if err != nil {
		return err
	}
	res, err := a.catalog.Search(ctx, kind, query, *page)
	if err != nil {
		return err
	}
	a.printPage(res)
	return nil
}

func cmdTop(ctx context.Context, a *app, args []string) error {
	fs, kindFlag := newFlagSet("top")
	movies := fs.Bool("movies", false, "rank anime films only")
	characters := fs.Bool("characters", false, "rank characters instead of titles")
	page := pageFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := domain.ParseMediaKind(*kindFlag)
	if err != nil {
		return err
	}

	if *characters {
		res, err := a.catalog.TopCharacters(ctx, *page)
		if err != nil {
			return err
		}
		a.printCharacters(res.Items)
		return nil
	}

	var res domain.Page[domain.Entry]
	switch {
	case kind == domain.KindManga:
		res, err = a.catalog.TopManga(ctx, *page)
	case *movies:
		res, err = a.catalog.TopMovies(ctx, *page)
	default:
		res, err = a.catalog.Trending(ctx, *page)
	}
	if err != nil {
		return err
	}
	a.printPage(res)
	return nil
}

func cmdSeason(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("season", flag.ContinueOnError)
	genre := fs.Int("genre", 0, "genre id (see: animewiki genres); 0 lists the current season")
	page := pageFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.catalog.Browse(ctx, catalog.BrowseQuery{Genre: *genre, Page: *page})
	if err != nil {
		return err
	}
	a.printPage(res)
	return nil
}

func cmdGenres(ctx context.Context, a *app, args []string) error {
	fs, kindFlag := newFlagSet("genres")
	refresh := fs.Bool("refresh", false, "ignore the cached list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := domain.ParseMediaKind(*kindFlag)
	if err != nil {
		return err
	}
	if *refresh {
		if err := a.catalog.InvalidateGenres(kind); err != nil {
			return err
		}
	}
	genres, err := a.catalog.Genres(ctx, kind)
	if err != nil {
		return err
	}
	a.printGenres(genres)
	return nil
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	kind, id, err := itemArgs("show", args)
	if err != nil {
		return err
	}
	d, err := a.catalog.Details(ctx, kind, id)
	if err != nil {
		return err
	}

	saved := false
	if user, err := a.session.Current(); err == nil && !user.Anonymous() {
		saved, _ = a.collections.Contains(ctx, user, kind, id)
	}
	a.printDetails(d, saved)
	return nil
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := api.NewServer(a.client, a.cfg.Server.AllowedOrigins, a.logger)
	fmt.Fprintf(a.out, "Search proxy listening on %s\n", *addr)
	return srv.Run(ctx, *addr)
}
