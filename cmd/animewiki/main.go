package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/mmcdole/animewiki/internal/catalog"
	"github.com/mmcdole/animewiki/internal/collection"
	"github.com/mmcdole/animewiki/internal/config"
	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/identity"
	"github.com/mmcdole/animewiki/internal/jikan"
	"github.com/mmcdole/animewiki/internal/log"
	"github.com/mmcdole/animewiki/internal/store"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

// app wires every service a subcommand may need
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	storage     *store.KVStore
	client      *jikan.Client
	session     *identity.Session
	collections *collection.Store
	catalog     *catalog.Service

	out         io.Writer
	interactive bool // stdout is a terminal
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

// Populated in init since the subcommands read their own usage line
func init() {
	commands = map[string]command{
		"login":     {"login <name>", cmdLogin},
		"logout":    {"logout", cmdLogout},
		"whoami":    {"whoami", cmdWhoami},
		"add":       {"add [-kind anime|manga] <id>", cmdAdd},
		"remove":    {"remove [-kind anime|manga] <id>", cmdRemove},
		"toggle":    {"toggle [-kind anime|manga] <id>", cmdToggle},
		"watchlist": {"watchlist [-kind anime|manga] [-ids] [-filter query]", cmdWatchlist},
		"browse":    {"browse [-kind anime|manga]", cmdBrowse},
		"search":    {"search [-kind anime|manga] [-page n] <query>", cmdSearch},
		"top":       {"top [-kind anime|manga] [-movies] [-characters] [-page n]", cmdTop},
		"season":    {"season [-genre id] [-page n]", cmdSeason},
		"genres":    {"genres [-kind anime|manga] [-refresh]", cmdGenres},
		"show":      {"show [-kind anime|manga] <id>", cmdShow},
		"serve":     {"serve [-addr host:port]", cmdServe},
	}
}

func main() {
	// Handle version flag
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("animewiki %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: animewiki [-v] <command> [flags]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting animewiki", "version", Version, "command", args[0])

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.storage.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cmd.run(ctx, a, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	storage, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	client := jikan.NewClient(cfg.Catalog, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		storage:     storage,
		client:      client,
		session:     identity.NewSession(storage, logger),
		collections: collection.NewStore(storage, client, cfg.Collection.Workers, logger),
		catalog:     catalog.NewService(client, storage, cfg.Catalog.BannedIDs, logger),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
	}, nil
}

// describe turns well-known errors into a hint for the user
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "not logged in (run: animewiki login <name>)"
	case errors.Is(err, domain.ErrServerOffline):
		return "catalog is unreachable, check your connection"
	case errors.Is(err, domain.ErrRateLimited):
		return "catalog is busy, try again in a moment"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	default:
		return err.Error()
	}
}

// newFlagSet creates a subcommand flag set with a -kind flag
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: animewiki %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	kind := fs.String("kind", "anime", "catalog: anime or manga")
	return fs, kind
}

// oneArg joins the remaining arguments into a single value
func oneArg(fs *flag.FlagSet, what string) (string, error) {
	v := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if v == "" {
		fs.Usage()
		return "", fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, what)
	}
	return v, nil
}
