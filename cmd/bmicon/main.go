package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bmicon/internal/exporter"
	"github.com/nikbrunner/bmicon/internal/icon"
	"github.com/nikbrunner/bmicon/internal/importer"
	"github.com/nikbrunner/bmicon/internal/logging"
	"github.com/nikbrunner/bmicon/internal/model"
	"github.com/nikbrunner/bmicon/internal/picker"
	"github.com/nikbrunner/bmicon/internal/probe"
	"github.com/nikbrunner/bmicon/internal/search"
	"github.com/nikbrunner/bmicon/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "help", "--help", "-h":
		printHelp()
		return
	case "get":
		requireArgs(args, "bmicon get <url>...")
		withApp(ctx, func(a *app) error { return runGet(ctx, a, args, false) })
	case "refresh":
		requireArgs(args, "bmicon refresh <url>...")
		withApp(ctx, func(a *app) error { return runGet(ctx, a, args, true) })
	case "batch":
		requireArgs(args, "bmicon batch <bookmarks.html>")
		withApp(ctx, func(a *app) error { return runBatch(ctx, a, args[0]) })
	case "export":
		requireArgs(args, "bmicon export <bookmarks.html> [out.html]")
		var outputPath string
		if len(args) >= 2 {
			outputPath = args[1]
		}
		withApp(ctx, func(a *app) error { return runExport(ctx, a, args[0], outputPath) })
	case "find":
		query := strings.Join(args, " ")
		withApp(ctx, func(a *app) error { return runFind(ctx, a, query) })
	case "stats":
		withApp(ctx, func(a *app) error { return runStats(ctx, a) })
	case "clear":
		withApp(ctx, func(a *app) error { return runClear(ctx, a) })
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	help := `bmicon - favicon resolver and cache for bookmarks

Usage:
  bmicon get <url>...              Resolve and print icons
  bmicon refresh <url>...          Re-probe ignoring the cache
  bmicon batch <bookmarks.html>    Resolve icons for every bookmark in a file
  bmicon export <in.html> [out]    Write bookmarks HTML with ICON_URI attributes
  bmicon find [query]              Fuzzy-find a cached URL (Enter: refresh, y: copy icon)
  bmicon stats                     Show cache statistics
  bmicon clear                     Empty the cache
  bmicon help                      Show this help

Output:
  <url><TAB><icon url | default>

Data Storage:
  ~/.config/bmicon/config.json
  ~/.config/bmicon/icons.db        (backend "sqlite", default)
  ~/.config/bmicon/icons.json      (backend "json")

Environment:
  BMICON_LOG_LEVEL                 debug, info, warn or error
`
	fmt.Print(help)
}

func requireArgs(args []string, usage string) {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg *storage.Config
	kv  storage.KV
	svc *icon.Service
	log *slog.Logger
}

// withApp opens config, store and service, runs fn and always flushes the
// cache before exiting.
func withApp(ctx context.Context, fn func(*app) error) {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runErr := fn(a)

	if err := a.close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving icon cache: %v\n", err)
		os.Exit(1)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error %v\n", runErr)
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app, error) {
	configPath, err := storage.DefaultConfigFilePath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	cfg, err := storage.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	if v := os.Getenv(logging.EnvLevel); v != "" {
		level = v
	}
	log, err := logging.New(os.Stderr, level)
	if err != nil {
		log.Warn("using default log level", "error", err)
	}

	dir, err := storage.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("getting data dir: %w", err)
	}
	kv, err := storage.Open(*cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("opening icon store: %w", err)
	}

	prober := probe.New(probe.Options{
		Timeout:   time.Duration(cfg.ProbeTimeout),
		UserAgent: cfg.UserAgent,
	})

	svc := icon.New(icon.Options{
		TTL:           time.Duration(cfg.CacheTTL),
		GraceWindow:   time.Duration(cfg.GraceWindow),
		MaxEntries:    cfg.MaxEntries,
		ProbeTimeout:  time.Duration(cfg.ProbeTimeout),
		MaxConcurrent: cfg.MaxConcurrent,
		FlushDelay:    time.Duration(cfg.FlushDelay),
		LookupHost:    cfg.LookupHost,
		Prober:        prober,
		Store:         kv,
		Logger:        log,
	})

	// A damaged cache is not fatal; we start cold and overwrite it.
	if err := svc.Load(ctx); err != nil {
		log.Warn("could not load icon cache", "error", err)
	}

	return &app{cfg: cfg, kv: kv, svc: svc, log: log}, nil
}

func (a *app) close() error {
	// The command context may already be cancelled by Ctrl-C.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.svc.Close(ctx)
	if cerr := a.kv.Close(); err == nil {
		err = cerr
	}
	return err
}

func printRef(u string, ref icon.Ref) {
	out := "default"
	if !icon.IsDefault(ref) {
		out = ref.String()
	}
	fmt.Printf("%s\t%s\n", u, out)
}

func runGet(ctx context.Context, a *app, urls []string, refresh bool) error {
	var refs map[string]icon.Ref
	if refresh {
		refs = a.svc.RefreshBatch(ctx, urls)
	} else {
		refs = a.svc.GetBatch(ctx, urls)
	}
	for _, u := range urls {
		printRef(u, refs[u])
	}
	return nil
}

func loadBookmarks(path string) (*model.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return importer.ParseHTML(f)
}

func runBatch(ctx context.Context, a *app, path string) error {
	store, err := loadBookmarks(path)
	if err != nil {
		return fmt.Errorf("reading bookmarks: %w", err)
	}

	urls := store.URLs()
	refs := a.svc.GetBatch(ctx, urls)
	found := 0
	for _, u := range urls {
		printRef(u, refs[u])
		if !icon.IsDefault(refs[u]) {
			found++
		}
	}
	fmt.Fprintf(os.Stderr, "Resolved %d of %d URLs\n", found, len(urls))
	return nil
}

func runExport(ctx context.Context, a *app, inPath, outPath string) error {
	store, err := loadBookmarks(inPath)
	if err != nil {
		return fmt.Errorf("reading bookmarks: %w", err)
	}

	if outPath == "" {
		outPath, err = exporter.DefaultExportPath()
		if err != nil {
			return fmt.Errorf("getting export path: %w", err)
		}
	}

	exporter.ApplyIcons(store, a.svc.GetBatch(ctx, store.URLs()))

	if err := os.WriteFile(outPath, []byte(exporter.ExportHTML(store)), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	a.log.Info("export written", "path", outPath, "bookmarks", len(store.Bookmarks))
	fmt.Printf("Exported %d bookmarks to %s\n", len(store.Bookmarks), outPath)
	return nil
}

func runFind(ctx context.Context, a *app, query string) error {
	results := search.FuzzySearchEntries(a.svc.Entries(), query)
	if len(results) == 0 {
		fmt.Printf("No cached entries found for '%s'\n", query)
		return nil
	}

	program := tea.NewProgram(picker.New(results, query))
	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("running picker: %w", err)
	}

	p := finalModel.(picker.Picker)
	entry, ok := p.Selected()
	if !ok {
		return nil
	}

	switch p.Action() {
	case picker.ActionRefresh:
		printRef(entry.Key, a.svc.Refresh(ctx, entry.Key))
	case picker.ActionCopy:
		if icon.IsDefault(entry.Icon) {
			fmt.Println("No icon to copy for", entry.Key)
			return nil
		}
		if err := clipboard.WriteAll(entry.Icon.String()); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
		fmt.Printf("Copied: %s\n", entry.Icon)
	}
	return nil
}

func runStats(ctx context.Context, a *app) error {
	st := a.svc.Stats()
	fmt.Printf("Entries:   %d\n", st.Total)
	fmt.Printf("Valid:     %d\n", st.Valid)
	fmt.Printf("Expired:   %d\n", st.Expired)
	fmt.Printf("Default:   %d\n", st.Default)
	fmt.Printf("Backend:   %s\n", a.cfg.Backend)

	if db, ok := a.kv.(*storage.SQLiteKV); ok {
		if at, err := db.UpdatedAt(ctx, icon.StorageKey); err == nil {
			fmt.Printf("Saved at:  %s\n", at.Local().Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func runClear(ctx context.Context, a *app) error {
	n := a.svc.Stats().Total
	if err := a.svc.Clear(ctx); err != nil {
		return fmt.Errorf("clearing icon cache: %w", err)
	}
	fmt.Printf("Cleared %d entries\n", n)
	return nil
}
