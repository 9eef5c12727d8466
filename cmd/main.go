// Command urlmatcher checks URLs against filter lists or runs a filtering
// proxy.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/filterlist"
	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/suffixlist"
	goFlags "github.com/jessevdk/go-flags"
)

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		// The flags parser prints its own errors.
		flagsErr := &goFlags.Error{}
		if !errors.As(err, &flagsErr) {
			_, _ = fmt.Fprintf(os.Stderr, "urlmatcher: %s\n", err)
		} else if flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(1)
	}

	err = run(opts)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "urlmatcher: %s\n", err)

		os.Exit(1)
	}
}

// run runs the command with the given options.
func run(opts *Options) (err error) {
	logOutput := io.Writer(os.Stderr)
	if opts.LogOutput != "" {
		// #nosec G302 -- The log file is meant to be readable.
		file, fileErr := os.OpenFile(opts.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if fileErr != nil {
			return fmt.Errorf("creating log file: %w", fileErr)
		}

		defer func() { err = errors.WithDeferred(err, file.Close()) }()

		logOutput = file
	}

	logger := newLogger(logOutput, opts.Verbose)

	domains, err := newDomains(opts.Suffixes)
	if err != nil {
		return err
	}

	m, err := urlmatcher.NewCombinedMatcher(&urlmatcher.Config{
		Logger:    logger.With("component", "matcher"),
		Domains:   domains,
		CacheSize: opts.CacheSize,
	})
	if err != nil {
		return fmt.Errorf("creating matcher: %w", err)
	}

	if opts.ListenAddr != "" {
		return runProxy(logger, opts, m)
	}

	storage := filterlist.New(&filterlist.Config{
		Logger: logger.With("component", "filterlist"),
		Engine: m,
	})

	err = loadLists(logger, storage, opts.FilterLists)
	if err != nil {
		return err
	}

	c := &checker{
		matcher: m,
		domains: domains,
		out:     os.Stdout,
		opts:    opts,
	}

	if len(opts.URLs) > 0 {
		for _, u := range opts.URLs {
			err = c.check(query{url: u, docDomain: opts.Document, typeName: opts.Type})
			if err != nil {
				return err
			}
		}

		return nil
	}

	return c.checkAll(os.Stdin)
}

// newLogger returns a text logger writing to w.
func newLogger(w io.Writer, verbose bool) (l *slog.Logger) {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: verbose,
		Level:     lvl,
	}))
}

// newDomains returns the domain helper using the public suffix dataset at
// path or the built-in list if path is empty.
func newDomains(path string) (d *filterutil.Domains, err error) {
	if path == "" {
		return filterutil.NewDomains(suffixlist.System{}), nil
	}

	t, err := suffixlist.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading public suffixes: %w", err)
	}

	return filterutil.NewDomains(t), nil
}

// loadLists loads the filter lists at paths into storage.  Invalid rules are
// logged and skipped.
func loadLists(logger *slog.Logger, storage *filterlist.Storage, paths []string) (err error) {
	for i, path := range paths {
		text, readErr := readList(path)
		if readErr != nil {
			return readErr
		}

		added, _, setErr := storage.SetList(i, text)
		if setErr != nil {
			logger.Warn("invalid rules in list", "path", path, slogutil.KeyError, setErr)
		}

		logger.Info("list loaded", "path", path, "rules", added)
	}

	return nil
}

// readList reads the filter list file at path.
func readList(path string) (text string, err error) {
	// #nosec G304 -- The path is provided by the user.
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening list: %w", err)
	}

	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	text, err = filterlist.ReadList(f)
	if err != nil {
		return "", fmt.Errorf("list %q: %w", path, err)
	}

	return text, nil
}

// waitForSignal blocks until SIGINT or SIGTERM is received or ctx is done.
func waitForSignal(ctx context.Context, logger *slog.Logger) {
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChannel)

	select {
	case sig := <-signalChannel:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
	}
}
