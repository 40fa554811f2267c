// Package main is the wraith CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/cli"
	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/server"
	"github.com/hyperjump/wraith/internal/watcher"
	"github.com/hyperjump/wraith/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/wraith/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default and a
// config.yaml exists in the working directory, that file wins.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	return utils.NewFileLogger(utils.FileLogOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, debug)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chat":
		runChat()
	case "retrieve":
		runRetrieve()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("wraith version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := newLogger(cfg, debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if len(cfg.Ingest.Directories) > 0 {
		w := watcher.New(components.Indexer, watcher.Options{
			Roots:      cfg.Ingest.Directories,
			Extensions: cfg.Ingest.Extensions,
			Recursive:  cfg.Ingest.RecursiveOrDefault(),
		}, logger.Named("watcher"))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		go func() {
			n := w.Sync(ctx, "")
			logger.Info("initial ingest finished", zap.Int("files", n))
		}()
	}

	srv := server.NewServer(server.Deps{
		Chat:      components.Orchestrator,
		Retriever: components.Retrieval.Runtime,
		Sessions:  components.Sessions,
		Ingester:  components.Indexer,
		Store:     components.Retrieval.Store,
		Domains:   components.Retrieval.Assembler.Authority().Domains(),
	}, &cfg.Server, logger.Named("http"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// joinArgs joins positional args so multi-word input works with or without quotes.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that follow the positional text to the front so
// flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseFormat(s string) cli.OutputFormat {
	switch s {
	case "json":
		return cli.OutputJSON
	case "text", "":
		return cli.OutputText
	default:
		fatalf("Unknown output format %q; use text or json", s)
		return cli.OutputText
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run the turn in-process)")
	sessionID := fs.String("session", "cli", "session id")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	text := joinArgs(fs.Args())
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: wraith chat [--session id] [--server url] <message>")
		os.Exit(1)
	}
	format := parseFormat(*output)

	var resp *models.TurnResponse
	if *serverURL != "" {
		r, err := chatViaHTTP(*serverURL, &models.TurnRequest{SessionID: *sessionID, Text: text})
		if err != nil {
			fatalf("Chat failed: %v", err)
		}
		resp = r
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		logger, _ := newLogger(cfg, cfg.Debug)
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger, true)
		if err != nil {
			fatalf("Failed to initialize components: %v", err)
		}
		defer components.Close()
		reply, turnErr := components.Orchestrator.GenerateTurn(ctx, *sessionID, text)
		resp = turnResponse(*sessionID, reply, turnErr)
	}
	if err := cli.WriteTurn(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the store directly)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: wraith retrieve [--server url] <query>")
		os.Exit(1)
	}
	format := parseFormat(*output)

	var resp *models.RetrieveResponse
	if *serverURL != "" {
		r, err := retrieveViaHTTP(*serverURL, &models.RetrieveRequest{Query: query})
		if err != nil {
			fatalf("Retrieve failed: %v", err)
		}
		resp = r
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		logger, _ := newLogger(cfg, cfg.Debug)
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger, false)
		if err != nil {
			fatalf("Failed to initialize components: %v", err)
		}
		defer components.Close()
		start := time.Now()
		res, err := components.Retrieval.Runtime.RetrieveThreads(ctx, query)
		if err != nil {
			fatalf("Retrieve failed: %v", err)
		}
		resp = &models.RetrieveResponse{Context: res.Context, Threads: res.Threads, QueryTime: time.Since(start).Milliseconds()}
	}
	if err := cli.WriteRetrieve(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: wraith ingest <file.jsonl|file.pdf|dir> [...]")
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := newLogger(cfg, cfg.Debug || *debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fatalf("Failed to initialize components: %v", err)
	}
	defer components.Close()

	failed := false
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		if info.IsDir() {
			n, err := components.Indexer.IngestDirectory(ctx, path, cfg.Ingest.Extensions, cfg.Ingest.RecursiveOrDefault())
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed = true
			}
			fmt.Printf("Ingested %d files from %s\n", n, path)
			continue
		}
		n, err := components.Indexer.IngestFile(ctx, path, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("Ingested %d threads from %s\n", n, path)
	}
	if failed {
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the store directly)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*output)

	if *serverURL != "" {
		st, err := statusViaHTTP(*serverURL)
		if err == nil {
			_ = cli.WriteStats(os.Stdout, st, format)
			return
		}
		fmt.Fprintf(os.Stderr, "Server unreachable (%v); reading the store directly\n", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, _ := newLogger(cfg, cfg.Debug)
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fatalf("Failed to initialize components: %v", err)
	}
	defer components.Close()
	st, err := components.Retrieval.Store.Stats(ctx)
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	_ = cli.WriteStats(os.Stdout, st, format)
}

func printUsage() {
	fmt.Print(`wraith - retrieval-augmented support assistant for Webex and Cisco collaboration

Usage:
  wraith <command> [flags] [args]

Commands:
  server     Run the HTTP API and the ingest watcher
  chat       Send one message in a session (--session id)
  retrieve   Print the assembled context for a query
  ingest     Ingest JSONL thread files, documents or directories
  status     Print chunk and thread counts
  version    Print the version
  help       Show this help

Examples:
  wraith server --config ./config.yaml
  wraith chat --session alice "how do I reset my webex password"
  wraith retrieve --output json cucm upgrade fails
  wraith ingest ./data/threads.jsonl ./docs
`)
}
