// Package main is the Kaimono CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kaimono/internal/cli"
	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/dataset"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/query"
	"github.com/hyperjump/kaimono/internal/server"
	"github.com/hyperjump/kaimono/internal/watcher"
	"github.com/hyperjump/kaimono/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = config.DefaultPath

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefault is loadConfig for commands that can run without a config file:
// when the file is missing and allowMissing is set, defaults are returned.
func loadConfigOrDefault(path string, allowMissing bool) (*config.Config, string, error) {
	cfg, resolved, err := loadConfig(path)
	if err == nil {
		return cfg, resolved, nil
	}
	if allowMissing && errors.Is(err, os.ErrNotExist) {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, "", nil
	}
	return nil, "", err
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	var err error
	switch command {
	case "query":
		err = runQuery(os.Args[2:], os.Stdout)
	case "shell":
		err = runShell(os.Args[2:])
	case "server":
		runServer()
	case "status":
		err = runStatus(os.Args[2:], os.Stdout)
	case "init":
		err = runInit(os.Args[2:], os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("kaimono version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDataset loads the dataset named by cfg, with dataPath taking precedence
// over cfg.Dataset.Path.
func openDataset(cfg *config.Config, dataPath string, logger *zap.Logger) (*dataset.Dataset, error) {
	path := cfg.Dataset.Path
	format := cfg.Dataset.Format
	if dataPath != "" {
		path = dataPath
		// An explicit file is identified by its own extension.
		format = ""
	}
	if path == "" {
		return nil, errors.New("no dataset: set dataset.path in the config or pass --data")
	}
	start := time.Now()
	ds, err := dataset.Load(path,
		dataset.WithFormat(dataset.Format(strings.ToLower(format))),
		dataset.WithSheet(cfg.Dataset.Sheet),
		dataset.WithTable(cfg.Dataset.Table),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		zap.String("path", path),
		zap.String("format", string(ds.Format())),
		zap.Int("records", ds.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ds, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataPath := fs.String("data", "", "dataset file (overrides dataset.path)")
	debug := fs.Bool("debug", false, "enable debug logging (every query is logged)")
	watch := fs.Bool("watch", false, "reload the dataset when its file changes")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfigOrDefault(*configPath, *dataPath != "")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ds, err := openDataset(cfg, *dataPath, logger)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}
	engine := query.NewEngine(ds, query.WithLogger(logger))

	srv := server.NewServer(engine, &cfg.Server, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Dataset.Watch || *watch {
		w := watcher.NewWatcher(ds.Source(), func(string) {
			reloadDataset(srv, cfg, *dataPath, logger)
		}, watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		logger.Info("watching dataset", zap.String("path", w.Path()))
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// reloadDataset loads the dataset again and swaps it into srv. A dataset that
// fails to load is logged and the previous one keeps serving.
func reloadDataset(srv *server.Server, cfg *config.Config, dataPath string, logger *zap.Logger) {
	ds, err := openDataset(cfg, dataPath, logger)
	if err != nil {
		logger.Warn("dataset reload failed; keeping previous dataset", zap.Error(err))
		return
	}
	srv.SetEngine(query.NewEngine(ds, query.WithLogger(logger)))
}

// criteriaFlags holds the raw criteria flags of the query command.
type criteriaFlags struct {
	item, color, category, gender, size, season string
	minPrice, maxPrice, minAge, maxAge, rating  string
}

func (c *criteriaFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.item, "item", "", "item name (substring for most operations, exact for item-size)")
	fs.StringVar(&c.color, "color", "", "color")
	fs.StringVar(&c.category, "category", "", "category")
	fs.StringVar(&c.gender, "gender", "", "gender")
	fs.StringVar(&c.size, "size", "", "size")
	fs.StringVar(&c.season, "season", "", "season (substring)")
	fs.StringVar(&c.minPrice, "min-price", "", "minimum purchase amount")
	fs.StringVar(&c.maxPrice, "max-price", "", "maximum purchase amount")
	fs.StringVar(&c.minAge, "min-age", "", "minimum customer age")
	fs.StringVar(&c.maxAge, "max-age", "", "maximum customer age")
	fs.StringVar(&c.rating, "rating", "", "review rating band: high or low")
}

func (c *criteriaFlags) raw() models.RawCriteria {
	return models.RawCriteria{
		Item:     models.Input(c.item),
		Color:    models.Input(c.color),
		Category: models.Input(c.category),
		Gender:   models.Input(c.gender),
		Size:     models.Input(c.size),
		Season:   models.Input(c.season),
		MinPrice: models.Input(c.minPrice),
		MaxPrice: models.Input(c.maxPrice),
		MinAge:   models.Input(c.minAge),
		MaxAge:   models.Input(c.maxAge),
		Rating:   models.Input(c.rating),
	}
}

// parseArgs parses flags that may appear before, between or after positional
// arguments and returns the positionals. Go's flag package stops at the first
// non-flag argument, so "kaimono query season --season fall" would otherwise
// leave --season unparsed.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printQueryUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kaimono query <operation> [flags]\n\nOperations:\n")
	for _, d := range query.Operations() {
		fmt.Fprintf(fs.Output(), "  %-16s %s (%s)\n", d.Operation, d.Description, strings.Join(d.Inputs, ", "))
	}
	fmt.Fprintln(fs.Output())
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kaimono query color-category --color red --category outerwear
  kaimono query item-price --item jeans --min-price 20 --max-price 100
  kaimono query item-rating --item shirt --rating high --output json
  kaimono query criteria --gender female --season winter --max-price 50
`)
}

func runQuery(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataPath := fs.String("data", "", "dataset file (overrides dataset.path)")
	serverURL := fs.String("server", "", "send the query to a running server instead of loading the dataset")
	outputFormat := fs.String("output", "", "output format: text, compact or json (default from config)")
	index := fs.Bool("index", false, "show each record's dataset row index")
	debug := fs.Bool("debug", false, "enable debug logging")
	var criteria criteriaFlags
	criteria.register(fs)
	fs.Usage = func() { printQueryUsage(fs) }

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		printQueryUsage(fs)
		return errors.New("expected exactly one operation")
	}
	op, err := models.ParseOperation(positional[0])
	if err != nil {
		return err
	}

	cfg, _, err := loadConfigOrDefault(*configPath, *dataPath != "" || *serverURL != "")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *outputFormat == "" {
		*outputFormat = cfg.Output.Format
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	opts := cli.Options{Index: cfg.Output.Index}
	if flagSet(fs, "index") {
		opts.Index = *index
	}

	var result *models.Result
	if *serverURL != "" {
		result, err = queryViaHTTP(*serverURL, op, criteria.raw())
	} else {
		result, err = queryLocal(cfg, *dataPath, cfg.Debug || *debug, op, criteria.raw())
	}
	if err != nil {
		return err
	}
	return cli.WriteResult(out, result, format, opts)
}

func queryLocal(cfg *config.Config, dataPath string, debug bool, op models.Operation, raw models.RawCriteria) (*models.Result, error) {
	logger, err := utils.NewCLILogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ds, err := openDataset(cfg, dataPath, logger)
	if err != nil {
		return nil, err
	}
	engine := query.NewEngine(ds, query.WithLogger(logger))
	return engine.Run(context.Background(), op, raw)
}

// apiError is the error body returned by the server.
type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func queryViaHTTP(serverURL string, op models.Operation, raw models.RawCriteria) (*models.Result, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(serverURL, "/") + "/api/v1/query/" + url.PathEscape(string(op))
	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(b, &ae) == nil && ae.Error != "" {
			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
				return nil, models.NewValidationError(ae.Field, ae.Error)
			}
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, ae.Error)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runShell(args []string) error {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataPath := fs.String("data", "", "dataset file (overrides dataset.path)")
	outputFormat := fs.String("output", "", "output format: text, compact or json (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadConfigOrDefault(*configPath, *dataPath != "")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *outputFormat == "" {
		*outputFormat = cfg.Output.Format
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	logger, err := utils.NewCLILogger(cfg.Debug || *debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	ds, err := openDataset(cfg, *dataPath, logger)
	if err != nil {
		return err
	}
	engine := query.NewEngine(ds, query.WithLogger(logger))
	return cli.NewShell(engine, os.Stdout, format, cli.Options{Index: cfg.Output.Index}).Run(context.Background())
}

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for local mode)")
	dataPath := fs.String("data", "", "dataset file (local mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the dataset locally)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil || format == cli.OutputCompact {
		return fmt.Errorf("unknown output format %q; use text or json", *outputFormat)
	}

	var info *models.DatasetInfo
	if *serverURL != "" {
		info, err = statusViaHTTP(*serverURL)
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
	} else {
		cfg, _, err := loadConfigOrDefault(*configPath, *dataPath != "")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err := utils.NewCLILogger(cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()
		ds, err := openDataset(cfg, *dataPath, logger)
		if err != nil {
			return err
		}
		info = ds.Info()
	}
	return cli.WriteDatasetInfo(out, info, format)
}

func statusViaHTTP(serverURL string) (*models.DatasetInfo, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/dataset")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var info models.DatasetInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &info, nil
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite an existing config file")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	path := defaultConfigPath
	if len(positional) > 0 {
		path = positional[0]
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func printUsage() {
	fmt.Println(`kaimono - Filter retail purchase records

Usage:
  kaimono query <operation> [flags]   Run one filter operation
  kaimono shell [flags]               Interactive prompt (one operation per line)
  kaimono server [flags]              Start the HTTP server
  kaimono status [flags]              Show dataset summary and facets
  kaimono init [--force] [path]       Write a default config file
  kaimono version                     Show version
  kaimono help                        Show this help

Operations:
  color-category    --color --category
  item-price        --item --min-price --max-price
  gender-category   --gender --category
  item-size         --item --size
  item-rating       --item --rating high|low
  item-age          --item --min-age --max-age
  category          --category
  season            --season
  color-name        --color --item
  criteria          any of the flags above

Query Flags:
  --config string    Config file path (default: /usr/local/etc/kaimono/config.yaml)
  --data string      Dataset file: .csv, .xlsx or .db (overrides dataset.path)
  --server string    Send the query to a running server (e.g. http://localhost:8080)
  --output string    Output format: text, compact or json (default from config)
  --index            Show each record's dataset row index
  --debug            Enable debug logging

Shell Flags:
  --config string    Config file path
  --data string      Dataset file (overrides dataset.path)
  --output string    Output format: text, compact or json (default from config)

Server Flags:
  --config string    Config file path
  --data string      Dataset file (overrides dataset.path)
  --watch            Reload the dataset when its file changes
  --debug            Enable debug logging

Status Flags:
  --config string    Config file path (for local mode)
  --data string      Dataset file (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to load locally.
  --output string    Output format: text or json (default: text)

Examples:
  kaimono init ./config.yaml
  kaimono query item-price --item jeans --min-price 20 --max-price 100
  kaimono query season --season winter --data shopping_trends.xlsx --output compact
  kaimono shell --data shopping_trends.csv
  kaimono server --data shopping_trends.csv --watch
  kaimono query category --category footwear --server http://localhost:8080
  kaimono status --output json`)
}
