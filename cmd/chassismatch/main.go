// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/chassismatch"
	"github.com/poiesic/chassismatch/ai"
	"github.com/poiesic/chassismatch/ai/openai"
	"github.com/poiesic/chassismatch/batch"
	"github.com/poiesic/chassismatch/catalog"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index/badger"
	"github.com/poiesic/chassismatch/index/cache"
	"github.com/poiesic/chassismatch/match"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "chassismatch",
		Usage: "Find chassis configurations similar to a target chassis",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load CHASSISMATCH_* settings from this file (default .env when present)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Query a local badger snapshot at this path instead of Elasticsearch",
			},
			&cli.StringSliceFlag{
				Name:  "es-address",
				Usage: "Elasticsearch node URL (repeatable)",
			},
			&cli.StringFlag{
				Name:  "es-index",
				Usage: "Elasticsearch index holding the chassis documents",
			},
			&cli.StringFlag{
				Name:  "redis-addr",
				Usage: "Cache index lookups in Redis at host:port",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "OpenAI-compatible embedding service URL, enables nearest mode",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name; must match the model used to index",
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnv(c.String("env-file")); err != nil {
				return err
			}
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "keys",
				Usage:  "Print the attribute catalog",
				Action: keysCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "filter",
						Usage: "Catalog part to print (default, broad, extended)",
						Value: "default",
					},
					&cli.BoolFlag{
						Name:  "names",
						Usage: "Print one attribute name per line instead of JSON",
					},
				},
			},
			{
				Name:      "match",
				Usage:     "Find records similar to one target",
				ArgsUsage: "<target-id>",
				Action:    matchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of candidates to return",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Matching strategy (relaxation, nearest)",
						Value: "relaxation",
					},
					&cli.StringSliceFlag{
						Name:  "key",
						Usage: "Compare this attribute, relaxed in the given order (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "mandatory",
						Usage: "Compare this attribute and never relax it (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "extended",
						Usage: "Compare the extended catalog",
					},
				},
			},
			{
				Name:   "batch",
				Usage:  "Match every target listed in a file, one JSON line per target",
				Action: batchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ids",
						Usage:    "File with one target ID per line, - for stdin",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of candidates per target",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Matching strategy (relaxation, nearest)",
						Value: "relaxation",
					},
					&cli.BoolFlag{
						Name:  "extended",
						Usage: "Compare the extended catalog",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of targets matched concurrently",
						Value: batch.DefaultConfig().PoolSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N targets",
						Value: 100,
					},
					&cli.StringFlag{
						Name:  "metrics-file",
						Usage: "Write Prometheus metrics in textfile format when done",
					},
				},
			},
			{
				Name:   "load",
				Usage:  "Import chassis records from a JSON lines file into a badger snapshot",
				Action: loadCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSON lines file with one flat chassis document per line, - for stdin",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records written per batch",
						Value: 500,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Replace every stored vector in a badger snapshot with a fresh embedding",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of descriptions embedded per request",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding requests",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func keysCommand(c *cli.Context) error {
	filter, err := catalog.ParseFilter(c.String("filter"))
	if err != nil {
		return err
	}
	keys := catalog.Keys(filter)

	if c.Bool("names") {
		for _, name := range catalog.Names(keys) {
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	}
	return writeJSON(c.App.Writer, keys)
}

func matchCommand(c *cli.Context) error {
	targetID := c.Args().First()
	if targetID == "" {
		return errors.New("target ID is required")
	}
	mode, err := match.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}
	sel, err := selectionForMode(c, mode)
	if err != nil {
		return err
	}

	svc, err := openService(c, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	candidates, err := svc.Find(c.Context, match.Request{
		TargetID:  targetID,
		Count:     c.Int("count"),
		Selection: sel,
		Mode:      mode,
	})
	if err != nil {
		return fmt.Errorf("matching %s: %w", targetID, err)
	}
	return writeJSON(c.App.Writer, candidates)
}

func batchCommand(c *cli.Context) error {
	mode, err := match.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}
	sel, err := selectionForMode(c, mode)
	if err != nil {
		return err
	}

	ids, err := readIDs(c.String("ids"))
	if err != nil {
		return err
	}

	metricsFile := c.String("metrics-file")
	svc, err := openService(c, metricsFile != "")
	if err != nil {
		return err
	}
	defer svc.Close()

	runner, err := svc.NewBatchRunner(&batch.Config{
		PoolSize:       c.Int("pool-size"),
		Count:          c.Int("count"),
		Mode:           mode,
		ReportInterval: c.Int("report-interval"),
	}, c.App.ErrWriter)
	if err != nil {
		return err
	}

	results, runErr := runner.Run(c.Context, ids, sel)

	enc := json.NewEncoder(c.App.Writer)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	if metricsFile != "" {
		if err := svc.Metrics().WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	s := batch.Summarize(results)
	fmt.Fprintf(c.App.ErrWriter, "Targets: %d, matched: %d, empty: %d, failed: %d\n",
		s.Total, s.Matched, s.Empty, s.Failed)
	return runErr
}

func loadCommand(c *cli.Context) error {
	dbPath := c.String("db")
	if dbPath == "" {
		return errors.New("--db is required for load")
	}
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return errors.New("batch-size must be greater than 0")
	}

	in, closeIn, err := openInput(c.String("file"))
	if err != nil {
		return err
	}
	defer closeIn()

	gateway, err := openSnapshot(c, dbPath)
	if err != nil {
		return err
	}
	defer gateway.Close()

	// Stream records in batches
	dec := json.NewDecoder(in)
	pending := make([]*core.Record, 0, batchSize)
	loaded := 0
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := gateway.PutRecords(c.Context, pending...); err != nil {
			return err
		}
		loaded += len(pending)
		pending = pending[:0]
		return nil
	}
	for line := 1; ; line++ {
		rec := &core.Record{}
		if err := dec.Decode(rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("record %d: %w", line, err)
		}
		pending = append(pending, rec)
		if len(pending) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	total, err := gateway.Count(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Loaded %d records into %s (%d total)\n", loaded, dbPath, total)
	return nil
}

func reembedCommand(c *cli.Context) error {
	dbPath := c.String("db")
	if dbPath == "" {
		return errors.New("--db is required for reembed")
	}
	cfg := badger.ReembedConfig{
		BatchSize:  c.Int("batch-size"),
		MaxRetries: c.Int("max-retries"),
		RetryDelay: c.Duration("retry-delay"),
	}
	if cfg.MaxRetries <= 0 {
		return errors.New("max-retries must be greater than 0")
	}

	gateway, err := openSnapshot(c, dbPath)
	if err != nil {
		return err
	}
	defer gateway.Close()

	var tracker *batch.ProgressTracker
	n, err := gateway.Reembed(c.Context, cfg, func(done, total int) {
		if tracker == nil {
			tracker = batch.NewProgressTracker(c.App.ErrWriter, total, c.Int("report-interval"))
			tracker.SetUnit("records")
			tracker.Start()
		}
		tracker.Increment(done - tracker.Current())
	})
	if tracker != nil {
		tracker.Finish()
	}
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Reembedded %d records in %s\n", n, dbPath)
	return nil
}

// openSnapshot opens the badger snapshot at path for writing, with an
// embedder when one is configured.
func openSnapshot(c *cli.Context, path string) (*badger.Gateway, error) {
	envConfig, err := chassismatch.ConfigFromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(path, badger.WithBackendLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	opts := []badger.Option{badger.WithLogger(slog.Default())}
	if aiConfig := embeddingConfig(c, envConfig.Embedding); aiConfig != nil {
		embedder, err := openai.NewEmbedder(aiConfig)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		opts = append(opts, badger.WithEmbedder(embedder))
	}
	gateway, err := badger.NewGateway(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return gateway, nil
}

// selectionForMode returns the selection for relaxation matching. Nearest
// mode always scores against the default catalog, so selection flags are a
// usage error there and the zero Selection is returned.
func selectionForMode(c *cli.Context, mode match.Mode) (match.Selection, error) {
	if mode != match.ModeNearestNeighbor {
		return selectionFromFlags(c)
	}
	if c.Bool("extended") || len(c.StringSlice("key")) > 0 || len(c.StringSlice("mandatory")) > 0 {
		return match.Selection{}, errors.New("--key, --mandatory and --extended require --mode relaxation")
	}
	return match.Selection{}, nil
}

// selectionFromFlags builds the comparison set from --extended, --key and
// --mandatory. No flags means the default catalog.
func selectionFromFlags(c *cli.Context) (match.Selection, error) {
	keys := c.StringSlice("key")
	mandatory := c.StringSlice("mandatory")

	if c.Bool("extended") {
		if len(keys) > 0 || len(mandatory) > 0 {
			return match.Selection{}, errors.New("--extended cannot be combined with --key or --mandatory")
		}
		return match.ExtendedSelection(), nil
	}

	var descs []core.AttributeDescriptor
	for _, name := range mandatory {
		d := describe(name)
		d.Mandatory = true
		descs = append(descs, d)
	}
	for _, name := range keys {
		descs = append(descs, describe(name))
	}
	sel := match.CustomSelection(descs...)
	if err := sel.Validate(); err != nil {
		return match.Selection{}, err
	}
	return sel, nil
}

// describe returns the catalog descriptor for name. Attributes outside the
// catalog are treated as extended.
func describe(name string) core.AttributeDescriptor {
	if d, ok := catalog.Lookup(name); ok {
		return d
	}
	return core.AttributeDescriptor{Name: name, Tier: core.TierExtended}
}

// openService layers command-line flags over CHASSISMATCH_* settings.
func openService(c *cli.Context, withMetrics bool) (*chassismatch.Service, error) {
	cfg, err := chassismatch.ConfigFromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}

	if path := c.String("db"); path != "" {
		cfg.Backend = chassismatch.BackendBadger
		cfg.BadgerPath = path
	}
	if addrs := c.StringSlice("es-address"); len(addrs) > 0 {
		cfg.Backend = chassismatch.BackendElasticsearch
		cfg.Elastic.Addresses = addrs
	}
	if name := c.String("es-index"); name != "" {
		cfg.Elastic.Index = name
	}
	if addr := c.String("redis-addr"); addr != "" {
		if cfg.Redis == nil {
			cfg.Redis = &cache.RedisConfig{}
		}
		cfg.Redis.Addr = addr
	}
	cfg.Embedding = embeddingConfig(c, cfg.Embedding)
	if withMetrics {
		cfg.Metrics = true
	}
	cfg.Logger = slog.Default()

	svc, err := chassismatch.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

// embeddingConfig applies the embedding flags to base. It returns nil when
// neither flags nor base configure a service.
func embeddingConfig(c *cli.Context, base *ai.Config) *ai.Config {
	host := c.String("embedding-host")
	model := c.String("embedding-model")
	if host == "" && model == "" {
		return base
	}
	cfg := base
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	if host != "" {
		cfg.Host = host
	}
	if model != "" {
		cfg.Model = model
	}
	return cfg
}

func readIDs(path string) ([]string, error) {
	in, closeIn, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer closeIn()

	ids, err := batch.ReadTargetIDs(in)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no target IDs in %s", path)
	}
	return ids, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadEnv loads path, or .env from the working directory when path is empty
// and the file exists. Variables already set in the environment win.
func loadEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
