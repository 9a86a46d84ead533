package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	hnsw "github.com/sameraamar/HNSW"
	"github.com/sameraamar/HNSW/blobstore"
	"github.com/sameraamar/HNSW/resource"
)

// app carries the configuration shared by all subcommands.
type app struct {
	configPath string
	cfg        *Config
	debug      bool
	metrics    *hnsw.BasicMetricsCollector
	resources  *resource.Controller

	// flag overrides, applied when set
	space       string
	m           int
	efC         int
	ef          int
	threads     int
	compression string
	storeRoot   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "hnswctl",
		Short:         "Build, query and benchmark HNSW indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	pf.BoolVar(&a.debug, "debug", false, "log batch sizes, element counts and loaded graph parameters")
	pf.StringVar(&a.space, "space", "", "similarity space: l2, ip or cosine")
	pf.IntVar(&a.m, "m", 0, "graph fan-out M")
	pf.IntVar(&a.efC, "ef-construction", 0, "construction-time candidate list size")
	pf.IntVar(&a.ef, "ef", 0, "search-time candidate list size")
	pf.IntVar(&a.threads, "threads", 0, "worker threads per batch (0 = all CPUs)")
	pf.StringVar(&a.compression, "compression", "", "save compression: none, lz4 or zstd")
	pf.StringVar(&a.storeRoot, "store-root", "", "root directory of the local store")

	root.AddCommand(
		newBuildCmd(a),
		newQueryCmd(a),
		newInfoCmd(a),
		newBenchCmd(a),
	)
	return root
}

func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("space") {
		cfg.Index.Space = a.space
	}
	if flags.Changed("m") {
		cfg.Index.M = a.m
	}
	if flags.Changed("ef-construction") {
		cfg.Index.EfConstruction = a.efC
	}
	if flags.Changed("ef") {
		cfg.Index.Ef = a.ef
	}
	if flags.Changed("threads") {
		cfg.Index.Threads = a.threads
	}
	if flags.Changed("compression") {
		cfg.Index.Compression = a.compression
	}
	if flags.Changed("store-root") {
		cfg.Store.Root = a.storeRoot
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}

	a.cfg = cfg
	a.metrics = &hnsw.BasicMetricsCollector{}
	a.resources = resource.NewController(resource.Config{
		MemoryLimitBytes:     cfg.Resources.MemoryLimitBytes,
		IOLimitBytesPerSec:   cfg.Resources.IOLimitBytesPerSec,
		MaxConcurrentBatches: cfg.Resources.MaxConcurrentBatches,
	})
	return nil
}

func (a *app) logger() (*hnsw.Logger, error) {
	level, err := parseLevel(a.cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if a.cfg.Log.Format == "json" {
		return hnsw.NewJSONLogger(level), nil
	}
	return hnsw.NewTextLogger(level), nil
}

// newIndex creates an uninitialized index of dimension dim.
func (a *app) newIndex(ctx context.Context, space string, dim int) (*hnsw.Index, error) {
	store, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	return a.newIndexIn(store, space, dim)
}

func (a *app) newIndexIn(store blobstore.Store, space string, dim int) (*hnsw.Index, error) {
	compression, err := hnsw.ParseCompression(a.cfg.Index.Compression)
	if err != nil {
		return nil, err
	}
	logger, err := a.logger()
	if err != nil {
		return nil, err
	}

	return hnsw.New(space, dim,
		hnsw.WithBlobStore(store),
		hnsw.WithCompression(compression),
		hnsw.WithLogger(logger),
		hnsw.WithMetricsCollector(a.metrics),
		hnsw.WithResourceController(a.resources),
		hnsw.WithNumThreads(a.cfg.Index.Threads),
		hnsw.WithDefaultEF(a.cfg.Index.Ef),
	)
}

// loadIndex loads a saved index, taking its space and dimension from the
// file.
func (a *app) loadIndex(ctx context.Context, name string) (*hnsw.Index, error) {
	store, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	params, err := hnsw.Inspect(ctx, store, name)
	if err != nil {
		return nil, err
	}

	idx, err := a.newIndexIn(store, params.Space.String(), params.Dimension)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(ctx, name, a.cfg.Index.MaxElements); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

func printStats(w io.Writer, stats hnsw.BasicMetricsStats) {
	fmt.Fprintf(w, "inserts: %d batches, %d rows, %d errors\n",
		stats.BatchInsertCount, stats.BatchInsertRows, stats.BatchInsertErrors)
	fmt.Fprintf(w, "searches: %d batches, %d rows, %d errors\n",
		stats.SearchCount, stats.SearchRows, stats.SearchErrors)
}
