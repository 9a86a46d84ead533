package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	hnsw "github.com/sameraamar/HNSW"
	"github.com/sameraamar/HNSW/blobstore"
	"github.com/sameraamar/HNSW/distance"
	"github.com/sameraamar/HNSW/internal/dataset"
	"github.com/sameraamar/HNSW/internal/exact"
	"github.com/sameraamar/HNSW/testutil"
)

type benchOptions struct {
	rows         int
	dim          int
	queries      int
	k            int
	clusters     int
	targetRecall float64
	maxEf        int
	rebuild      bool
}

func newBenchCmd(a *app) *cobra.Command {
	o := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure build time, query speed and recall on random data",
		Long: `Generate a random dataset, build an index over it (or reuse the one saved
by an earlier run with the same parameters) and compare search results with
exact search.

With --target-recall, ef is doubled until the recall reaches the target.

Example:
  hnswctl bench --rows 100000 --dim 128 --space cosine --target-recall 0.95`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.bench(cmd, o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.rows, "rows", 10_000, "dataset size")
	f.IntVar(&o.dim, "dim", 64, "vector dimension")
	f.IntVar(&o.queries, "queries", 100, "number of query vectors")
	f.IntVarP(&o.k, "k", "k", 10, "neighbors per query")
	f.IntVar(&o.clusters, "clusters", 0, "draw vectors around this many centers (0 = uniform)")
	f.Float64Var(&o.targetRecall, "target-recall", 0, "raise ef until this recall is reached")
	f.IntVar(&o.maxEf, "max-ef", 4096, "upper bound for the ef sweep")
	f.BoolVar(&o.rebuild, "rebuild", false, "ignore a saved index from an earlier run")
	return cmd
}

func (a *app) bench(cmd *cobra.Command, o benchOptions) error {
	ctx := cmd.Context()
	cfg := a.cfg.Index
	out := cmd.OutOrStdout()

	space, err := distance.ParseSpace(cfg.Space)
	if err != nil {
		return err
	}

	rng := testutil.NewRNG(cfg.Seed)
	var vectors [][]float32
	if o.clusters > 0 {
		vectors = rng.ClusteredVectors(o.rows+o.queries, o.dim, o.clusters, 0.05)
	} else {
		vectors = rng.UniformRangeVectors(o.rows+o.queries, o.dim)
	}
	data := &dataset.Set{Dim: o.dim, Data: testutil.Flatten(vectors[:o.rows])}
	queries := testutil.Flatten(vectors[o.rows:])

	store, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("bench-%s-dim%d-m%d-ef%d-%d.hnsw", space, o.dim, cfg.M, cfg.EfConstruction, o.rows)

	idx, err := a.newIndexIn(store, cfg.Space, o.dim)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := a.buildOrLoad(cmd, store, idx, name, data, o.rebuild); err != nil {
		return err
	}

	start := time.Now()
	truthIndex, err := exact.New(space, o.dim, data.Data, nil, cfg.Threads)
	if err != nil {
		return err
	}
	truth, err := truthIndex.Search(queries, o.k, cfg.Threads)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exact search: %s\n", time.Since(start).Round(time.Millisecond))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EF\tRECALL\tQPS\tTIME")

	ef := max(cfg.Ef, o.k)
	for {
		idx.SetEf(ef)
		start := time.Now()
		flat, err := idx.SearchFlat(queries, o.queries, o.k, cfg.Threads)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		approx := make([][]uint64, o.queries)
		for row := range approx {
			approx[row], _ = flat.Row(row)
		}
		recall := exact.Recall(truth, approx)
		qps := float64(o.queries) / elapsed.Seconds()
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", ef, recall, humanize.Commaf(float64(int64(qps))), elapsed.Round(time.Microsecond))

		if o.targetRecall <= 0 || recall >= o.targetRecall || ef >= o.maxEf {
			break
		}
		ef = min(ef*2, o.maxEf)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	printStats(out, a.metrics.GetStats())
	return nil
}

// buildOrLoad loads name when it holds an index over the same data size,
// and otherwise builds the index and saves it under name.
func (a *app) buildOrLoad(cmd *cobra.Command, store blobstore.Store, idx *hnsw.Index, name string, data *dataset.Set, rebuild bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !rebuild {
		params, err := hnsw.Inspect(ctx, store, name)
		switch {
		case err == nil && params.Count == data.Rows():
			start := time.Now()
			if err := idx.Load(ctx, name, data.Rows()); err != nil {
				return err
			}
			fmt.Fprintf(out, "loaded %s in %s\n", name, time.Since(start).Round(time.Millisecond))
			return nil
		case err != nil && !errors.Is(err, blobstore.ErrNotFound):
			return err
		}
	}

	start := time.Now()
	if err := a.build(cmd, idx, data); err != nil {
		return err
	}
	fmt.Fprintf(out, "built %s vectors in %s\n", humanize.Comma(int64(data.Rows())), time.Since(start).Round(time.Millisecond))
	return idx.Save(ctx, name)
}
