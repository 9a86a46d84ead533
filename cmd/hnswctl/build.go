package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	hnsw "github.com/sameraamar/HNSW"
	"github.com/sameraamar/HNSW/internal/dataset"
)

func newBuildCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "build <dataset> <index>",
		Short: "Build an index from a dataset",
		Long: `Build an index from a .fvecs or CSV dataset and save it.

Vectors are inserted in batches of index.batch_size rows; row i gets id i.

Example:
  hnswctl build --space l2 --m 32 sift_base.fvecs sift.hnsw`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := dataset.ReadFile(args[0], limit)
			if err != nil {
				return err
			}
			if set.Rows() == 0 {
				return fmt.Errorf("dataset %s is empty", args[0])
			}

			idx, err := a.newIndex(cmd.Context(), a.cfg.Index.Space, set.Dim)
			if err != nil {
				return err
			}
			defer idx.Close()

			start := time.Now()
			if err := a.build(cmd, idx, set); err != nil {
				return err
			}
			buildTime := time.Since(start)

			if err := idx.Save(cmd.Context(), args[1]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "built %s vectors of dimension %d in %s, saved to %s\n",
				humanize.Comma(int64(set.Rows())), set.Dim, buildTime.Round(time.Millisecond), args[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "read at most this many vectors (0 = all)")
	return cmd
}

// build initializes idx for the set and inserts it batch by batch.
func (a *app) build(cmd *cobra.Command, idx *hnsw.Index, set *dataset.Set) error {
	cfg := a.cfg.Index
	rows := set.Rows()

	if err := idx.Init(max(cfg.MaxElements, rows), cfg.M, cfg.EfConstruction, cfg.Seed); err != nil {
		return err
	}

	p := newProgress(cmd.ErrOrStderr(), "inserted", rows)
	for lo := 0; lo < rows; lo += cfg.BatchSize {
		hi := min(lo+cfg.BatchSize, rows)
		if err := idx.AddItems(set.Slice(lo, hi).Data, nil, hi-lo, cfg.Threads); err != nil {
			return fmt.Errorf("batch at row %d: %w", lo, err)
		}
		p.Update(hi)
	}
	return nil
}
