package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sameraamar/HNSW/internal/dataset"
)

func newQueryCmd(a *app) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "query <index> <queries>",
		Short: "Print the nearest neighbors of query vectors",
		Long: `Load an index and print the k nearest neighbors of every vector in a
.fvecs or CSV file, nearest first.

Example:
  hnswctl query -k 10 --ef 100 sift.hnsw sift_query.fvecs`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.loadIndex(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			queries, err := dataset.ReadFile(args[1], 0)
			if err != nil {
				return err
			}
			if queries.Dim != idx.Dimension() && queries.Rows() > 0 {
				return fmt.Errorf("queries have dimension %d, index has %d", queries.Dim, idx.Dimension())
			}

			results, err := idx.Search(queries.Data, queries.Rows(), k, a.cfg.Index.Threads)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "QUERY\tRANK\tID\tDISTANCE")
			for _, r := range results {
				for rank, n := range r.Neighbors {
					fmt.Fprintf(tw, "%d\t%d\t%d\t%g\n", r.ID, rank+1, n.ID, n.Distance)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 10, "neighbors per query")
	return cmd
}
