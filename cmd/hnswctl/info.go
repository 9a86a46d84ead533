package main

import (
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <index>",
		Short: "Describe a saved index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.loadIndex(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer idx.Close()
			return idx.PrintInfo(cmd.OutOrStdout(), args[0])
		},
	}
}
