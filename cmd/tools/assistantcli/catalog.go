package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the detailing services the assistant can recommend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.store()
			if err != nil {
				return err
			}
			tag := opts.language()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d services", len(store.Services()))))

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFROM\tDURATION\tPATH")
			for _, s := range store.Services() {
				fmt.Fprintf(w, "%s\t%s\t%.0f\t%dm\t%s\n", s.ID, s.Name(tag), s.PriceFrom, s.DurationMinutes, s.Path)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("%d symptoms mapped", len(store.Snapshot().Symptoms))))
			return nil
		},
	}
}
