package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <utterance>",
		Short: "Resolve one utterance and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("utterance is empty")
			}

			res, _, err := opts.resolver(cmd.Context())
			if err != nil {
				return err
			}
			out := res.Resolve(cmd.Context(), text, opts.language())

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintln(w, assistantStyle.Render(out.Text))
			fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("category=%s reply=%s language=%s stage=%s confidence=%.2f",
				out.Category, out.Reply, out.Language, out.Stage, out.Confidence)))
			if out.Keyword != "" {
				fmt.Fprintln(w, metaStyle.Render("keyword="+out.Keyword))
			}
			if out.Effect.Kind != "" {
				fmt.Fprintln(w, effectStyle.Render(describeEffect(string(out.Effect.Kind), out.Effect.Path, string(out.Effect.View))))
			}
			for _, r := range out.Recommendations {
				fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("#%d %s (score %d)", r.Rank, r.ServiceID, r.Score)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full resolution as JSON")
	return cmd
}

func describeEffect(kind, path, view string) string {
	switch {
	case path != "":
		return fmt.Sprintf("-> %s %s", kind, path)
	case view != "":
		return fmt.Sprintf("-> %s %s", kind, view)
	default:
		return "-> " + kind
	}
}
