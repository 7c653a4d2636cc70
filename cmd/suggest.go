package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <query>",
	Short: "List address suggestions for a partial query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		env := initNearby(cfg)

		query := strings.Join(args, " ")
		items, fresh := env.Suggester.Suggest(cmd.Context(), query)
		if !fresh {
			return eris.New("suggest: interrupted")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tLABEL\tLAT\tLON")
		for i, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%.6f\t%.6f\n", i+1, it.Label, it.Coordinate.Latitude, it.Coordinate.Longitude)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "suggest: write")
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No suggestions.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
