package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/nearby/internal/model"
)

var (
	resolveStreet string
	resolveCity   string
	resolveState  string
	resolveZip    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [address]",
	Short: "Geocode one address",
	Long: "Resolves a free-text address through the candidate cascade, or the --street/--city/--state/--zip " +
		"fields through the origin cascade, and prints the coordinate.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		env := initNearby(cfg)
		ctx := cmd.Context()

		var coord *model.Coordinate
		var what string
		if len(args) == 1 {
			what = strings.TrimSpace(args[0])
			if what == "" {
				return eris.New("resolve: address is empty")
			}
			coord = env.Resolver.ResolveCandidate(ctx, model.Candidate{Label: what})
		} else {
			q := model.AddressQuery{Street: resolveStreet, City: resolveCity, State: resolveState, PostalCode: resolveZip}
			if q.IsEmpty() {
				return eris.New("resolve: pass an address or at least one of --street, --city, --state, --zip")
			}
			what = q.Freeform()
			coord = env.Resolver.ResolveOrigin(ctx, q)
		}

		if coord == nil {
			return eris.Errorf("resolve: no match for %q", what)
		}
		fmt.Fprintln(cmd.OutOrStdout(), coord.String())
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveStreet, "street", "", "street line")
	resolveCmd.Flags().StringVar(&resolveCity, "city", "", "city")
	resolveCmd.Flags().StringVar(&resolveState, "state", "", "state name or abbreviation")
	resolveCmd.Flags().StringVar(&resolveZip, "zip", "", "postal code")
	rootCmd.AddCommand(resolveCmd)
}
