package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/export"
	"github.com/sells-group/nearby/internal/ingest"
	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/ranking"
	"github.com/sells-group/nearby/internal/session"
)

var (
	rankInput   string
	rankStreet  string
	rankCity    string
	rankState   string
	rankZip     string
	rankLat     float64
	rankLon     float64
	rankTop     int
	rankSort    string
	rankFilter  string
	rankGeoJSON string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a list of locations by distance from an origin",
	Long: "Loads candidates from a CSV, JSON, YAML or XLSX file or URL, resolves the origin and every " +
		"candidate through Nominatim, and prints the ranked table followed by the nearest ones. Interrupting keeps the partial ranking.",
	Example: `  nearby rank --input stores.csv --city Springfield --state IL
  nearby rank --input https://example.com/stores.xlsx --lat 39.78 --lon -89.65 --sort name-asc --geojson out.geojson`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		if rankInput == "" {
			return eris.New("rank: --input is required")
		}
		var mode ranking.SortMode
		if cmd.Flags().Changed("sort") {
			m, err := ranking.ParseSortMode(rankSort)
			if err != nil {
				return err
			}
			mode = m
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env := initNearby(cfg)
		if rankTop > 0 {
			env.TopK = rankTop
		}

		src, err := ingest.Open(ctx, rankInput, env.HTTP)
		if err != nil {
			return err
		}
		candidates, err := ingest.Load(ctx, src)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return eris.Errorf("rank: no candidates in %s", rankInput)
		}
		sess := env.newSession(candidates)

		origin, err := rankOrigin(ctx, cmd, sess)
		if err != nil {
			return err
		}

		bar := newProgressBar(cmd.ErrOrStderr())
		res, passErr := sess.RunPass(ctx, origin, func(processed, total int, current string) {
			if bar == nil {
				return
			}
			bar.ChangeMax(total)
			bar.Describe(current)
			_ = bar.Set(processed)
		})
		if bar != nil {
			_ = bar.Finish()
		}
		if passErr != nil && !res.Cancelled {
			return passErr
		}

		if mode != "" {
			sess.SetSort(mode)
		}
		sess.SetFilter(rankFilter)

		out := cmd.OutOrStdout()
		if err := export.WriteTable(out, sess.View(), res.Top); err != nil {
			return err
		}
		if len(res.Top) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No candidates could be located.")
		} else {
			fmt.Fprintf(out, "\nNearest %d:\n", len(res.Top))
			if err := export.WriteTop(out, res.Top); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Resolved %d of %d candidates in %s.\n",
			res.Resolved, res.Total, res.Elapsed.Round(time.Millisecond))

		if rankGeoJSON != "" {
			if err := writeGeoJSON(rankGeoJSON, out, sess, res.Top); err != nil {
				return err
			}
		}

		if res.Cancelled {
			zap.L().Warn("rank: interrupted, showing partial results",
				zap.Int("processed", res.Processed), zap.Int("total", res.Total))
			return passErr
		}
		return nil
	},
}

// rankOrigin uses --lat/--lon when both are given, otherwise resolves the
// address flags.
func rankOrigin(ctx context.Context, cmd *cobra.Command, sess *session.Session) (model.Coordinate, error) {
	latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
	if latSet != lonSet {
		return model.Coordinate{}, eris.New("rank: --lat and --lon must be given together")
	}
	if latSet {
		c := model.Coordinate{Latitude: rankLat, Longitude: rankLon}
		if err := sess.SetOrigin(c); err != nil {
			return model.Coordinate{}, eris.Wrap(err, "rank: origin")
		}
		return c, nil
	}

	q := model.AddressQuery{Street: rankStreet, City: rankCity, State: rankState, PostalCode: rankZip}
	coord, err := sess.ResolveOrigin(ctx, q)
	switch {
	case errors.Is(err, session.ErrEmptyOrigin):
		return model.Coordinate{}, eris.New("rank: give an origin with --street/--city/--state/--zip or --lat/--lon")
	case err != nil:
		return model.Coordinate{}, err
	}
	return *coord, nil
}

func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Resolving"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func writeGeoJSON(path string, stdout io.Writer, sess *session.Session, top []model.Candidate) error {
	if path == "-" {
		return export.WriteGeoJSON(stdout, sess.Origin(), sess.Candidates(), top)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "rank: create %s", path)
	}
	if err := export.WriteGeoJSON(f, sess.Origin(), sess.Candidates(), top); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "rank: close %s", path)
}

func init() {
	f := rankCmd.Flags()
	f.StringVarP(&rankInput, "input", "i", "", "candidate file or http(s) URL (.csv, .json, .yaml, .xlsx)")
	f.StringVar(&rankStreet, "street", "", "origin street line")
	f.StringVar(&rankCity, "city", "", "origin city")
	f.StringVar(&rankState, "state", "", "origin state name or abbreviation")
	f.StringVar(&rankZip, "zip", "", "origin postal code")
	f.Float64Var(&rankLat, "lat", 0, "origin latitude, skips origin lookup")
	f.Float64Var(&rankLon, "lon", 0, "origin longitude, skips origin lookup")
	f.IntVar(&rankTop, "top", 0, "how many nearest candidates to report (default from config)")
	f.StringVar(&rankSort, "sort", "", "table order: name-asc, name-desc, distance-asc, distance-desc")
	f.StringVar(&rankFilter, "filter", "", "only show candidates whose name or address contains this text")
	f.StringVar(&rankGeoJSON, "geojson", "", "also write a GeoJSON FeatureCollection to this path (- for stdout)")
	rootCmd.AddCommand(rankCmd)
}
