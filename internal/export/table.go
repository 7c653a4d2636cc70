package export

import (
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nearby/internal/model"
)

const mapsPlaceURL = "https://www.google.com/maps/place/"

// MapsLink returns a Google Maps place link for the candidate, or "" when it
// has neither label nor name.
func MapsLink(c model.Candidate) string {
	q := c.Label
	if q == "" {
		q = c.Name
	}
	if q == "" {
		return ""
	}
	return mapsPlaceURL + url.PathEscape(q)
}

// FormatMiles renders a distance with one decimal, or "-" when unresolved.
func FormatMiles(c model.Candidate) string {
	d, ok := c.Distance()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f mi", d)
}

// WriteTable writes one aligned row per candidate. Rows for candidates in
// top are marked with their rank.
func WriteTable(w io.Writer, candidates, top []model.Candidate) error {
	rank := make(map[int]int, len(top))
	for i, c := range top {
		rank[c.ID] = i + 1
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOP\tID\tNAME\tADDRESS\tDISTANCE\tMAP") //nolint:errcheck
	for _, c := range candidates {
		marker := ""
		if r, ok := rank[c.ID]; ok {
			marker = fmt.Sprintf("#%d", r)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", //nolint:errcheck
			marker, c.ID, c.Name, c.Label, FormatMiles(c), MapsLink(c))
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "export: flush table")
	}
	return nil
}

// WriteTop writes the nearest list as "#1 Name  3.4 mi" lines.
func WriteTop(w io.Writer, top []model.Candidate) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, c := range top {
		name := c.Name
		if name == "" {
			name = c.Label
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\n", i+1, name, FormatMiles(c)) //nolint:errcheck
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "export: flush top")
	}
	return nil
}
