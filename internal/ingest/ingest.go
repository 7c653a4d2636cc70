// Package ingest loads candidate locations from CSV, JSON, YAML and XLSX
// sources and turns them into session candidates.
package ingest

import (
	"context"
	"strings"

	"github.com/sells-group/nearby/internal/address"
	"github.com/sells-group/nearby/internal/model"
)

// Record is one raw location as it appears in a source. Line2 holds a
// combined "City, ST ZIP" line for sources that do not split it.
type Record struct {
	Name   string `json:"name" yaml:"name"`
	Street string `json:"street" yaml:"street"`
	City   string `json:"city" yaml:"city"`
	State  string `json:"state" yaml:"state"`
	Zip    string `json:"zip" yaml:"zip"`
	Line2  string `json:"line2,omitempty" yaml:"line2,omitempty"`
}

// IsBlank reports whether the record carries neither a name nor an address.
func (r Record) IsBlank() bool {
	for _, v := range []string{r.Name, r.Street, r.City, r.State, r.Zip, r.Line2} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Query normalizes the record's address. When only Line2 is present it is
// decomposed into city, state and zip.
func (r Record) Query() model.AddressQuery {
	q := model.AddressQuery{
		Street:     r.Street,
		City:       r.City,
		State:      r.State,
		PostalCode: r.Zip,
	}.Trimmed()

	if line2 := strings.TrimSpace(r.Line2); line2 != "" && !q.HasLocality() {
		csz := address.ParseCityStateZip(line2)
		q.City, q.State, q.PostalCode = csz.City, csz.State, csz.Zip
	}
	q.State = address.StateAbbr(q.State)
	return q
}

// Source yields raw records.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// ToCandidates converts records to candidates, dropping blank records and
// assigning ids 0..n-1 in order.
func ToCandidates(records []Record) []model.Candidate {
	out := make([]model.Candidate, 0, len(records))
	for _, r := range records {
		if r.IsBlank() {
			continue
		}
		out = append(out, model.NewCandidate(len(out), strings.TrimSpace(r.Name), r.Query()))
	}
	return out
}

// Load reads every record from src and converts them.
func Load(ctx context.Context, src Source) ([]model.Candidate, error) {
	records, err := src.Records(ctx)
	if err != nil {
		return nil, err
	}
	return ToCandidates(records), nil
}
