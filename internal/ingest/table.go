package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
)

// columnAliases maps normalized header names to Record fields.
var columnAliases = map[string]string{
	"name":           "name",
	"location":       "name",
	"location_name":  "name",
	"site":           "name",
	"title":          "name",
	"street":         "street",
	"street_address": "street",
	"address":        "street",
	"address1":       "street",
	"address_1":      "street",
	"address_line_1": "street",
	"city":           "city",
	"town":           "city",
	"state":          "state",
	"st":             "state",
	"zip":            "zip",
	"zipcode":        "zip",
	"zip_code":       "zip",
	"postal_code":    "zip",
	"postalcode":     "zip",
	"line2":          "line2",
	"address2":       "line2",
	"address_2":      "line2",
	"address_line_2": "line2",
	"city_state_zip": "line2",
}

// columnMap locates Record fields in a header row.
type columnMap map[string]int

func newColumnMap(header []string) (columnMap, error) {
	cm := columnMap{}
	for i, h := range header {
		key := normalizeHeader(h)
		field, ok := columnAliases[key]
		if !ok {
			continue
		}
		if _, dup := cm[field]; !dup {
			cm[field] = i
		}
	}
	if len(cm) == 0 {
		return nil, eris.Errorf("ingest: no recognized columns in header %q", header)
	}
	return cm, nil
}

func (cm columnMap) record(row []string) Record {
	get := func(field string) string {
		i, ok := cm[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return Record{
		Name:   get("name"),
		Street: get("street"),
		City:   get("city"),
		State:  get("state"),
		Zip:    get("zip"),
		Line2:  get("line2"),
	}
}

// recordsFromRows treats the first row as the header.
func recordsFromRows(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cm, err := newColumnMap(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, cm.record(row))
	}
	return out, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
	return h
}
