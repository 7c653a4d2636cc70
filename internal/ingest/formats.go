package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

// CSV reads a header-led CSV document.
type CSV struct {
	R io.Reader
}

// Records implements Source.
func (s CSV) Records(ctx context.Context) ([]Record, error) {
	reader := csv.NewReader(s.R)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: csv cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: csv read row")
		}
		rows = append(rows, row)
	}
	return recordsFromRows(rows)
}

// JSON reads an array of record objects.
type JSON struct {
	R io.Reader
}

// Records implements Source.
func (s JSON) Records(_ context.Context) ([]Record, error) {
	var out []Record
	if err := json.NewDecoder(s.R).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "ingest: decode json")
	}
	return out, nil
}

// YAML reads a sequence of record mappings.
type YAML struct {
	R io.Reader
}

// Records implements Source.
func (s YAML) Records(_ context.Context) ([]Record, error) {
	var out []Record
	if err := yaml.NewDecoder(s.R).Decode(&out); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "ingest: decode yaml")
	}
	return out, nil
}

// XLSX reads one worksheet whose first row is the header. Path is used when
// Data is nil.
type XLSX struct {
	Path  string
	Data  []byte
	Sheet string
}

// Records implements Source.
func (s XLSX) Records(_ context.Context) ([]Record, error) {
	var (
		f   *xlsx.File
		err error
	)
	if s.Data != nil {
		f, err = xlsx.OpenBinary(s.Data)
	} else {
		f, err = xlsx.OpenFile(s.Path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := pickSheet(f, s.Sheet)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return recordsFromRows(rows)
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

// bytesSource picks a decoder for in-memory data by format name.
func bytesSource(format string, data []byte) (Source, error) {
	switch format {
	case "csv":
		return CSV{R: bytes.NewReader(data)}, nil
	case "json":
		return JSON{R: bytes.NewReader(data)}, nil
	case "yaml", "yml":
		return YAML{R: bytes.NewReader(data)}, nil
	case "xlsx":
		return XLSX{Data: data}, nil
	default:
		return nil, eris.Errorf("ingest: unsupported format %q", format)
	}
}
