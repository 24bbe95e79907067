package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned when the CSV has no header row at all.
var ErrNoHeader = errors.New("csv has no header row")

// table is a parsed CSV: normalized headers plus the raw data lines that had
// exactly one cell per header.
type table struct {
	headers []string
	rows    []tableRow
	dropped int
}

type tableRow struct {
	line  int
	cells []string
}

// decodeCSV returns data as UTF-8. A UTF-8 or UTF-16 BOM is honoured and
// stripped; anything else that is not valid UTF-8 is read as Windows-1252,
// which is what spreadsheet exports on Windows produce.
func decodeCSV(data []byte) ([]byte, error) {
	hasBOM := bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})

	if !hasBOM && !utf8.Valid(data) {
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode windows-1252: %w", err)
		}
		return out, nil
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("decode utf: %w", err)
	}
	return out, nil
}

// readTable reads the whole CSV from r. Rows whose cell count differs from
// the header count, or that fail to parse, are dropped and only counted.
func readTable(r io.Reader) (*table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data, err := decodeCSV(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	t := &table{headers: make([]string, len(header))}
	for i, h := range header {
		t.headers[i] = NormalizeHeader(h)
	}

	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				t.dropped++
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(cells) != len(t.headers) {
			t.dropped++
			continue
		}
		line, _ := cr.FieldPos(0)
		t.rows = append(t.rows, tableRow{line: line, cells: cells})
	}

	return t, nil
}

// raw pairs each header with its cell.
func (t *table) raw(row tableRow) map[string]string {
	m := make(map[string]string, len(t.headers))
	for i, h := range t.headers {
		m[h] = row.cells[i]
	}
	return m
}
