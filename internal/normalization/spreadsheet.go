package normalization

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/yungbote/shipdash-backend/internal/domain/records"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// DefaultDateColumns are rewritten to dd/mm/yyyy during normalization.
var DefaultDateColumns = []string{"Date", "ShipmentDate", "DeliveryDate", "EDD"}

type Options struct {
	// DateColumns overrides DefaultDateColumns when non-empty.
	DateColumns []string
}

func (o Options) dateColumns() map[string]struct{} {
	cols := o.DateColumns
	if len(cols) == 0 {
		cols = DefaultDateColumns
	}
	out := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		out[c] = struct{}{}
	}
	return out
}

// sheet is the first worksheet of a file: a header row plus typed data cells.
// A nil cell is an empty cell.
type sheet struct {
	headers  []string
	rows     [][]any
	date1904 bool
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat sniffs the file signature first and falls back to the extension.
// Anything unrecognized is read as CSV.
func DetectFormat(name string, head []byte) Format {
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(head, oleMagic):
		return FormatXLS
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	default:
		return FormatCSV
	}
}

// Normalize reads the first sheet of a CSV/XLS/XLSX file into ordered rows. Rows
// with no populated cell are dropped and empty cells are omitted from their row.
func Normalize(r io.Reader, name string, opts Options) ([]records.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	return NormalizeBytes(data, name, opts)
}

func NormalizeBytes(data []byte, name string, opts Options) ([]records.Row, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []records.Row{}, nil
	}
	format := DetectFormat(name, data)

	var sh *sheet
	var err error
	switch format {
	case FormatXLSX:
		sh, err = readXLSX(data)
	case FormatXLS:
		sh, err = readXLS(data)
	default:
		sh, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	return sh.toRows(opts.dateColumns()), nil
}

func (s *sheet) toRows(dateCols map[string]struct{}) []records.Row {
	if s == nil || len(s.rows) == 0 {
		return []records.Row{}
	}
	out := make([]records.Row, 0, len(s.rows))
	width := len(s.headers)
	for _, cells := range s.rows {
		if len(cells) > width {
			width = len(cells)
		}
	}
	headers := uniqueHeaders(s.headers, width)

	for _, cells := range s.rows {
		row := make(records.Row, 0, len(cells))
		for i, v := range cells {
			if isEmptyCell(v) {
				continue
			}
			key := headers[i]
			if _, ok := dateCols[key]; ok {
				v = normalizeDateCell(v, s.date1904)
			}
			row = append(row, records.Field{Key: key, Value: v})
		}
		if len(row) == 0 {
			continue
		}
		out = append(out, row)
	}
	return out
}

func isEmptyCell(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// uniqueHeaders trims header names, names blank headers __EMPTY, __EMPTY_1, ... and
// suffixes repeated names with _1, _2, ...
func uniqueHeaders(raw []string, width int) []string {
	out := make([]string, width)
	used := make(map[string]bool, width)
	next := make(map[string]int)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(raw) {
			name = strings.TrimSpace(strings.TrimPrefix(raw[i], "\ufeff"))
		}
		if name == "" {
			name = "__EMPTY"
		}
		if used[name] {
			base := name
			for {
				next[base]++
				candidate := fmt.Sprintf("%s_%d", base, next[base])
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}
