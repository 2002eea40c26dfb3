package normalization

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

func readXLSX(data []byte) (*sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sh := &sheet{}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		sh.date1904 = *props.Date1904
	}

	names := f.GetSheetList()
	if len(names) == 0 {
		return sh, nil
	}
	name := names[0]
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(raw) == 0 {
		return sh, nil
	}
	sh.headers = raw[0]
	for r := 1; r < len(raw); r++ {
		cells := make([]any, len(raw[r]))
		for c, v := range raw[r] {
			if v == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(name, axis)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", axis, err)
			}
			cells[c] = xlsxValue(typ, v)
		}
		sh.rows = append(sh.rows, cells)
	}
	return sh, nil
}

// xlsxValue restores the native type of a raw cell value.
func xlsxValue(typ excelize.CellType, raw string) any {
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return raw
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
		return raw
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return numberValue(f)
		}
		return raw
	}
}
