package normalization

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shakinm/xlsReader/cfb"
	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/record"
	"github.com/shakinm/xlsReader/xls/structure"
)

// BIFF record ids read straight from the workbook globals.
const (
	biffDateMode = 0x0022
	biffEOF      = 0x000A
)

// readXLS reads legacy BIFF8 workbooks from typed cell records. Numbers come from
// NUMBER/RK records only; text records stay strings whatever they look like.
func readXLS(data []byte) (sh *sheet, err error) {
	// the BIFF decoder panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			sh, err = nil, fmt.Errorf("malformed xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	sh = &sheet{date1904: xlsDate1904(data)}
	if wb.GetNumberSheets() == 0 {
		return sh, nil
	}
	ws, err := wb.GetSheet(0)
	if err != nil {
		return nil, err
	}

	for i := 0; i < ws.GetNumberRows(); i++ {
		row, err := ws.GetRow(i)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		cols := row.GetCols()
		cells := make([]any, len(cols))
		for j, c := range cols {
			cells[j] = xlsCellValue(&wb, c, sh.date1904)
		}
		if i == 0 {
			sh.headers = make([]string, len(cells))
			for j, c := range cells {
				if c != nil {
					sh.headers[j] = fmt.Sprint(c)
				}
			}
			continue
		}
		sh.rows = append(sh.rows, cells)
	}
	return sh, nil
}

// xlsCellValue maps a cell record to its native value. Numbers carrying a date
// number format are rendered dd/mm/yyyy.
func xlsCellValue(wb *xls.Workbook, c structure.CellData, date1904 bool) any {
	switch cell := c.(type) {
	case *record.Number, *record.Rk:
		f := cell.GetFloat64()
		if xlsDateFormatted(wb, cell.GetXFIndex()) {
			if s, err := SerialToDisplay(f, date1904); err == nil {
				return s
			}
		}
		return numberValue(f)
	case *record.LabelSSt, *record.LabelBIFF8, *record.LabelBIFF5:
		return cell.GetString()
	case *record.BoolErr:
		switch s := cell.GetString(); s {
		case "TRUE":
			return true
		case "FALSE":
			return false
		default:
			return s
		}
	case *record.Blank, *record.FakeBlank, nil:
		return nil
	default:
		if s := c.GetString(); s != "" {
			return s
		}
		return nil
	}
}

// xlsDateFormatted reports whether the cell's XF points at a date number format.
func xlsDateFormatted(wb *xls.Workbook, xfIndex int) (ok bool) {
	// GetXFbyIndex indexes past the XF table of short workbooks
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	xf := wb.GetXFbyIndex(xfIndex)
	idx := xf.GetFormatIndex()
	if isBuiltinDateFormat(idx) {
		return true
	}
	if idx < 164 {
		return false
	}
	f := wb.GetFormatByIndex(idx)
	return isDateFormatCode(f.String())
}

// isBuiltinDateFormat covers the internal date formats, including the CJK ones.
func isBuiltinDateFormat(idx int) bool {
	switch {
	case idx >= 14 && idx <= 17, idx == 22:
		return true
	case idx >= 27 && idx <= 36, idx >= 50 && idx <= 58:
		return true
	default:
		return false
	}
}

var formatLiterals = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.|_.|\*.`)

// isDateFormatCode matches custom number formats that print a day, month or year.
func isDateFormatCode(code string) bool {
	code = strings.ToLower(formatLiterals.ReplaceAllString(code, ""))
	if code == "" || code == "general" || code == "@" {
		return false
	}
	return strings.ContainsAny(code, "dmy")
}

// xlsDate1904 scans the workbook globals for the DATEMODE record. xlsReader does
// not surface it.
func xlsDate1904(data []byte) bool {
	c, err := cfb.OpenReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	var book, root *cfb.Directory
	for _, dir := range c.GetDirs() {
		switch dir.Name() {
		case "Workbook", "Book":
			if book == nil {
				book = dir
			}
		case "Root Entry":
			root = dir
		}
	}
	if book == nil || root == nil {
		return false
	}
	r, err := c.OpenObject(book, root)
	if err != nil {
		return false
	}
	stream, err := io.ReadAll(r)
	if err != nil {
		return false
	}
	if size := int(book.GetStreamSize()); size < len(stream) {
		stream = stream[:size]
	}
	for p := 0; p+4 <= len(stream); {
		id := binary.LittleEndian.Uint16(stream[p:])
		n := int(binary.LittleEndian.Uint16(stream[p+2:]))
		body := p + 4
		if body+n > len(stream) {
			return false
		}
		switch id {
		case biffDateMode:
			return n >= 2 && binary.LittleEndian.Uint16(stream[body:]) == 1
		case biffEOF:
			return false
		}
		p = body + n
	}
	return false
}
