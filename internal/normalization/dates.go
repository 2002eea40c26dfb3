package normalization

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const displayDateLayout = "02/01/2006"

// maxSerial is 9999-12-31, the last date a spreadsheet serial can express.
const maxSerial = 2958465

var dmyPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)

func normalizeDateCell(v any, date1904 bool) any {
	switch t := v.(type) {
	case string:
		return normalizeDateString(t)
	case int64:
		return serialOrRaw(float64(t), date1904, strconv.FormatInt(t, 10))
	case float64:
		return serialOrRaw(t, date1904, strconv.FormatFloat(t, 'f', -1, 64))
	case time.Time:
		return t.Format(displayDateLayout)
	default:
		return v
	}
}

// normalizeDateString zero-pads d/m/y strings and expands two-digit years to 20YY.
// Non-matching strings are returned untouched.
func normalizeDateString(s string) string {
	m := dmyPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	day, month, year := m[1], m[2], m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("%s/%s/%s", padTwo(day), padTwo(month), year)
}

func padTwo(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func serialOrRaw(serial float64, date1904 bool, raw string) string {
	s, err := SerialToDisplay(serial, date1904)
	if err != nil {
		return raw
	}
	return s
}

// SerialToDisplay converts a spreadsheet serial day number to dd/mm/yyyy.
func SerialToDisplay(serial float64, date1904 bool) (string, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 || serial > maxSerial {
		return "", fmt.Errorf("serial %v out of range", serial)
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return "", err
	}
	return t.Format(displayDateLayout), nil
}

// numberValue keeps whole numbers integral so they round-trip as integers.
func numberValue(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
