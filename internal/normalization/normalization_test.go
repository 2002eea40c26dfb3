package normalization

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yungbote/shipdash-backend/internal/domain/records"
)

func TestNormalizeCSVRewritesDateColumnsOnly(t *testing.T) {
	input := "DocketNo,EDD,ShipmentDate,Remark\n" +
		"D1,5/1/23,12/11/2024,5/1/23\n" +
		",,,\n" +
		"D2,,2024-01-02,\n" +
		"D3,1/2/2023,,x\n"

	rows, err := Normalize(strings.NewReader(input), "upload.csv", Options{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, records.Row{
		{Key: "DocketNo", Value: "D1"},
		{Key: "EDD", Value: "05/01/2023"},
		{Key: "ShipmentDate", Value: "12/11/2024"},
		{Key: "Remark", Value: "5/1/23"},
	}, rows[0])

	assert.Equal(t, []string{"DocketNo", "ShipmentDate"}, rows[1].Keys())
	v, _ := rows[1].Get("ShipmentDate")
	assert.Equal(t, "2024-01-02", v)
	_, hasEDD := rows[1].Get("EDD")
	assert.False(t, hasEDD)

	v, _ = rows[2].Get("EDD")
	assert.Equal(t, "01/02/2023", v)
}

func TestNormalizeDropsOnlyFullyEmptyRows(t *testing.T) {
	// five data rows, two of them blank
	input := "A,B\n1,2\n,\n3,\n , \n,4\n"
	rows, err := NormalizeBytes([]byte(input), "x.csv", Options{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[0].Map()["A"])
	assert.Equal(t, "3", rows[1].Map()["A"])
	assert.Equal(t, "4", rows[2].Map()["B"])
}

func TestNormalizeEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n", "OnlyHeader\n"} {
		rows, err := NormalizeBytes([]byte(in), "empty.csv", Options{})
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	}
}

func TestNormalizeCustomDateColumns(t *testing.T) {
	rows, err := NormalizeBytes([]byte("Pickup,EDD\n3/4/24,3/4/24\n"), "x.csv", Options{DateColumns: []string{"Pickup"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, records.Record{"Pickup": "03/04/2024", "EDD": "3/4/24"}, rows[0].Map())
}

func TestNormalizeXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"DocketNo", "EDD", "Note", "Qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"D-1", 44931, 44931, 3}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"D-2", "5/1/23", "5/1/23", 2.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A5", &[]any{"D-3"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := NormalizeBytes(buf.Bytes(), "shipments.xlsx", Options{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, records.Record{"DocketNo": "D-1", "EDD": "05/01/2023", "Note": int64(44931), "Qty": int64(3)}, rows[0].Map())
	assert.Equal(t, records.Record{"DocketNo": "D-2", "EDD": "05/01/2023", "Note": "5/1/23", "Qty": 2.5}, rows[1].Map())
	assert.Equal(t, records.Record{"DocketNo": "D-3"}, rows[2].Map())
}

func TestNormalizeXLSXDetectedWithoutExtension(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"EDD"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{44931.75}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := NormalizeBytes(buf.Bytes(), "upload.bin", Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "05/01/2023", rows[0].Map()["EDD"])
}

// testdata/shipments.xls holds one BIFF8 sheet: a header row, a row using NUMBER
// records, a row of formatted BLANK cells and a row using RK records. EDD cells
// carry built-in format 14, Booked carries custom format "dd/mm/yyyy".
func TestNormalizeXLSReadsTypedCells(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "shipments.xls"))
	require.NoError(t, err)

	rows, err := NormalizeBytes(data, "shipments.xls", Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2, "the all-blank row is dropped")

	assert.Equal(t, records.Row{
		{Key: "DocketNo", Value: "00123"},
		{Key: "EDD", Value: "05/01/2023"},
		{Key: "Tenant", Value: "acme"},
		{Key: "Pieces", Value: int64(12)},
		{Key: "Booked", Value: "06/01/2023"},
	}, rows[0])
	assert.Equal(t, records.Record{
		"DocketNo": "0987654321",
		"EDD":      "07/01/2023",
		"Tenant":   "1e3",
		"Pieces":   int64(3),
	}, rows[1].Map())
}

func TestNormalizeXLSDetectedWithoutExtension(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "shipments.xls"))
	require.NoError(t, err)

	rows, err := NormalizeBytes(data, "upload", Options{DateColumns: []string{"Tenant"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// date-formatted cells render as dates outside the date columns too
	assert.Equal(t, "05/01/2023", rows[0].Map()["EDD"])
	assert.Equal(t, "1e3", rows[1].Map()["Tenant"])
	assert.Equal(t, int64(12), rows[0].Map()["Pieces"])
}

func TestIsDateFormatCode(t *testing.T) {
	cases := map[string]bool{
		"dd/mm/yyyy":        true,
		"[$-409]d-mmm-yy":   true,
		"yyyy-mm-dd hh:mm":  true,
		"General":           false,
		"@":                 false,
		"#,##0.00":          false,
		`0.00 "days"`:       false,
		`[Red]#,##0;"dm" 0`: false,
		"0.00E+00":          false,
	}
	for code, want := range cases {
		assert.Equal(t, want, isDateFormatCode(code), code)
	}
	assert.True(t, isBuiltinDateFormat(14))
	assert.True(t, isBuiltinDateFormat(57))
	assert.False(t, isBuiltinDateFormat(0))
	assert.False(t, isBuiltinDateFormat(20))
}

func TestNormalizeRejectsBrokenXLS(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)
	_, err := NormalizeBytes(data, "bad.xls", Options{})
	require.Error(t, err)
}

func TestNormalizeDateCell(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want any
	}{
		{"short year", "5/1/23", "05/01/2023"},
		{"full year", "15/12/2024", "15/12/2024"},
		{"three digit year kept", "1/1/123", "01/01/123"},
		{"dashes untouched", "2023-01-05", "2023-01-05"},
		{"text untouched", "tomorrow", "tomorrow"},
		{"serial", int64(44931), "05/01/2023"},
		{"fractional serial", 44931.5, "05/01/2023"},
		{"negative falls back", -3.5, "-3.5"},
		{"huge falls back", int64(1000000000), "1000000000"},
		{"native date", time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), "05/01/2023"},
		{"bool untouched", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeDateCell(tc.in, false))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("a.csv", []byte("PK\x03\x04rest")))
	assert.Equal(t, FormatXLS, DetectFormat("a.xlsx", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0}))
	assert.Equal(t, FormatXLSX, DetectFormat("A.XLSX", []byte("x")))
	assert.Equal(t, FormatXLS, DetectFormat("legacy.xls", []byte("x")))
	assert.Equal(t, FormatCSV, DetectFormat("data.txt", []byte("a,b")))
}

func TestUniqueHeaders(t *testing.T) {
	got := uniqueHeaders([]string{"\ufeffA", " A ", "", "", "B"}, 6)
	assert.Equal(t, []string{"A", "A_1", "__EMPTY", "__EMPTY_1", "B", "__EMPTY_2"}, got)

	got = uniqueHeaders([]string{"A", "A_1", "A"}, 3)
	assert.Equal(t, []string{"A", "A_1", "A_2"}, got)
}

func TestNormalizeRejectsBrokenWorkbook(t *testing.T) {
	_, err := NormalizeBytes([]byte("PK\x03\x04not really a zip"), "bad.xlsx", Options{})
	require.Error(t, err)
}
