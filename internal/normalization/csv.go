package normalization

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

// readCSV keeps every cell as text: CSV carries no native types, so nothing is
// inferred beyond the date-column rewrite.
func readCSV(data []byte) (*sheet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	sh := &sheet{}
	headerRead := false
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !headerRead {
			sh.headers = record
			headerRead = true
			continue
		}
		cells := make([]any, len(record))
		for i, v := range record {
			cells[i] = v
		}
		sh.rows = append(sh.rows, cells)
	}
	return sh, nil
}
