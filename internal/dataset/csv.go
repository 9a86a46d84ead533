package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV parses one vector per line. Lines whose first field is not a
// number are taken as a header and skipped.
func ReadCSV(r io.Reader, limit int) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	set := &Set{}
	for line := 1; limit <= 0 || set.Rows() < limit; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if set.Dim == 0 {
			if _, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 32); err != nil {
				continue
			}
			set.Dim = len(record)
		}
		if len(record) != set.Dim {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrRagged, line, len(record), set.Dim)
		}

		for _, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			set.Data = append(set.Data, float32(v))
		}
	}
	return set, nil
}

// WriteCSV writes one vector per line without a header.
func WriteCSV(w io.Writer, set *Set) error {
	cw := csv.NewWriter(w)
	record := make([]string, set.Dim)
	for row := 0; row < set.Rows(); row++ {
		for i, v := range set.Row(row) {
			record[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
