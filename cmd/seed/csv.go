package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

var requiredColumns = []string{"unit_id", "timestamp", "rainfall_mm_hr", "drainage_level_cm", "flow_rate_lps"}

// readCSV parses the export. Columns are matched by header name, case-insensitively.
// Rows that fail validation are returned as skip reasons rather than errors.
func readCSV(r io.Reader) ([]domain.SensorReading, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	var readings []domain.SensorReading
	var skipped []string
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", line, err)
		}

		field := func(name string) string {
			if i := cols[name]; i < len(row) {
				return row[i]
			}
			return ""
		}
		rec := domain.ParseCSVFields(
			field("unit_id"), field("timestamp"),
			field("rainfall_mm_hr"), field("drainage_level_cm"), field("flow_rate_lps"),
		)
		reading, err := domain.ParseRecord(rec)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		readings = append(readings, reading)
	}
	return readings, skipped, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	return idx, nil
}
