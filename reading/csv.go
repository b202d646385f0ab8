package reading

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseCSV converts an uploaded readings file into an ordered sequence of
// submissions. The file must carry a header row naming an account number
// column and a reading column; column order is free and matching is
// case-insensitive ("accountNumber"/"account_number", "newReading"/
// "new_reading"/"reading").
//
// Malformed files fail as a whole; per-row business validation (monotonicity,
// unknown accounts) is the bulk processor's job, not the parser's.
func ParseCSV(r io.Reader) ([]Submission, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("reading: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading: read header: %w", err)
	}

	accountCol, readingCol := -1, -1
	for i, name := range header {
		switch normalizeColumn(name) {
		case "accountnumber", "account":
			accountCol = i
		case "newreading", "reading":
			readingCol = i
		}
	}
	if accountCol < 0 || readingCol < 0 {
		return nil, fmt.Errorf("reading: header must name accountNumber and newReading columns, got %v", header)
	}

	var subs []Submission
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading: line %d: %w", line, err)
		}
		if accountCol >= len(record) || readingCol >= len(record) {
			return nil, fmt.Errorf("reading: line %d: too few columns", line)
		}

		account := strings.TrimSpace(record[accountCol])
		rawReading := strings.TrimSpace(record[readingCol])
		if account == "" && rawReading == "" {
			continue // blank row
		}

		value, err := strconv.ParseInt(rawReading, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reading: line %d: invalid reading %q: %w", line, rawReading, err)
		}

		subs = append(subs, Submission{AccountNumber: account, NewReading: value})
	}

	return subs, nil
}

func normalizeColumn(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, " ", "")
	return strings.TrimPrefix(name, "\ufeff")
}
