package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PageRow is one parsed record from the crawler's Internal:All export.
// Numeric fields are pointers so malformed cells load as NULL rather
// than zero.
type PageRow struct {
	URL                   string
	StatusCode            *int
	Indexability          string
	IndexabilityStatus    string
	Title                 string
	TitleLength           *int
	MetaDescription       string
	MetaDescriptionLength *int
	H1                    string
	H1Length              *int
	WordCount             *int
	ResponseTimeMS        *int
	SizeBytes             *int
	CanonicalLink         string
	RobotsTxtStatus       string
	XRobotsTag            string
}

// ParseInternalAll reads a Screaming Frog internal_all.csv export.
// Columns are resolved by header name, so column order and extra
// columns in newer tool versions are tolerated.
func ParseInternalAll(path string) ([]PageRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	if len(header) > 0 {
		// Exports are written with a UTF-8 BOM.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}

	var rows []PageRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}
		rows = append(rows, PageRow{
			URL:                   field(rec, idx, "Address"),
			StatusCode:            intField(rec, idx, "Status Code"),
			Indexability:          field(rec, idx, "Indexability"),
			IndexabilityStatus:    field(rec, idx, "Indexability Status"),
			Title:                 field(rec, idx, "Title 1"),
			TitleLength:           intField(rec, idx, "Title 1 Length"),
			MetaDescription:       field(rec, idx, "Meta Description 1"),
			MetaDescriptionLength: intField(rec, idx, "Meta Description 1 Length"),
			H1:                    field(rec, idx, "H1-1"),
			H1Length:              intField(rec, idx, "H1-1 length"),
			WordCount:             intField(rec, idx, "Word Count"),
			ResponseTimeMS:        intField(rec, idx, "Response Time"),
			SizeBytes:             intField(rec, idx, "Size (bytes)"),
			CanonicalLink:         field(rec, idx, "Canonical Link Element 1"),
			RobotsTxtStatus:       field(rec, idx, "robots.txt"),
			XRobotsTag:            field(rec, idx, "X-Robots-Tag 1"),
		})
	}
	return rows, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func intField(rec []string, idx map[string]int, name string) *int {
	v := field(rec, idx, name)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}
