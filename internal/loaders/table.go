// Package loaders reads the hydro catalogs and hourly series from CSV files.
package loaders

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// TimeLayout is the timestamp format used by every source file.
const TimeLayout = "2006-01-02-15:04"

// table is a CSV file with normalized headers.
type table struct {
	tag     string
	columns map[string]int
	records [][]string
}

// row is one record of a table; line is the 1-based file line.
type row struct {
	t      *table
	line   int
	values []string
}

func openTable(path, tag string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[%s] open %s: %w", tag, path, err)
	}
	defer f.Close()

	return readTable(f, tag, required)
}

func readTable(r io.Reader, tag string, required []string) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.ValidationError{Field: tag, Value: "", Message: fmt.Sprintf("[%s] empty file", tag)}
	}
	if err != nil {
		return nil, fmt.Errorf("[%s] read header: %w", tag, err)
	}

	t := &table{tag: tag, columns: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		t.columns[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, c := range required {
		if _, ok := t.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		present := make([]string, 0, len(t.columns))
		for c := range t.columns {
			present = append(present, c)
		}
		sort.Strings(present)
		return nil, &models.ValidationError{
			Field:   tag,
			Value:   strings.Join(present, ","),
			Message: fmt.Sprintf("[%s] missing columns: %s", tag, strings.Join(missing, ", ")),
		}
	}

	t.records, err = reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("[%s] read records: %w", tag, err)
	}
	return t, nil
}

func (t *table) rows() []row {
	out := make([]row, 0, len(t.records))
	for i, rec := range t.records {
		if isBlank(rec) {
			continue
		}
		out = append(out, row{t: t, line: i + 2, values: rec})
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// get returns the trimmed cell of a column, empty when absent.
func (r row) get(col string) string {
	i, ok := r.t.columns[col]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r row) fail(col, value, msg string) error {
	return &models.ValidationError{
		Field:   col,
		Value:   value,
		Message: fmt.Sprintf("[%s] line %d: %s", r.t.tag, r.line, msg),
	}
}

// timestamp parses a required timestamp in TimeLayout.
func (r row) timestamp(col string) (time.Time, error) {
	v := r.get(col)
	ts, err := time.Parse(TimeLayout, v)
	if err != nil {
		return time.Time{}, r.fail(col, v, fmt.Sprintf("invalid %s, expected %s", col, TimeLayout))
	}
	return ts, nil
}

// flag parses a tolerant boolean; blank cells yield def.
func (r row) flag(col string, def bool) bool {
	v := strings.ToLower(r.get(col))
	if v == "" {
		return def
	}
	switch v {
	case "true", "1", "t", "yes", "y", "si", "sí":
		return true
	}
	return false
}

// number parses a number; blank or malformed cells yield def.
func (r row) number(col string, def float64) float64 {
	v := r.get(col)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// strictFloat parses a required number.
func (r row) strictFloat(col string) (float64, error) {
	v := r.get(col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, r.fail(col, v, fmt.Sprintf("invalid number in %s", col))
	}
	return f, nil
}

// optFloat parses an optional number; blank or malformed cells yield nil.
func (r row) optFloat(col string) *float64 {
	v := r.get(col)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// optInt parses an optional integer, accepting integral floats like "2.0".
func (r row) optInt(col string) *int {
	f := r.optFloat(col)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// strictInt parses a required integer.
func (r row) strictInt(col string) (int, error) {
	v := r.get(col)
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, r.fail(col, v, fmt.Sprintf("invalid integer in %s", col))
		}
		n = int(f)
	}
	return n, nil
}

// assertUnique fails when a name appears more than once, listing the
// duplicates sorted and truncated to the default sample.
func assertUnique(tag string, names []string) error {
	seen := make(map[string]int, len(names))
	for _, n := range names {
		seen[n]++
	}
	var dups []string
	for n, c := range seen {
		if c > 1 {
			dups = append(dups, n)
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	sample := dups
	if len(sample) > models.DefaultSampleSize {
		sample = sample[:models.DefaultSampleSize]
	}
	return &models.ValidationError{
		Field:   "name",
		Value:   strings.Join(sample, ","),
		Message: fmt.Sprintf("[%s] duplicate names (%d): %s", tag, len(dups), strings.Join(sample, ", ")),
	}
}
