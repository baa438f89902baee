package dataprocessing

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"bojfx/internal/config"
	"bojfx/internal/errors"
	"bojfx/pkg/contracts/domain"
)

// dateLayouts are tried in order before falling back to dateparse. The
// portal writes daily series as 2006/01/02.
var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"2006/1/2",
	"20060102",
	"2006/01",
	"2006-01",
}

// cell is a raw value that may have been replaced by the null marker
type cell struct {
	raw     string
	missing bool
}

// ReshapeStats reports what the pipeline did to the rows it received
type ReshapeStats struct {
	RowsIn      int
	RowsKept    int
	RowsDropped int
}

// Reshaper converts a raw portal download into a date-indexed numeric frame.
// It holds no state between calls.
type Reshaper struct {
	sentinels map[string]struct{}
	logger    *slog.Logger
}

// ReshaperOption configures a Reshaper
type ReshaperOption func(*Reshaper)

// WithSentinels replaces the missing value tokens. Matching is exact,
// whitespace included.
func WithSentinels(tokens ...string) ReshaperOption {
	return func(r *Reshaper) {
		r.sentinels = make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			r.sentinels[t] = struct{}{}
		}
	}
}

// WithReshapeLogger sets the logger
func WithReshapeLogger(logger *slog.Logger) ReshaperOption {
	return func(r *Reshaper) { r.logger = logger }
}

// NewReshaper creates a Reshaper using the portal's missing value tokens
func NewReshaper(opts ...ReshaperOption) *Reshaper {
	r := &Reshaper{logger: slog.Default()}
	WithSentinels(config.MissingValueTokens...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reshape runs the full pipeline. See ReshapeWithStats.
func (r *Reshaper) Reshape(raw *domain.RawTable, labels []string) (*domain.Frame, error) {
	f, _, err := r.ReshapeWithStats(raw, labels)
	return f, err
}

// ReshapeWithStats discards the label row, names the columns after labels,
// parses the date column into the index, nulls the missing value tokens,
// drops every row holding a null and coerces what is left to float64.
// Any failure is a DataShapeError and no frame is returned.
func (r *Reshaper) ReshapeWithStats(raw *domain.RawTable, labels []string) (*domain.Frame, ReshapeStats, error) {
	var stats ReshapeStats

	if raw == nil {
		return nil, stats, errors.NewDataShapeError("no table to reshape", nil)
	}

	rows, err := discardLabelRow(raw.Rows)
	if err != nil {
		return nil, stats, err
	}
	stats.RowsIn = len(rows)

	columns, err := assignColumns(raw.Width(), rows, labels)
	if err != nil {
		return nil, stats, err
	}

	dates, err := parseDates(rows)
	if err != nil {
		return nil, stats, err
	}

	cells := r.normalizeSentinels(rows)

	dates, cells, dropped := dropIncomplete(dates, cells)
	stats.RowsDropped = dropped
	stats.RowsKept = len(dates)

	values, err := coerceNumeric(cells, columns)
	if err != nil {
		return nil, stats, err
	}

	frame := &domain.Frame{Index: dates, Columns: columns, Values: values}

	r.logger.Debug("reshaped portal table",
		slog.Int("rows_in", stats.RowsIn),
		slog.Int("rows_kept", stats.RowsKept),
		slog.Int("rows_dropped", stats.RowsDropped),
		slog.Int("columns", len(columns)))

	return frame, stats, nil
}

// discardLabelRow drops the secondary label row the portal places above the
// data.
func discardLabelRow(rows [][]string) ([][]string, error) {
	if len(rows) == 0 {
		return nil, errors.NewDataShapeError("table has no label row", nil)
	}
	return rows[1:], nil
}

// assignColumns checks that the table is one date column plus one column per
// label and returns the value column names.
func assignColumns(width int, rows [][]string, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, errors.NewDataShapeError("no column labels given", nil)
	}
	want := len(labels) + 1
	if width != want {
		return nil, errors.NewDataShapeError(
			fmt.Sprintf("table has %d columns, expected %d (date + %d labels)", width, want, len(labels)), nil).
			WithContext("columns", width).
			WithContext("expected", want)
	}
	for i, row := range rows {
		if len(row) != want {
			return nil, errors.NewDataShapeError(
				fmt.Sprintf("row %d has %d columns, expected %d", i+1, len(row), want), nil).
				WithContext("row", i+1)
		}
	}
	columns := make([]string, len(labels))
	copy(columns, labels)
	return columns, nil
}

// parseDates parses column 0 of every row into a UTC calendar date.
func parseDates(rows [][]string) ([]time.Time, error) {
	dates := make([]time.Time, len(rows))
	for i, row := range rows {
		d, err := ParseDate(row[0])
		if err != nil {
			return nil, errors.NewDataShapeError(fmt.Sprintf("row %d: unparseable date %q", i+1, row[0]), err).
				WithContext("row", i+1)
		}
		dates[i] = d
	}
	return dates, nil
}

// ParseDate parses a portal date string into midnight UTC
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	// Bare numbers the layouts above reject are years or Unix timestamps,
	// never portal dates.
	if strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
		return time.Time{}, fmt.Errorf("%q is not a calendar date", s)
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDay(t), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeSentinels replaces every exact missing value token in the value
// columns with the null marker.
func (r *Reshaper) normalizeSentinels(rows [][]string) [][]cell {
	out := make([][]cell, len(rows))
	for i, row := range rows {
		cells := make([]cell, len(row)-1)
		for j, v := range row[1:] {
			_, missing := r.sentinels[v]
			cells[j] = cell{raw: v, missing: missing}
		}
		out[i] = cells
	}
	return out
}

// dropIncomplete removes every row holding at least one null. Order of the
// surviving rows is preserved.
func dropIncomplete(dates []time.Time, cells [][]cell) ([]time.Time, [][]cell, int) {
	keptDates := make([]time.Time, 0, len(dates))
	keptCells := make([][]cell, 0, len(cells))
	for i, row := range cells {
		if hasMissing(row) {
			continue
		}
		keptDates = append(keptDates, dates[i])
		keptCells = append(keptCells, row)
	}
	return keptDates, keptCells, len(dates) - len(keptDates)
}

func hasMissing(row []cell) bool {
	for _, c := range row {
		if c.missing {
			return true
		}
	}
	return false
}

// coerceNumeric parses every remaining cell as a finite float64.
func coerceNumeric(cells [][]cell, columns []string) ([][]float64, error) {
	values := make([][]float64, len(cells))
	for i, row := range cells {
		values[i] = make([]float64, len(row))
		for j, c := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(c.raw), 64)
			if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
				err = fmt.Errorf("non-finite value")
			}
			if err != nil {
				return nil, errors.NewDataShapeError(
					fmt.Sprintf("column %q: non-numeric value %q", columns[j], c.raw), err).
					WithContext("column", columns[j])
			}
			values[i][j] = v
		}
	}
	return values, nil
}
