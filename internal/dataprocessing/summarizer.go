package dataprocessing

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"bojfx/internal/errors"
	"bojfx/pkg/contracts/domain"
)

// Summarizer computes descriptive statistics over a cleaned series.
type Summarizer struct {
	logger     *slog.Logger
	dateFormat string
}

// ColumnSummary describes one numeric column
type ColumnSummary struct {
	Column string    `json:"column"`
	Count  int       `json:"count"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
	Min    float64   `json:"min"`
	Q25    float64   `json:"q25"`
	Median float64   `json:"median"`
	Q75    float64   `json:"q75"`
	Max    float64   `json:"max"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// CorrelationMatrix holds pairwise Pearson correlations. Values[i][j] is the
// correlation of Columns[i] with Columns[j].
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// NewSummarizer creates a summarizer
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger, dateFormat: "2006-01-02"}
}

// Describe summarizes every column of frame. An empty frame yields no
// summaries.
func (s *Summarizer) Describe(ctx context.Context, frame *domain.Frame) ([]ColumnSummary, error) {
	if frame.Len() == 0 {
		return []ColumnSummary{}, nil
	}

	summaries := make([]ColumnSummary, 0, frame.Width())
	for _, name := range frame.Columns {
		data, _ := frame.Column(name)
		summary, err := describeColumn(name, data)
		if err != nil {
			return nil, fmt.Errorf("describe column %s: %w", name, err)
		}
		summary.First = frame.Index[0]
		summary.Last = frame.Index[frame.Len()-1]
		summaries = append(summaries, summary)
	}

	s.logger.DebugContext(ctx, "described series",
		slog.Int("columns", len(summaries)),
		slog.Int("rows", frame.Len()))

	return summaries, nil
}

func describeColumn(name string, data []float64) (ColumnSummary, error) {
	sum := ColumnSummary{Column: name, Count: len(data)}
	var err error

	if sum.Mean, err = stats.Mean(data); err != nil {
		return sum, err
	}
	if len(data) > 1 {
		if sum.Std, err = stats.StandardDeviationSample(data); err != nil {
			return sum, err
		}
	}
	if sum.Min, err = stats.Min(data); err != nil {
		return sum, err
	}
	if sum.Max, err = stats.Max(data); err != nil {
		return sum, err
	}
	if sum.Median, err = stats.Median(data); err != nil {
		return sum, err
	}

	// stats.Percentile rejects small samples; the empirical quantile does not.
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	sum.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	sum.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return sum, nil
}

// Correlations returns the Pearson correlation matrix of frame's columns.
// Pairs involving a constant column are NaN.
func (s *Summarizer) Correlations(frame *domain.Frame) *CorrelationMatrix {
	n := frame.Width()
	cols := make([][]float64, n)
	for j, name := range frame.Columns {
		cols[j], _ = frame.Column(name)
	}

	m := &CorrelationMatrix{
		Columns: append([]string(nil), frame.Columns...),
		Values:  make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := stat.Correlation(cols[i], cols[j], nil)
			m.Values[i][j], m.Values[j][i] = c, c
		}
	}
	return m
}

// WriteCSV writes column summaries to a CSV file.
func (s *Summarizer) WriteCSV(ctx context.Context, path string, summaries []ColumnSummary) error {
	s.logger.InfoContext(ctx, "writing series summary to CSV",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for CSV output", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create CSV file for series summary", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"Column", "Count", "Mean", "Std", "Min", "Q25", "Median", "Q75", "Max", "First", "Last"}
	if err := writer.Write(header); err != nil {
		return errors.NewStorageError("failed to write CSV header row", err)
	}

	for _, sum := range summaries {
		row := []string{
			sum.Column,
			fmt.Sprintf("%d", sum.Count),
			fmt.Sprintf("%.4f", sum.Mean),
			fmt.Sprintf("%.4f", sum.Std),
			fmt.Sprintf("%.4f", sum.Min),
			fmt.Sprintf("%.4f", sum.Q25),
			fmt.Sprintf("%.4f", sum.Median),
			fmt.Sprintf("%.4f", sum.Q75),
			fmt.Sprintf("%.4f", sum.Max),
			sum.First.Format(s.dateFormat),
			sum.Last.Format(s.dateFormat),
		}
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError("failed to write CSV data row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.NewStorageError("failed to flush CSV output", err)
	}
	return nil
}

// WriteJSON writes column summaries and the correlation matrix to a JSON
// file with metadata.
func (s *Summarizer) WriteJSON(ctx context.Context, path string, summaries []ColumnSummary, corr *CorrelationMatrix) error {
	s.logger.InfoContext(ctx, "writing series summary to JSON",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for JSON output", err)
	}

	jsonData := map[string]interface{}{
		"columns":      summaries,
		"count":        len(summaries),
		"generated_at": time.Now().Format(time.RFC3339),
		"format":       "series_summary_v1",
	}
	if corr != nil {
		jsonData["correlations"] = jsonSafeMatrix(corr)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create JSON file for series summary", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(jsonData); err != nil {
		return errors.NewStorageError("failed to encode series summary to JSON", err)
	}
	return nil
}

// jsonSafeMatrix replaces NaN entries, which encoding/json rejects, with nil.
func jsonSafeMatrix(m *CorrelationMatrix) map[string]interface{} {
	values := make([][]interface{}, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			values[i][j] = v
		}
	}
	return map[string]interface{}{"columns": m.Columns, "values": values}
}
