package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bojfx/internal/config"
	"bojfx/internal/errors"
	"bojfx/internal/infrastructure"
	"bojfx/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Option configures a CSVWriter or XLSXWriter
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger export records are written to
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = infrastructure.WithComponent(o.logger, "exporter")
	return o
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance. Relative paths are placed
// in the output directory of paths.
func NewCSVWriter(paths *config.Paths, opts ...Option) *CSVWriter {
	o := buildOptions(opts)
	return &CSVWriter{paths: paths, logger: o.logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options and returns the
// path written.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	stream, err := w.createStream(filePath, options.Headers, options.BOMPrefix)
	if err != nil {
		return "", err
	}
	for i, record := range options.Records {
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return "", errors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", errors.NewStorageError("failed to flush CSV file", err)
	}
	return stream.path, nil
}

// WriteFrame writes a frame as date,col1,col2,... with values at full
// precision. The file starts with a UTF-8 BOM so spreadsheet tools pick up the
// Japanese column labels.
func (w *CSVWriter) WriteFrame(ctx context.Context, filePath string, frame *domain.Frame) (string, error) {
	stream, err := w.CreateStreamWriter(filePath, FrameHeader(frame))
	if err != nil {
		return "", err
	}

	for i := 0; i < frame.Len(); i++ {
		if err := stream.WriteRecord(FrameRecord(frame, i)); err != nil {
			stream.Close()
			return "", errors.NewStorageError(fmt.Sprintf("failed to write row %d", i), err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", errors.NewStorageError("failed to flush CSV file", err)
	}

	w.logger.InfoContext(ctx, "frame_exported",
		slog.String("format", "csv"),
		slog.String("path", stream.path),
		slog.Int("rows", frame.Len()),
		slog.Int("columns", frame.Width()))
	return stream.path, nil
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter creates a new streaming CSV writer with a UTF-8 BOM
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string) (*StreamWriter, error) {
	return w.createStream(filePath, headers, true)
}

func (w *CSVWriter) createStream(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, errors.NewStorageError("failed to create directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, errors.NewStorageError("failed to create file", err)
	}

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, errors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, errors.NewStorageError("failed to write headers", err)
		}
	}

	return &StreamWriter{path: fullPath, file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Path returns the resolved file path
func (s *StreamWriter) Path() string {
	return s.path
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// resolvePath keeps absolute paths and places relative ones in the output
// directory.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetOutputPath(filePath)
}
