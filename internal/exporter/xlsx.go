package exporter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"bojfx/internal/config"
	"bojfx/internal/errors"
	"bojfx/pkg/contracts/domain"
)

// SheetName is the worksheet the frame is written to
const SheetName = "Sheet1"

// XLSXWriter exports frames as Excel workbooks
type XLSXWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook writer. Relative paths are placed in the
// output directory of paths.
func NewXLSXWriter(paths *config.Paths, opts ...Option) *XLSXWriter {
	o := buildOptions(opts)
	return &XLSXWriter{paths: paths, logger: o.logger}
}

// WriteFrame writes the frame to one sheet: dates as real date cells, values
// as numbers.
func (w *XLSXWriter) WriteFrame(ctx context.Context, filePath string, frame *domain.Frame) (string, error) {
	fullPath := filePath
	if !filepath.IsAbs(filePath) && w.paths != nil {
		fullPath = w.paths.GetOutputPath(filePath)
	}

	f := excelize.NewFile()
	defer f.Close()

	if idx, err := f.GetSheetIndex(SheetName); err != nil || idx == -1 {
		idx, err := f.NewSheet(SheetName)
		if err != nil {
			return "", errors.NewStorageError("failed to create sheet", err)
		}
		f.SetActiveSheet(idx)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return "", errors.NewStorageError("failed to create date style", err)
	}

	for i, h := range FrameHeader(frame) {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return "", errors.NewStorageError("failed to write header", err)
		}
	}

	for r := 0; r < frame.Len(); r++ {
		rowIdx := r + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetCellValue(SheetName, cell, frame.Index[r]); err != nil {
			return "", errors.NewStorageError("failed to write date", err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, dateStyle); err != nil {
			return "", errors.NewStorageError("failed to style date", err)
		}
		for c, v := range frame.Values[r] {
			cell, _ := excelize.CoordinatesToCellName(c+2, rowIdx)
			if err := f.SetCellFloat(SheetName, cell, v, -1, 64); err != nil {
				return "", errors.NewStorageError("failed to write value", err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", errors.NewStorageError("failed to create directory", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", errors.NewStorageError("failed to save workbook", err)
	}

	w.logger.InfoContext(ctx, "frame_exported",
		slog.String("format", "xlsx"),
		slog.String("path", fullPath),
		slog.Int("rows", frame.Len()),
		slog.Int("columns", frame.Width()))
	return fullPath, nil
}
