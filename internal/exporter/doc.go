// Package exporter writes extracted frames to disk.
//
// CSVWriter: CSV files with a UTF-8 BOM for Excel compatibility, values in the
// shortest form that reads back exactly and dates as 2006/01/02. Larger outputs can be
// streamed record by record through a StreamWriter.
//
// XLSXWriter: a single-sheet workbook with date cells and numeric values.
//
// Example usage:
//
//	paths := config.NewPaths(baseDir)
//	path, err := exporter.NewCSVWriter(paths).WriteFrame(ctx, "usd_2020_2024.csv", frame)
package exporter
