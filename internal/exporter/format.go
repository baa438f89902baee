package exporter

import (
	"strconv"
	"time"

	"bojfx/pkg/contracts/domain"
)

// dateLayout is the portal's own date format
const dateLayout = "2006/01/02"

// formatFloat writes the shortest decimal that reads back as f, so
// four-decimal EUR/USD quotes keep their precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FrameHeader returns the export header: "date" followed by the columns
func FrameHeader(frame *domain.Frame) []string {
	return append([]string{"date"}, frame.Columns...)
}

// FrameRecord formats row i of frame as text
func FrameRecord(frame *domain.Frame, i int) []string {
	record := make([]string, 0, frame.Width()+1)
	record = append(record, formatDate(frame.Index[i]))
	for _, v := range frame.Values[i] {
		record = append(record, formatFloat(v))
	}
	return record
}
