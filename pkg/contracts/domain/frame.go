package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrIndexMismatch is returned when frames with different indexes are combined
	ErrIndexMismatch = errors.New("frame indexes differ")
	// ErrDuplicateColumn is returned when combining frames would repeat a column
	ErrDuplicateColumn = errors.New("duplicate column")
)

// Frame is a date-indexed table of float64 values stored row-major.
// Values[i][j] is the value of Columns[j] on Index[i].
type Frame struct {
	Index   []time.Time
	Columns []string
	Values  [][]float64
}

// NewFrame allocates a zero-filled frame
func NewFrame(index []time.Time, columns []string) *Frame {
	f := &Frame{
		Index:   append([]time.Time(nil), index...),
		Columns: append([]string(nil), columns...),
		Values:  make([][]float64, len(index)),
	}
	for i := range f.Values {
		f.Values[i] = make([]float64, len(columns))
	}
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// Width returns the number of columns
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

// ColumnIndex returns the position of name, or -1
func (f *Frame) ColumnIndex(name string) int {
	for j, c := range f.Columns {
		if c == name {
			return j
		}
	}
	return -1
}

// Column returns a copy of the named column
func (f *Frame) Column(name string) ([]float64, bool) {
	j := f.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(f.Values))
	for i, row := range f.Values {
		out[i] = row[j]
	}
	return out, true
}

// Clone returns a deep copy
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.Index, f.Columns)
	for i, row := range f.Values {
		copy(out.Values[i], row)
	}
	return out
}

// HStack returns a new frame with other's columns appended. Both frames must
// share the same index, element for element.
func (f *Frame) HStack(other *Frame) (*Frame, error) {
	if len(f.Index) != len(other.Index) {
		return nil, fmt.Errorf("%w: %d rows vs %d rows", ErrIndexMismatch, len(f.Index), len(other.Index))
	}
	for i := range f.Index {
		if !f.Index[i].Equal(other.Index[i]) {
			return nil, fmt.Errorf("%w: row %d is %s vs %s", ErrIndexMismatch, i,
				f.Index[i].Format(time.DateOnly), other.Index[i].Format(time.DateOnly))
		}
	}

	seen := make(map[string]struct{}, len(f.Columns))
	for _, c := range f.Columns {
		seen[c] = struct{}{}
	}
	for _, c := range other.Columns {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
	}

	columns := make([]string, 0, len(f.Columns)+len(other.Columns))
	columns = append(append(columns, f.Columns...), other.Columns...)
	out := NewFrame(f.Index, columns)
	for i := range out.Values {
		copy(out.Values[i], f.Values[i])
		copy(out.Values[i][len(f.Columns):], other.Values[i])
	}
	return out, nil
}
