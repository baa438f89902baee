package dataprocessing

import (
	"sort"
	"strconv"
	"time"

	"bojfx/pkg/contracts/domain"
)

// calendarFamily extracts one categorical calendar attribute from a date
type calendarFamily struct {
	prefix   string
	category func(time.Time) int
}

// Families in output column order. Weekday counts from Monday = 0.
var calendarFamilies = []calendarFamily{
	{prefix: "day", category: func(t time.Time) int { return t.Day() }},
	{prefix: "month", category: func(t time.Time) int { return int(t.Month()) }},
	{prefix: "weekday", category: func(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }},
	{prefix: "week", category: func(t time.Time) int { _, w := t.ISOWeek(); return w }},
}

// BuildCalendarFeatures one-hot encodes day of month, month, weekday and ISO
// week for every date in index. Only categories observed in index get a
// column, and the smallest observed category of each family is the
// reference category and gets none, so a row sums to 1 per family, or 0 when
// the row holds the reference category. Columns are named <family>_<value>
// in ascending value order and the frame shares index with the input.
func BuildCalendarFeatures(index []time.Time) *domain.Frame {
	type block struct {
		columns []string
		values  [][]float64
	}

	blocks := make([]block, 0, len(calendarFamilies))
	width := 0
	for _, fam := range calendarFamilies {
		cats := make([]int, len(index))
		seen := make(map[int]struct{})
		for i, t := range index {
			cats[i] = fam.category(t)
			seen[cats[i]] = struct{}{}
		}

		observed := make([]int, 0, len(seen))
		for c := range seen {
			observed = append(observed, c)
		}
		sort.Ints(observed)

		var b block
		if len(observed) > 1 {
			encoded := observed[1:]
			pos := make(map[int]int, len(encoded))
			for j, c := range encoded {
				pos[c] = j
				b.columns = append(b.columns, fam.prefix+"_"+strconv.Itoa(c))
			}
			b.values = make([][]float64, len(index))
			for i, c := range cats {
				b.values[i] = make([]float64, len(encoded))
				if j, ok := pos[c]; ok {
					b.values[i][j] = 1
				}
			}
		}
		width += len(b.columns)
		blocks = append(blocks, b)
	}

	columns := make([]string, 0, width)
	for _, b := range blocks {
		columns = append(columns, b.columns...)
	}

	frame := domain.NewFrame(index, columns)
	for i := range frame.Values {
		off := 0
		for _, b := range blocks {
			if len(b.columns) == 0 {
				continue
			}
			copy(frame.Values[i][off:], b.values[i])
			off += len(b.columns)
		}
	}
	return frame
}

// CalendarFamilyPrefixes returns the column prefixes in output order
func CalendarFamilyPrefixes() []string {
	out := make([]string, len(calendarFamilies))
	for i, f := range calendarFamilies {
		out[i] = f.prefix
	}
	return out
}
