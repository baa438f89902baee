package dataprocessing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCalendarFeatures_ScenarioC(t *testing.T) {
	index := []time.Time{date("2024-01-02"), date("2024-01-05")} // Tuesday, Friday

	frame := BuildCalendarFeatures(index)

	assert.Equal(t, index, frame.Index)
	assert.Equal(t, []string{"day_5", "weekday_4"}, frame.Columns)
	assert.Equal(t, [][]float64{{0, 0}, {1, 1}}, frame.Values)
}

func TestBuildCalendarFeatures_Columns(t *testing.T) {
	index := []time.Time{
		date("2023-12-29"), // Fri, week 52
		date("2024-01-01"), // Mon, week 1
		date("2024-02-01"), // Thu, week 5
		date("2024-01-01"), // repeated date
	}

	frame := BuildCalendarFeatures(index)

	assert.Equal(t, []string{
		"day_29",
		"month_2", "month_12",
		"weekday_3", "weekday_4",
		"week_5", "week_52",
	}, frame.Columns)
	assert.Equal(t, 4, frame.Len())
}

func TestBuildCalendarFeatures_RowSums(t *testing.T) {
	var index []time.Time
	for d := date("2023-11-20"); d.Before(date("2024-03-10")); d = d.AddDate(0, 0, 3) {
		index = append(index, d)
	}

	frame := BuildCalendarFeatures(index)
	require.Equal(t, len(index), frame.Len())

	for _, prefix := range CalendarFamilyPrefixes() {
		var cols []int
		for j, c := range frame.Columns {
			if strings.HasPrefix(c, prefix+"_") {
				cols = append(cols, j)
			}
		}
		require.NotEmpty(t, cols, prefix)

		referenceRows := 0
		for i, row := range frame.Values {
			sum := 0.0
			for _, j := range cols {
				v := row[j]
				assert.True(t, v == 0 || v == 1, "row %d col %s", i, frame.Columns[j])
				sum += v
			}
			assert.LessOrEqual(t, sum, 1.0, "family %s row %d", prefix, i)
			if sum == 0 {
				referenceRows++
			}
		}
		// The reference category appears in the data, so some row sums to 0
		assert.Positive(t, referenceRows, prefix)
	}
}

func TestBuildCalendarFeatures_ReferenceIsSmallest(t *testing.T) {
	// Observed months 3, 1, 2: month_1 is the reference and never a column
	index := []time.Time{date("2024-03-15"), date("2024-01-15"), date("2024-02-15")}
	frame := BuildCalendarFeatures(index)

	assert.NotContains(t, frame.Columns, "month_1")
	assert.Contains(t, frame.Columns, "month_2")
	assert.Contains(t, frame.Columns, "month_3")

	m2, _ := frame.Column("month_2")
	m3, _ := frame.Column("month_3")
	assert.Equal(t, []float64{0, 0, 1}, m2)
	assert.Equal(t, []float64{1, 0, 0}, m3)
}

func TestBuildCalendarFeatures_WeekdayFromMonday(t *testing.T) {
	// Sunday maps to 6, Monday to 0
	frame := BuildCalendarFeatures([]time.Time{date("2024-01-08"), date("2024-01-07")})
	assert.Contains(t, frame.Columns, "weekday_6")
	assert.NotContains(t, frame.Columns, "weekday_0")
}

func TestBuildCalendarFeatures_Degenerate(t *testing.T) {
	empty := BuildCalendarFeatures(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Columns)

	single := BuildCalendarFeatures([]time.Time{date("2024-01-02")})
	assert.Equal(t, 1, single.Len())
	assert.Empty(t, single.Columns)
	assert.Equal(t, [][]float64{{}}, single.Values)
}
