package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthGridSundayFirst(t *testing.T) {
	// September 2026 starts on a Tuesday and has 30 days.
	grid := BuildMonthGrid(2026, time.September, WeekStartSunday)

	require.Len(t, grid, 5)
	assert.Equal(t, []int{0, 0, 1, 2, 3, 4, 5}, grid[0])
	assert.Equal(t, []int{27, 28, 29, 30, 0, 0, 0}, grid[4])
}

func TestBuildMonthGridMondayFirst(t *testing.T) {
	// June 2026 starts on a Monday: no leading blanks.
	grid := BuildMonthGrid(2026, time.June, WeekStartMonday)

	require.Len(t, grid, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, grid[0])
}

func TestBuildMonthGridMinimalRows(t *testing.T) {
	// February 2026 starts on a Sunday, so 28 days pack into 4 rows.
	grid := BuildMonthGrid(2026, time.February, WeekStartSunday)
	assert.Len(t, grid, 4)
}

func TestBuildMonthGridCoversEveryDayOnce(t *testing.T) {
	for _, month := range []time.Month{time.January, time.February, time.July, time.December} {
		grid := BuildMonthGrid(2026, month, WeekStartSunday)
		seen := map[int]int{}
		for _, row := range grid {
			require.Len(t, row, 7)
			for _, day := range row {
				if day != 0 {
					seen[day]++
				}
			}
		}
		days := daysInMonth(2026, month)
		assert.Len(t, seen, days, "month %v", month)
		for d := 1; d <= days; d++ {
			assert.Equal(t, 1, seen[d], "month %v day %d", month, d)
		}
	}
}

func TestParseWeekStart(t *testing.T) {
	assert.Equal(t, WeekStartMonday, ParseWeekStart("monday"))
	assert.Equal(t, WeekStartSunday, ParseWeekStart("sunday"))
	assert.Equal(t, WeekStartSunday, ParseWeekStart(""))
	assert.Equal(t, WeekStartSunday, ParseWeekStart("tuesday"))
}

func TestValidateGrid(t *testing.T) {
	assert.NoError(t, validateGrid([][]int{{1, 2, 3, 4, 5, 6, 7}}))

	var geomErr *GeometryError
	err := validateGrid(nil)
	require.ErrorAs(t, err, &geomErr)

	err = validateGrid([][]int{{1, 2, 3}})
	require.ErrorAs(t, err, &geomErr)
	assert.Contains(t, err.Error(), "3 cells")
}

func TestMonthGeometryColumnsAreContiguous(t *testing.T) {
	g, err := newMonthGeometry(800, 480, 5)
	require.NoError(t, err)

	// Columns tile margin to margin with the remainder in the last column.
	x := g.marginX
	for c := 0; c < 7; c++ {
		assert.Equal(t, x, g.colX(c))
		x += g.colWidth(c)
	}
	assert.Equal(t, 800-g.marginX, x)
	assert.Positive(t, g.cellH)
}

func TestMonthGeometryRejectsImpossibleLayouts(t *testing.T) {
	var geomErr *GeometryError

	_, err := newMonthGeometry(800, 480, 0)
	require.ErrorAs(t, err, &geomErr)

	_, err = newMonthGeometry(40, 40, 6)
	require.ErrorAs(t, err, &geomErr)
}
