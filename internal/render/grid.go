package render

import (
	"fmt"
	"time"
)

// WeekStart selects which weekday opens a grid row.
type WeekStart int

const (
	WeekStartSunday WeekStart = iota
	WeekStartMonday
)

// ParseWeekStart maps the config value; anything but "monday" means Sunday.
func ParseWeekStart(s string) WeekStart {
	if s == "monday" {
		return WeekStartMonday
	}
	return WeekStartSunday
}

// first returns the weekday that opens a row, as a time.Weekday.
func (ws WeekStart) first() time.Weekday {
	if ws == WeekStartMonday {
		return time.Monday
	}
	return time.Sunday
}

// BuildMonthGrid lays out a month as rows of seven day numbers, with 0 in
// cells that belong to the neighboring months. The row count is the minimum
// number of whole weeks covering the month.
func BuildMonthGrid(year int, month time.Month, ws WeekStart) [][]int {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(firstOfMonth.Weekday()) - int(ws.first()) + 7) % 7
	days := daysInMonth(year, month)

	rows := (offset + days + 6) / 7
	grid := make([][]int, rows)
	day := 1
	for r := range grid {
		row := make([]int, 7)
		for c := range row {
			cell := r*7 + c
			if cell >= offset && day <= days {
				row[c] = day
				day++
			}
		}
		grid[r] = row
	}
	return grid
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// GeometryError reports an internally inconsistent layout. It is not
// recoverable: a malformed grid means the builder itself is broken.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "render geometry: " + e.Reason
}

// validateGrid guards the compositor against rows of the wrong width.
func validateGrid(grid [][]int) error {
	if len(grid) == 0 {
		return &GeometryError{Reason: "month grid has no rows"}
	}
	for i, row := range grid {
		if len(row) != 7 {
			return &GeometryError{Reason: fmt.Sprintf("row %d has %d cells, want 7", i, len(row))}
		}
	}
	return nil
}

// monthGeometry computes the month view layout for a w x h panel. Cell
// widths divide evenly; the integer remainder is absorbed into the last
// column so the lattice still spans margin to margin.
type monthGeometry struct {
	marginX int
	marginY int
	headerY int // baseline-top of the weekday header
	lineY   int // underline below the header
	gridTop int
	cellW   int
	cellH   int
	rows    int
	right   int // right edge of the last column
}

func newMonthGeometry(w, h, rows int) (monthGeometry, error) {
	g := monthGeometry{
		marginX: 20,
		marginY: 5,
		rows:    rows,
	}
	g.headerY = g.marginY
	g.lineY = g.marginY + 25
	g.gridTop = g.lineY
	g.cellW = (w - 2*g.marginX) / 7
	g.right = w - g.marginX
	if rows <= 0 {
		return g, &GeometryError{Reason: "month grid has no rows"}
	}
	g.cellH = (h - g.gridTop - g.marginY) / rows
	if g.cellW <= 0 || g.cellH <= 0 {
		return g, &GeometryError{Reason: fmt.Sprintf("panel %dx%d too small for %d rows", w, h, rows)}
	}
	return g, nil
}

// colX returns the left edge of column c, 0-based.
func (g monthGeometry) colX(c int) int {
	return g.marginX + c*g.cellW
}

// colWidth returns the drawable width of column c; the last column soaks
// up the division remainder.
func (g monthGeometry) colWidth(c int) int {
	if c == 6 {
		return g.right - g.colX(6)
	}
	return g.cellW
}
