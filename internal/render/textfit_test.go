package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// fixedMeasurer pretends every rune is 10 px wide.
func fixedMeasurer(_ font.Face, s string) (int, error) {
	return len([]rune(s)) * 10, nil
}

func TestFitReturnsShortStringsUnchanged(t *testing.T) {
	f := Fitter{Measure: fixedMeasurer}
	assert.Equal(t, "hello", f.Fit("hello", basicfont.Face7x13, 50))
	assert.Equal(t, "", f.Fit("", basicfont.Face7x13, 50))
}

func TestFitTruncatesWithEllipsis(t *testing.T) {
	f := Fitter{Measure: fixedMeasurer}

	got := f.Fit("hello world", basicfont.Face7x13, 60)
	// 5 runes of prefix + the ellipsis fill the 60 px budget exactly.
	assert.Equal(t, "hello…", got)

	w, _ := fixedMeasurer(basicfont.Face7x13, got)
	assert.LessOrEqual(t, w, 60)
}

func TestFitIsIdempotent(t *testing.T) {
	f := Fitter{Measure: fixedMeasurer}
	once := f.Fit("some fairly long event title", basicfont.Face7x13, 90)
	assert.Equal(t, once, f.Fit(once, basicfont.Face7x13, 90))
}

func TestFitFallsBackToBareEllipsis(t *testing.T) {
	f := Fitter{Measure: fixedMeasurer}
	// Budget too small for even one rune plus the ellipsis.
	assert.Equal(t, "…", f.Fit("hello", basicfont.Face7x13, 5))
}

func TestFitEstimatesWhenMeasurementFails(t *testing.T) {
	broken := func(_ font.Face, _ string) (int, error) {
		return 0, errors.New("no metrics")
	}
	f := Fitter{Measure: broken}

	// 10 runes at the 7 px estimate is 70 px, inside the budget.
	assert.Equal(t, "ten runes!", f.Fit("ten runes!", basicfont.Face7x13, 70))

	got := f.Fit("a much longer string than fits", basicfont.Face7x13, 70)
	assert.LessOrEqual(t, len([]rune(got))*estCharWidthPx, 70)
	assert.Contains(t, got, ellipsis)
}

func TestFitHandlesMultibyteRunes(t *testing.T) {
	f := Fitter{Measure: fixedMeasurer}
	got := f.Fit("주간 회의 일정", basicfont.Face7x13, 40)
	// Truncation must cut at rune boundaries.
	assert.Equal(t, "주간 …", got)
}
