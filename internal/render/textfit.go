package render

import (
	"golang.org/x/image/font"
)

const (
	ellipsis = "…"

	// Average glyph width assumed when a face cannot be measured.
	estCharWidthPx = 7
)

// Measurer reports the advance width in pixels of s rendered with face.
type Measurer func(face font.Face, s string) (int, error)

// FaceMeasurer measures with the face's own metrics.
func FaceMeasurer(face font.Face, s string) (int, error) {
	return font.MeasureString(face, s).Ceil(), nil
}

// Fitter truncates strings to a pixel budget, appending an ellipsis when
// anything had to be cut.
type Fitter struct {
	Measure Measurer
}

func (f Fitter) measure(face font.Face, s string) int {
	m := f.Measure
	if m == nil {
		m = FaceMeasurer
	}
	w, err := m(face, s)
	if err != nil {
		return len([]rune(s)) * estCharWidthPx
	}
	return w
}

// Fit returns s unchanged when it fits within maxWidth pixels, otherwise
// the longest prefix of s that fits with "…" appended. When not even one
// rune fits, a bare "…" is returned so the row still signals hidden text.
func (f Fitter) Fit(s string, face font.Face, maxWidth int) string {
	if s == "" {
		return ""
	}
	if f.measure(face, s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	best := ""
	lo, hi := 0, len(runes)
	for lo <= hi {
		mid := (lo + hi) / 2
		cand := string(runes[:mid]) + ellipsis
		if f.measure(face, cand) <= maxWidth {
			best = cand
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == "" {
		return ellipsis
	}
	return best
}
