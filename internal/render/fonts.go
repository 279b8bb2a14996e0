package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"picalendar/internal/log"
)

// FontSet holds one face per text role on the panel.
type FontSet struct {
	Title  font.Face // view titles
	Wide   font.Face // week+weather banner
	Medium font.Face // weekday header, weather lines
	Day    font.Face // day numbers, agenda day headers
	Small  font.Face // month cell event lines
	Line   font.Face // agenda event lines
	Body   font.Face // week+weather rows
}

// fallbackFonts substitutes the bitmap face for every role when the
// configured font file cannot be used. Small panels stay legible, just ugly.
func fallbackFonts() *FontSet {
	f := basicfont.Face7x13
	return &FontSet{Title: f, Wide: f, Medium: f, Day: f, Small: f, Line: f, Body: f}
}

// LoadFonts parses the TTF/TTC at path and builds the faces. A missing or
// unparsable file degrades to the built-in bitmap face instead of failing
// the render.
func LoadFonts(path string) *FontSet {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("font file unavailable, using builtin face", err, "path", path)
		return fallbackFonts()
	}
	fnt, err := parseFont(data)
	if err != nil {
		log.Warn("font parse failed, using builtin face", err, "path", path)
		return fallbackFonts()
	}
	face := func(size float64) font.Face {
		f, ferr := opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if ferr != nil {
			err = ferr
			return basicfont.Face7x13
		}
		return f
	}
	fs := &FontSet{
		Title:  face(26),
		Wide:   face(30),
		Medium: face(18),
		Day:    face(20),
		Small:  face(12),
		Line:   face(16),
		Body:   face(24),
	}
	if err != nil {
		log.Warn("font face creation failed, some roles use builtin face", err, "path", path)
	}
	return fs
}

func parseFont(data []byte) (*sfnt.Font, error) {
	if f, err := opentype.Parse(data); err == nil {
		return f, nil
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, err
	}
	if coll.NumFonts() == 0 {
		return nil, fmt.Errorf("font collection is empty")
	}
	return coll.Font(0)
}
