// Package caption draws a single line of text onto an image.
//
// Text is shaped with go-text/typesetting's HarfBuzz shaper, so kerning and
// ligatures apply, and the glyph outlines are rasterized with
// golang.org/x/image/vector. It is used to label preview snapshots.
package caption

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Face shapes and draws text in one font. A Face is not safe for concurrent
// use.
type Face struct {
	shapeFace *font.Face
	outlines  *sfnt.Font
	shaper    shaping.HarfbuzzShaper
	buf       sfnt.Buffer
}

// New parses a TrueType or OpenType font.
func New(ttf []byte) (*Face, error) {
	parsed, err := font.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("caption: parse font: %w", err)
	}
	outlines, err := sfnt.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("caption: parse outlines: %w", err)
	}
	return &Face{shapeFace: parsed, outlines: outlines}, nil
}

// Default returns a Face using Go Regular.
func Default() (*Face, error) {
	return New(goregular.TTF)
}

// Line is a shaped line of text.
type Line struct {
	glyphs []shaping.Glyph
	size   fixed.Int26_6

	// Advance is the pen advance of the whole line in pixels.
	Advance float64
	// Ascent and Descent are the line extents above and below the
	// baseline in pixels, both positive.
	Ascent, Descent float64
}

// Shape lays text out left to right at size pixels per em.
func (f *Face) Shape(text string, size float64) Line {
	runes := []rune(text)
	if len(runes) == 0 || size <= 0 {
		return Line{}
	}
	out := f.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      f.shapeFace,
		Size:      fixed.Int26_6(size * 64),
		Script:    scriptOf(runes),
		Language:  language.NewLanguage("en"),
	})
	return Line{
		glyphs:  out.Glyphs,
		size:    out.Size,
		Advance: fixedToFloat(out.Advance),
		Ascent:  fixedToFloat(out.LineBounds.Ascent),
		Descent: -fixedToFloat(out.LineBounds.Descent),
	}
}

// Draw fills the line's glyphs in col with the baseline starting at dot.
// Glyphs without an outline, such as spaces, only advance the pen.
func (f *Face) Draw(dst draw.Image, line Line, dot image.Point, col color.Color) error {
	if len(line.glyphs) == 0 {
		return nil
	}
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	ox := float32(dot.X - b.Min.X)
	oy := float32(dot.Y - b.Min.Y)

	var pen float32
	for _, g := range line.glyphs {
		gx := ox + pen + fixedToFloat32(g.XOffset)
		gy := oy - fixedToFloat32(g.YOffset)
		pen += fixedToFloat32(g.XAdvance)

		segments, err := f.outlines.LoadGlyph(&f.buf, sfnt.GlyphIndex(g.GlyphID), line.size, nil)
		if errors.Is(err, sfnt.ErrColoredGlyph) {
			continue
		}
		if err != nil {
			return fmt.Errorf("caption: glyph %d: %w", g.GlyphID, err)
		}
		addSegments(z, segments, gx, gy)
	}
	z.Draw(dst, b, image.NewUniform(col), image.Point{})
	return nil
}

// addSegments appends an outline to z. sfnt coordinates already grow
// downwards, so they only need translating to the glyph origin.
func addSegments(z *vector.Rasterizer, segments sfnt.Segments, x, y float32) {
	pt := func(p fixed.Point26_6) (float32, float32) {
		return x + float32(p.X)/64, y + float32(p.Y)/64
	}
	open := false
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(seg.Args[0]))
			open = true
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			dx, dy := pt(seg.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	if open {
		z.ClosePath()
	}
}

// scriptOf returns the script of the first letter, defaulting to Latin.
func scriptOf(runes []rune) language.Script {
	for _, r := range runes {
		if s := language.LookupScript(r); s != language.Common && s != language.Inherited && s != language.Unknown {
			return s
		}
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func fixedToFloat32(v fixed.Int26_6) float32 { return float32(v) / 64 }
