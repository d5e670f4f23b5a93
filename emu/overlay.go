package emu

import (
	"image"
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Status overlay colors (palette indices)
const (
	overlayInk   = 15 // Bright white
	overlayPaper = 1  // Blue
)

// Overlay renders a one-line status message into the OSD rectangle of the
// frame buffer. The raster skips that rectangle while the overlay is
// shown, so the text only has to be drawn when it changes.
type Overlay struct {
	text  string
	dirty bool
	mask  *image.Alpha
}

// SetText changes the message. Drawing is deferred to the next Draw.
func (o *Overlay) SetText(s string) {
	if s != o.text {
		o.text = s
		o.dirty = true
	}
}

// Text returns the current message.
func (o *Overlay) Text() string {
	return o.text
}

// Invalidate forces the next Draw to repaint, e.g. after the frame buffer
// has been replaced.
func (o *Overlay) Invalidate() {
	o.dirty = true
}

// Draw paints the message into fb if it changed since the last call.
func (o *Overlay) Draw(fb *FrameBuffer, geom ScreenGeometry, palette [16]uint8) {
	if !o.dirty || fb == nil {
		return
	}
	o.dirty = false

	rect := geom.OSD
	width := (rect.LastCol - rect.FirstCol + 1) * 8
	height := rect.LastLine - rect.FirstLine + 1
	if o.mask == nil || o.mask.Bounds().Dx() != width || o.mask.Bounds().Dy() != height {
		o.mask = image.NewAlpha(image.Rect(0, 0, width, height))
	} else {
		clear(o.mask.Pix)
	}

	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  o.mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(2, face.Ascent+(height-face.Height)/2),
	}
	d.DrawString(clipText(o.text, (width-4)/face.Advance))

	ink := palette[overlayInk]
	paper := palette[overlayPaper]
	start := geom.LetterboxWords + rect.FirstCol*WordsPerColumn
	for y := 0; y < height; y++ {
		row := fb.Rows[rect.FirstLine+y]
		for w := 0; w < width/4; w++ {
			var word uint32
			for px := 0; px < 4; px++ {
				c := paper
				if o.mask.AlphaAt(w*4+px, y).A >= 0x80 {
					c = ink
				}
				word |= uint32(c) << (8 * px)
			}
			row[start+w] = word
		}
	}
}

// clipText cuts s to at most max cells without splitting a grapheme.
func clipText(s string, max int) string {
	if uniseg.StringWidth(s) <= max {
		return s
	}
	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > max {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	return b.String()
}
