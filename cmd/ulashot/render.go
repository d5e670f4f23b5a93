package main

import (
	"fmt"
	"image"

	"github.com/user-none/emzx/emu"
	"golang.org/x/image/draw"
)

// screenPage is a display page holding a screen dump.
type screenPage []byte

// VideoBank implements emu.VideoMemory.
func (p screenPage) VideoBank() []byte {
	return p
}

// renderOptions controls how a screen dump is drawn.
type renderOptions struct {
	mode   emu.Mode
	border uint8
	flash  bool // draw flashing cells in their inverted phase
	scale  int
}

// renderScreen runs one full frame of the raster over a screen dump and
// returns it as an image scaled by opts.scale.
func renderScreen(data []byte, opts renderOptions) (*image.RGBA, error) {
	if len(data) != emu.ScreenDumpSize {
		return nil, fmt.Errorf("%w: %d bytes", emu.ErrUnsupportedImage, len(data))
	}
	page := make(screenPage, 0x4000)
	copy(page, data)

	geom := opts.mode.Geometry()
	fb := emu.NewFrameBuffer(geom, emu.DefaultPixelFormat)
	ula := emu.NewULA(page)
	if err := ula.Init(opts.mode, fb); err != nil {
		return nil, err
	}
	ula.SetBorder(opts.border)
	if opts.flash {
		ula.ToggleFlash()
	}
	ula.Flush()

	img := frameToImage(fb, geom)
	if opts.scale <= 1 {
		return img, nil
	}
	scaled := image.NewRGBA(image.Rect(0, 0, geom.Width*opts.scale, geom.Height*opts.scale))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	return scaled, nil
}

// frameToImage expands device pixels into RGBA.
func frameToImage(fb *emu.FrameBuffer, geom emu.ScreenGeometry) *image.RGBA {
	toRGBA := emu.DeviceToRGBA(emu.DefaultPixelFormat)
	img := image.NewRGBA(image.Rect(0, 0, geom.Width, geom.Height))
	for y := 0; y < geom.Height; y++ {
		i := y * img.Stride
		for _, word := range fb.Rows[y][:geom.Width/4] {
			for px := 0; px < 4; px++ {
				c := toRGBA[uint8(word>>(8*px))]
				copy(img.Pix[i:i+4], c[:])
				i += 4
			}
		}
	}
	return img
}
