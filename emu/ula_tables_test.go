package emu

import (
	"testing"

	"github.com/go-test/deep"
)

// TestBuildPalette tests that colors are masked and get the sync bits.
func TestBuildPalette(t *testing.T) {
	p := BuildPalette(DefaultPalette, DefaultPixelFormat)
	for i, c := range p {
		if c&0xC0 != 0xC0 {
			t.Errorf("color %d: sync bits missing in 0x%02X", i, c)
		}
		if c&0x3F != DefaultPalette[i] {
			t.Errorf("color %d: expected 0x%02X, got 0x%02X", i, DefaultPalette[i], c&0x3F)
		}
	}

	narrow := BuildPalette(DefaultPalette, PixelFormat{Mask: 0x15, SyncBits: 0})
	if narrow[15] != 0x15 {
		t.Errorf("masked bright white: expected 0x15, got 0x%02X", narrow[15])
	}
}

// TestAluTable_RoundTrip tests that every packed word decodes back to the
// ink or paper chosen by the nibble bits.
func TestAluTable_RoundTrip(t *testing.T) {
	colors := BuildPalette(DefaultPalette, DefaultPixelFormat)
	alu := BuildAluTable(colors)

	for nibble := 0; nibble < 16; nibble++ {
		for attr := 0; attr < 256; attr++ {
			bright := 0
			if attr&0x40 != 0 {
				bright = 8
			}
			ink := colors[attr&0x07+bright]
			paper := colors[(attr>>3)&0x07+bright]

			word := alu[nibble][attr]
			for px := 0; px < 4; px++ {
				want := paper
				if nibble&(0x08>>px) != 0 {
					want = ink
				}
				got := uint8(word >> (8 * px))
				if got != want {
					t.Fatalf("nibble %X attr %02X pixel %d: expected 0x%02X, got 0x%02X",
						nibble, attr, px, want, got)
				}
			}
		}
	}
}

// TestAluTable_FlashIgnored tests that the flash bit does not change the
// table; flashing is applied by the raster.
func TestAluTable_FlashIgnored(t *testing.T) {
	alu := BuildAluTable(BuildPalette(DefaultPalette, DefaultPixelFormat))
	for nibble := 0; nibble < 16; nibble++ {
		for attr := 0; attr < 128; attr++ {
			if alu[nibble][attr] != alu[nibble][attr|0x80] {
				t.Fatalf("nibble %X attr %02X: flash bit changed the entry", nibble, attr)
			}
		}
	}
}

// TestBuildGeometry tests the bitmap and attribute offsets against the
// hardware address layout, and the border words.
func TestBuildGeometry(t *testing.T) {
	colors := BuildPalette(DefaultPalette, DefaultPixelFormat)
	g := BuildGeometry(colors)

	for y := 0; y < ScreenLines; y++ {
		bitmap := ((y & 0xC0) << 5) | ((y & 0x07) << 8) | ((y & 0x38) << 2)
		if int(g.Bitmap[y]) != bitmap {
			t.Errorf("line %d bitmap: expected 0x%04X, got 0x%04X", y, bitmap, g.Bitmap[y])
		}
		attr := 0x1800 + (y/8)*32
		if int(g.Attr[y]) != attr {
			t.Errorf("line %d attr: expected 0x%04X, got 0x%04X", y, attr, g.Attr[y])
		}
	}

	for i := 0; i < 8; i++ {
		for px := 0; px < 4; px++ {
			if got := uint8(g.Border[i] >> (8 * px)); got != colors[i] {
				t.Errorf("border %d byte %d: expected 0x%02X, got 0x%02X", i, px, colors[i], got)
			}
		}
	}
}

// TestBuildGeometry_Known tests a few well known screen addresses.
func TestBuildGeometry_Known(t *testing.T) {
	g := BuildGeometry(BuildPalette(DefaultPalette, DefaultPixelFormat))
	tests := []struct {
		line   int
		bitmap uint16
		attr   uint16
	}{
		{0, 0x0000, 0x1800},
		{1, 0x0100, 0x1800},
		{8, 0x0020, 0x1820},
		{63, 0x07E0, 0x18E0},
		{64, 0x0800, 0x1900},
		{191, 0x17E0, 0x1AE0},
	}
	for _, tc := range tests {
		got := []uint16{g.Bitmap[tc.line], g.Attr[tc.line]}
		want := []uint16{tc.bitmap, tc.attr}
		if diff := deep.Equal(got, want); diff != nil {
			t.Errorf("line %d: %v", tc.line, diff)
		}
	}
}

// TestDeviceToRGBA tests the conversion used for output.
func TestDeviceToRGBA(t *testing.T) {
	lut := DeviceToRGBA(DefaultPixelFormat)
	tests := []struct {
		in   uint8
		want [4]uint8
	}{
		{0xC0, [4]uint8{0x00, 0x00, 0x00, 0xFF}},
		{0xFF, [4]uint8{0xFF, 0xFF, 0xFF, 0xFF}},
		{0xC2, [4]uint8{0xAA, 0x00, 0x00, 0xFF}},
		{0xC8, [4]uint8{0x00, 0xAA, 0x00, 0xFF}},
		{0xE0, [4]uint8{0x00, 0x00, 0xAA, 0xFF}},
		{0x03, [4]uint8{0xFF, 0x00, 0x00, 0xFF}},
	}
	for _, tc := range tests {
		if lut[tc.in] != tc.want {
			t.Errorf("0x%02X: expected %v, got %v", tc.in, tc.want, lut[tc.in])
		}
	}
}
