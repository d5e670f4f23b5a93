package emu

// PixelFormat describes the device pixel byte the raster writes. Color
// bits are kept by Mask and SyncBits are always set, so a device color is
// (raw & Mask) | SyncBits.
type PixelFormat struct {
	Mask     uint8
	SyncBits uint8
}

// DefaultPixelFormat is a 6-bit RGB222 layout with both sync bits held
// high in the top two bits.
var DefaultPixelFormat = PixelFormat{Mask: 0x3F, SyncBits: 0xC0}

// RGB222 channel layout of a raw color: red in bits 0-1, green in bits 2-3,
// blue in bits 4-5.
const (
	redShift   = 0
	greenShift = 2
	blueShift  = 4
)

// DefaultPalette holds the 16 Spectrum colors as raw RGB222 values.
// Entries 0-7 are normal intensity, 8-15 are bright.
var DefaultPalette = [16]uint8{
	// Normal: black, blue, red, magenta, green, cyan, yellow, white
	0x00, 0x20, 0x02, 0x22, 0x08, 0x28, 0x0A, 0x2A,
	// Bright
	0x00, 0x30, 0x03, 0x33, 0x0C, 0x3C, 0x0F, 0x3F,
}

// BuildPalette maps raw colors into the device pixel format.
func BuildPalette(raw [16]uint8, format PixelFormat) [16]uint8 {
	var out [16]uint8
	for i, c := range raw {
		out[i] = (c & format.Mask) | format.SyncBits
	}
	return out
}

// AluTable maps a bitmap nibble and an attribute byte to four packed device
// pixels. The leftmost pixel is in the least significant byte.
type AluTable [16][256]uint32

// BuildAluTable expands every (nibble, attribute) pair. Attribute bits 0-2
// are ink, bits 3-5 are paper and bit 6 selects the bright half of the
// palette for both. Bit 7 (flash) is applied by the raster, not here.
func BuildAluTable(colors [16]uint8) *AluTable {
	// Indexed directly by attr&0x78 (paper) and attr&0x47 (ink) so the
	// inner loop needs no shifting.
	var fast [128]uint8
	for i := 0; i < 8; i++ {
		fast[i] = colors[i]
		fast[i<<3] = colors[i]
		fast[i|0x40] = colors[i+8]
		fast[(i<<3)|0x40] = colors[i+8]
	}

	t := new(AluTable)
	for nibble := 0; nibble < 16; nibble++ {
		for attr := 0; attr < 256; attr++ {
			paper := fast[attr&0x78]
			ink := fast[attr&0x47]
			var word uint32
			for px := 0; px < 4; px++ {
				c := paper
				if nibble&(0x08>>px) != 0 {
					c = ink
				}
				word |= uint32(c) << (8 * px)
			}
			t[nibble][attr] = word
		}
	}
	return t
}

// ulaSwap converts a screen line into the line's position in the bitmap.
// The hardware interleaves lines in thirds of 64, each holding eight
// character rows of eight pixel lines.
func ulaSwap(y int) int {
	return (y & 0xC0) | ((y & 0x38) >> 3) | ((y & 0x07) << 3)
}

// Geometry holds the per-line memory offsets into the video bank and the
// replicated border words.
type Geometry struct {
	Bitmap [ScreenLines]uint16
	Attr   [ScreenLines]uint16
	Border [8]uint32
}

// attrBase is the offset of the attribute area in the video bank.
const attrBase = 0x1800

// BuildGeometry computes bitmap and attribute offsets for every screen line
// and the 4-pixel border word for each of the 8 border colors.
func BuildGeometry(colors [16]uint8) *Geometry {
	g := new(Geometry)
	for i := 0; i < ScreenLines; i++ {
		g.Bitmap[i] = uint16(ulaSwap(i) << 5)
		g.Attr[i] = uint16((i>>3)*ScreenBytes + attrBase)
	}
	for i := 0; i < 8; i++ {
		c := uint32(colors[i])
		g.Border[i] = c | c<<8 | c<<16 | c<<24
	}
	return g
}

// DeviceToRGBA builds a lookup from every device pixel byte to RGBA,
// ignoring the sync bits.
func DeviceToRGBA(format PixelFormat) [256][4]uint8 {
	var out [256][4]uint8
	for i := 0; i < 256; i++ {
		c := uint8(i) & format.Mask
		out[i] = [4]uint8{
			((c >> redShift) & 0x03) * 0x55,
			((c >> greenShift) & 0x03) * 0x55,
			((c >> blueShift) & 0x03) * 0x55,
			0xFF,
		}
	}
	return out
}
