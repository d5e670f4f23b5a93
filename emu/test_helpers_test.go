package emu

import (
	"flag"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/draw"
)

var (
	testImageDir    = flag.String("test_image_dir", "", "If set will generate images from tests to this directory")
	testImageScaler = flag.Float64("test_image_scaler", 1.0, "The amount to rescale the output PNGs")
)

// allModes lists every machine and aspect combination.
var allModes = []Mode{
	{Machine: Machine48K, Aspect: Aspect4x3},
	{Machine: Machine48K, Aspect: Aspect16x9},
	{Machine: Machine128K, Aspect: Aspect4x3},
	{Machine: Machine128K, Aspect: Aspect16x9},
}

// testVideo is a single 16K video bank.
type testVideo struct {
	bank [0x4000]byte
}

func (v *testVideo) VideoBank() []byte { return v.bank[:] }

// fillPattern gives every byte of the bank a value derived from its offset
// so that reads from the wrong offset show up.
func (v *testVideo) fillPattern() {
	for i := range v.bank {
		v.bank[i] = byte(i ^ (i >> 8) ^ (i >> 13))
	}
}

// newTestULA creates an initialized raster engine with its own frame
// buffer and video bank.
func newTestULA(t *testing.T, mode Mode) (*ULA, *testVideo) {
	t.Helper()
	vid := &testVideo{}
	u := NewULA(vid)
	fb := NewFrameBuffer(mode.Geometry(), DefaultPixelFormat)
	if err := u.Init(mode, fb); err != nil {
		t.Fatalf("Init(%s) failed: %v", mode, err)
	}
	return u, vid
}

// advanceTo feeds the raster single cycles until the counter reaches
// target, so that no line is ever skipped.
func advanceTo(u *ULA, target int) {
	for u.Cycles() < target {
		u.Advance(1)
	}
}

// createTestROM creates a 16KB 48K ROM (or 32KB 128K ROM when banks is 2)
// starting with the given program. The rest of the ROM is NOPs.
func createTestROM(banks int, program ...byte) []byte {
	rom := make([]byte, banks*romBankSize)
	copy(rom, program)
	return rom
}

// createTestEmulator returns an emulator running a 48K ROM that spins
// in a tight loop with interrupts disabled.
func createTestEmulator(t *testing.T) *Emulator {
	t.Helper()
	// DI; loop: JR loop
	e, err := NewEmulator(createTestROM(1, 0xF3, 0x18, 0xFE), RegionPAL)
	if err != nil {
		t.Fatalf("NewEmulator failed: %v", err)
	}
	return &e
}

// frameImage converts a frame buffer into an image.
func frameImage(fb *FrameBuffer) *image.NRGBA {
	lut := DeviceToRGBA(fb.Format)
	height := len(fb.Rows)
	width := 0
	if height > 0 {
		width = len(fb.Rows[0]) * 4
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y, row := range fb.Rows {
		for w, word := range row {
			for px := 0; px < 4; px++ {
				c := lut[uint8(word>>(8*px))]
				i := img.PixOffset(w*4+px, y)
				copy(img.Pix[i:i+4], c[:])
			}
		}
	}
	return img
}

// dumpFrame writes fb as a PNG when -test_image_dir is set.
func dumpFrame(t *testing.T, name string, fb *FrameBuffer) {
	t.Helper()
	if *testImageDir == "" {
		return
	}
	var img image.Image = frameImage(fb)
	if *testImageScaler != 1.0 {
		b := img.Bounds()
		d := image.NewNRGBA(image.Rect(0, 0, int(float64(b.Dx())**testImageScaler), int(float64(b.Dy())**testImageScaler)))
		draw.NearestNeighbor.Scale(d, d.Bounds(), img, b, draw.Over, nil)
		img = d
	}
	o, err := os.Create(filepath.Join(*testImageDir, name+".png"))
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()
	if err := png.Encode(o, img); err != nil {
		t.Fatal(err)
	}
}
