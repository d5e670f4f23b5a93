package main

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user-none/emzx/emu"
	"github.com/user-none/emzx/logger"
)

// solidScreen returns a dump with every pixel set and one attribute.
func solidScreen(attr byte) []byte {
	data := make([]byte, emu.ScreenDumpSize)
	for i := 0; i < 6144; i++ {
		data[i] = 0xFF
	}
	for i := 6144; i < len(data); i++ {
		data[i] = attr
	}
	return data
}

func colorAt(t *testing.T, data []byte, opts renderOptions, x, y int) [4]uint8 {
	t.Helper()
	img, err := renderScreen(data, opts)
	if err != nil {
		t.Fatalf("renderScreen failed: %v", err)
	}
	i := img.PixOffset(x, y)
	return [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func paletteRGBA(index int) [4]uint8 {
	palette := emu.BuildPalette(emu.DefaultPalette, emu.DefaultPixelFormat)
	return emu.DeviceToRGBA(emu.DefaultPixelFormat)[palette[index]]
}

// TestRenderScreen tests border and screen pixels of a rendered dump.
func TestRenderScreen(t *testing.T) {
	mode := emu.Mode{Machine: emu.Machine48K, Aspect: emu.Aspect4x3}
	data := solidScreen(0x38) // black ink on white paper

	opts := renderOptions{mode: mode, border: 2, scale: 1}
	if got, want := colorAt(t, data, opts, 0, 0), paletteRGBA(2); got != want {
		t.Errorf("border: expected %v, got %v", want, got)
	}
	if got, want := colorAt(t, data, opts, 32, 24), paletteRGBA(0); got != want {
		t.Errorf("screen: expected %v, got %v", want, got)
	}
}

// TestRenderScreen_Flash tests that the flash option swaps ink and paper of
// flashing cells only.
func TestRenderScreen_Flash(t *testing.T) {
	mode := emu.Mode{Machine: emu.Machine128K, Aspect: emu.Aspect4x3}
	flashing := solidScreen(0x80 | 0x38)
	steady := solidScreen(0x38)

	opts := renderOptions{mode: mode, scale: 1}
	if got, want := colorAt(t, flashing, opts, 32, 24), paletteRGBA(0); got != want {
		t.Errorf("flash off: expected %v, got %v", want, got)
	}
	opts.flash = true
	if got, want := colorAt(t, flashing, opts, 32, 24), paletteRGBA(7); got != want {
		t.Errorf("flash on: expected %v, got %v", want, got)
	}
	if got, want := colorAt(t, steady, opts, 32, 24), paletteRGBA(0); got != want {
		t.Errorf("flash on, steady cell: expected %v, got %v", want, got)
	}
}

// TestRenderScreen_Sizes tests the output size per aspect and scale.
func TestRenderScreen_Sizes(t *testing.T) {
	tests := []struct {
		aspect emu.Aspect
		scale  int
		w, h   int
	}{
		{emu.Aspect4x3, 1, 320, 240},
		{emu.Aspect4x3, 2, 640, 480},
		{emu.Aspect16x9, 1, 360, 200},
		{emu.Aspect16x9, 3, 1080, 600},
	}
	data := solidScreen(0x07)
	for _, tc := range tests {
		opts := renderOptions{mode: emu.Mode{Aspect: tc.aspect}, scale: tc.scale}
		img, err := renderScreen(data, opts)
		if err != nil {
			t.Fatalf("%s x%d: renderScreen failed: %v", tc.aspect, tc.scale, err)
		}
		b := img.Bounds()
		if b.Dx() != tc.w || b.Dy() != tc.h {
			t.Errorf("%s x%d: expected %dx%d, got %dx%d", tc.aspect, tc.scale, tc.w, tc.h, b.Dx(), b.Dy())
		}
	}
}

// TestRenderScreen_BadSize tests rejection of data that is not a screen dump.
func TestRenderScreen_BadSize(t *testing.T) {
	_, err := renderScreen(make([]byte, 16384), renderOptions{scale: 1})
	if !errors.Is(err, emu.ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

// TestParseMode tests the command line mode names.
func TestParseMode(t *testing.T) {
	tests := []struct {
		machine, aspect string
		want            emu.Mode
		ok              bool
	}{
		{"48k", "4:3", emu.Mode{Machine: emu.Machine48K, Aspect: emu.Aspect4x3}, true},
		{"128K", "16:9", emu.Mode{Machine: emu.Machine128K, Aspect: emu.Aspect16x9}, true},
		{"128", "4:3", emu.Mode{Machine: emu.Machine128K, Aspect: emu.Aspect4x3}, true},
		{"+3", "4:3", emu.Mode{}, false},
		{"48k", "21:9", emu.Mode{}, false},
	}
	for _, tc := range tests {
		got, err := parseMode(tc.machine, tc.aspect)
		if (err == nil) != tc.ok {
			t.Errorf("%s %s: expected ok=%v, got error %v", tc.machine, tc.aspect, tc.ok, err)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("%s %s: expected %v, got %v", tc.machine, tc.aspect, tc.want, got)
		}
	}
}

// TestOutputName tests that every extension is replaced by .png.
func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"title.scr":         "title.png",
		"/a/b/title.scr.gz": "title.png",
		"noext":             "noext.png",
	}
	for in, want := range tests {
		if got := outputName(in); got != want {
			t.Errorf("outputName(%q): expected %q, got %q", in, want, got)
		}
	}
}

// TestRenderAll tests parallel rendering into a directory with a failing
// input mixed in.
func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for _, name := range []string{"a.scr", "b.scr", "c.scr"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, solidScreen(0x38), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		inputs = append(inputs, path)
	}
	bad := filepath.Join(dir, "bad.scr")
	if err := os.WriteFile(bad, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatalf("failed to write bad.scr: %v", err)
	}
	inputs = append(inputs, bad)

	outDir := t.TempDir()
	opts := renderOptions{mode: emu.Mode{}, scale: 1}
	results := renderAll(context.Background(), inputs, outDir, opts, 2)

	var buf bytes.Buffer
	if failed := printSummary(&buf, results, newStyles()); failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
	if !strings.Contains(buf.String(), "3 rendered, 1 failed") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}

	for _, r := range results[:3] {
		f, err := os.Open(r.output)
		if err != nil {
			t.Fatalf("%s: %v", r.input, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s: decode failed: %v", r.output, err)
		}
		if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
			t.Errorf("%s: expected 320x240, got %dx%d", r.output, b.Dx(), b.Dy())
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "bad.png")); !os.IsNotExist(err) {
		t.Errorf("failed render left an output file: %v", err)
	}
}

// TestRenderScreen_LogEcho tests that raster log entries reach the echo
// writer used by the -log flag.
func TestRenderScreen_LogEcho(t *testing.T) {
	var echo strings.Builder
	logger.SetEcho(&echo)
	defer logger.SetEcho(nil)

	mode := emu.Mode{Machine: emu.Machine128K, Aspect: emu.Aspect16x9}
	if _, err := renderScreen(solidScreen(0x38), renderOptions{mode: mode, scale: 1}); err != nil {
		t.Fatalf("renderScreen failed: %v", err)
	}
	if want := "ula: mode 128K 16:9 (360x200)"; !strings.Contains(echo.String(), want) {
		t.Errorf("expected %q in log, got:\n%s", want, echo.String())
	}
}
