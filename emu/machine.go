package emu

import (
	"fmt"

	emucore "github.com/user-none/eblitui/api"
)

// Region is an alias for emucore.Region. Every Spectrum model handled here
// is a PAL machine; the alias keeps the frontend contract intact.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// DefaultRegion returns PAL.
func DefaultRegion() Region {
	return RegionPAL
}

// Machine identifies the hardware variant being emulated.
type Machine int

const (
	Machine48K Machine = iota
	Machine128K
)

func (m Machine) String() string {
	switch m {
	case Machine48K:
		return "48K"
	case Machine128K:
		return "128K"
	default:
		return "Unknown"
	}
}

// Aspect selects the output geometry.
type Aspect int

const (
	Aspect4x3 Aspect = iota
	Aspect16x9
)

func (a Aspect) String() string {
	switch a {
	case Aspect4x3:
		return "4:3"
	case Aspect16x9:
		return "16:9"
	default:
		return "Unknown"
	}
}

// MachineTiming holds timing constants for a machine variant
type MachineTiming struct {
	CPUClockHz      int // Z80 clock frequency
	CyclesPerLine   int // T-states per scanline
	CyclesPerFrame  int // T-states per frame
	FPS             int // Frames per second
	InterruptLength int // T-states the frame interrupt is held
}

// 48K timing: 3.5 MHz, 312 lines of 224 t-states
var Timing48K = MachineTiming{
	CPUClockHz:      3500000,
	CyclesPerLine:   224,
	CyclesPerFrame:  69888,
	FPS:             50,
	InterruptLength: 32,
}

// 128K timing: 3.5469 MHz, 311 lines of 228 t-states
var Timing128K = MachineTiming{
	CPUClockHz:      3546900,
	CyclesPerLine:   228,
	CyclesPerFrame:  70908,
	FPS:             50,
	InterruptLength: 36,
}

// Rect is a region of the output expressed in scanlines and columns.
// Both ranges are inclusive.
type Rect struct {
	FirstLine, LastLine int
	FirstCol, LastCol   int
}

// Contains reports whether the given line and column fall inside r.
func (r Rect) Contains(line, col int) bool {
	return line >= r.FirstLine && line <= r.LastLine && col >= r.FirstCol && col <= r.LastCol
}

// ScreenGeometry describes the output frame for an aspect variant.
type ScreenGeometry struct {
	Width  int // Output pixels per line
	Height int // Output lines

	TopBorderEnd  int // First main screen line
	MainScreenEnd int // First bottom border line

	// LetterboxWords is the number of 4-pixel words skipped at the start of
	// every row before the raster starts writing.
	LetterboxWords int

	// OSD is the rectangle left untouched while the status overlay is
	// shown. It lies in the main screen for 16:9 and in the bottom border
	// for 4:3.
	OSD Rect
}

// Raster layout shared by every geometry.
const (
	ColumnsPerLine  = 40 // 4 t-states per column
	WordsPerColumn  = 2  // 8 pixels per column
	FirstScreenCol  = 4
	LastScreenCol   = 35
	ScreenLines     = 192
	ScreenBytes     = 32
	rasterLineWords = ColumnsPerLine * WordsPerColumn
)

// 4:3 geometry: 320x240 with 24 border lines above and below the screen
var Geometry4x3 = ScreenGeometry{
	Width:          320,
	Height:         240,
	TopBorderEnd:   24,
	MainScreenEnd:  216,
	LetterboxWords: 0,
	OSD:            Rect{FirstLine: 220, LastLine: 235, FirstCol: 21, LastCol: 38},
}

// 16:9 geometry: 360x200 with 4 border lines above and below the screen
var Geometry16x9 = ScreenGeometry{
	Width:          360,
	Height:         200,
	TopBorderEnd:   4,
	MainScreenEnd:  196,
	LetterboxWords: 5,
	OSD:            Rect{FirstLine: 176, LastLine: 191, FirstCol: 21, LastCol: 38},
}

// firstLineCycles is the cycle count after which output line 0 starts,
// indexed by machine then aspect. Each value puts column 4 of the first
// main screen line on the cycle the floating bus reports the first bitmap
// fetch.
var firstLineCycles = [2][2]int{
	Machine48K:  {Aspect4x3: 8944, Aspect16x9: 13424},
	Machine128K: {Aspect4x3: 8874, Aspect16x9: 13434},
}

// Mode is the complete display configuration: machine variant plus aspect.
type Mode struct {
	Machine Machine
	Aspect  Aspect
}

func (m Mode) String() string {
	return m.Machine.String() + " " + m.Aspect.String()
}

// Validate returns an error if the mode names an unknown variant.
func (m Mode) Validate() error {
	if m.Machine != Machine48K && m.Machine != Machine128K {
		return fmt.Errorf("unknown machine %d", int(m.Machine))
	}
	if m.Aspect != Aspect4x3 && m.Aspect != Aspect16x9 {
		return fmt.Errorf("unknown aspect %d", int(m.Aspect))
	}
	return nil
}

// Timing returns the timing constants for the mode's machine.
func (m Mode) Timing() MachineTiming {
	return GetTimingForMachine(m.Machine)
}

// Geometry returns the output geometry for the mode's aspect.
func (m Mode) Geometry() ScreenGeometry {
	if m.Aspect == Aspect16x9 {
		return Geometry16x9
	}
	return Geometry4x3
}

// FirstLineCycles returns the cycle count at which output line 0 begins.
func (m Mode) FirstLineCycles() int {
	return firstLineCycles[m.Machine][m.Aspect]
}

// GetTimingForMachine returns the appropriate timing constants
func GetTimingForMachine(machine Machine) MachineTiming {
	if machine == Machine128K {
		return Timing128K
	}
	return Timing48K
}

// DetectMachine picks the machine variant from the size of a ROM image.
// A 32KB image holds the two 128K ROM banks; anything else is treated as 48K.
func DetectMachine(rom []byte) Machine {
	if len(rom) == 2*romBankSize {
		return Machine128K
	}
	return Machine48K
}
