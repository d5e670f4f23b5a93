package emu

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/user-none/emzx/logger"
)

// ErrVideoInit is returned when the raster cannot be (re)configured. The
// previous tables are discarded and the raster stays disarmed until a
// later Init succeeds.
var ErrVideoInit = errors.New("could not initialize video")

// Phase is the position of the raster within a frame. Every visible part
// of the frame has a wait phase, which accumulates cycles until the next
// line boundary, followed by a draw phase which emits that line.
type Phase int

const (
	PhaseBlank Phase = iota
	PhaseTopBorderWait
	PhaseTopBorder
	PhaseMainScreenWait
	PhaseMainScreen
	PhaseBottomBorderWait
	PhaseBottomBorder
)

func (p Phase) String() string {
	switch p {
	case PhaseBlank:
		return "Blank"
	case PhaseTopBorderWait:
		return "TopBorderWait"
	case PhaseTopBorder:
		return "TopBorder"
	case PhaseMainScreenWait:
		return "MainScreenWait"
	case PhaseMainScreen:
		return "MainScreen"
	case PhaseBottomBorderWait:
		return "BottomBorderWait"
	case PhaseBottomBorder:
		return "BottomBorder"
	default:
		return "Unknown"
	}
}

func (p Phase) waiting() bool {
	return p == PhaseTopBorderWait || p == PhaseMainScreenWait || p == PhaseBottomBorderWait
}

// drawVariant selects how a line is drawn. It is latched when a line
// starts so that showing or hiding the overlay never splits a line.
type drawVariant int

const (
	drawPlain   drawVariant = iota
	drawOverlay             // leaves the OSD rectangle untouched
)

// borderUnknown marks a Border Color Cache entry that must be repainted.
const borderUnknown = 8

// Flash attributes swap ink and paper every 16 frames.
const flashFrames = 16

// FrameBuffer is the destination of the raster. It is owned by the display
// side; each row holds 4 device pixels per word, leftmost pixel in the low
// byte.
type FrameBuffer struct {
	Rows   [][]uint32
	Format PixelFormat
}

// NewFrameBuffer allocates a frame buffer sized for a geometry.
func NewFrameBuffer(geom ScreenGeometry, format PixelFormat) *FrameBuffer {
	words := geom.Width / 4
	backing := make([]uint32, words*geom.Height)
	rows := make([][]uint32, geom.Height)
	for i := range rows {
		rows[i] = backing[i*words : (i+1)*words : (i+1)*words]
	}
	return &FrameBuffer{Rows: rows, Format: format}
}

// ULA is the raster engine. It turns elapsed CPU cycles into pixel words,
// lazily catching up with the CPU, and answers floating bus reads.
//
// Advance, Flush, SetBorder and SetOverlay must be called from a single
// goroutine. FloatingBus may be called from anywhere; it only reads the
// cycle counter (atomically) and tables that are rebuilt exclusively by
// Init and Reset.
type ULA struct {
	mem VideoMemory
	fb  *FrameBuffer

	mode      Mode
	timing    MachineTiming
	geom      ScreenGeometry
	floatBus  floatBusVariant
	firstLine int64
	ready     bool

	palette [16]uint8
	alu     *AluTable
	tables  *Geometry

	cycles atomic.Int64

	// Raster position
	phase  Phase
	line   int
	col    int
	target int64 // cycle count after which the next line starts
	rest   int   // cycles carried to the next draw call (always < 4)

	// Per line state, set when the line starts
	row       []uint32
	pos       int
	bmpOffset int
	attOffset int
	vram      []byte
	variant   drawVariant

	// Border Color Cache, one entry per output line
	lastBorder []uint8
	lineCached uint8
	lineBorder uint8
	lineMixed  bool

	border   uint8
	overlay  bool
	flashing uint8 // 0x80 while flashing cells are inverted
	frames   uint64
}

// NewULA creates a raster engine reading video data from mem. It stays
// disarmed until Init succeeds.
func NewULA(mem VideoMemory) *ULA {
	return &ULA{mem: mem}
}

// Init configures the engine for a mode and a frame buffer and sets the
// border to black.
func (u *ULA) Init(mode Mode, fb *FrameBuffer) error {
	if err := u.configure(mode, fb); err != nil {
		return err
	}
	u.border = 0
	return nil
}

// Reset reconfigures the engine for a mode, keeping the current frame
// buffer, and sets the border to white.
func (u *ULA) Reset(mode Mode) error {
	if err := u.configure(mode, u.fb); err != nil {
		return err
	}
	u.border = 7
	return nil
}

func (u *ULA) configure(mode Mode, fb *FrameBuffer) error {
	u.ready = false
	u.alu = nil
	u.tables = nil

	if err := checkFrameBuffer(mode, fb); err != nil {
		logger.Logf(logger.Allow, "ula", "init %s failed: %v", mode, err)
		return fmt.Errorf("%w: %v", ErrVideoInit, err)
	}

	geom := mode.Geometry()
	palette := BuildPalette(DefaultPalette, fb.Format)

	u.mode = mode
	u.fb = fb
	u.timing = mode.Timing()
	u.geom = geom
	u.floatBus = floatBusForMachine(mode.Machine)
	u.firstLine = int64(mode.FirstLineCycles())
	u.palette = palette
	u.alu = BuildAluTable(palette)
	u.tables = BuildGeometry(palette)

	u.lastBorder = make([]uint8, geom.Height)
	u.InvalidateBorderCache()

	u.phase = PhaseBlank
	u.line = 0
	u.col = 0
	u.rest = 0
	u.target = u.firstLine
	u.row = nil
	u.ready = true

	logger.Logf(logger.Allow, "ula", "mode %s (%dx%d)", mode, geom.Width, geom.Height)
	return nil
}

// checkFrameBuffer makes sure every row the raster can address exists.
func checkFrameBuffer(mode Mode, fb *FrameBuffer) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	if fb == nil {
		return errors.New("no frame buffer")
	}
	geom := mode.Geometry()
	if len(fb.Rows) < geom.Height {
		return fmt.Errorf("frame buffer has %d rows, need %d", len(fb.Rows), geom.Height)
	}
	need := geom.LetterboxWords + rasterLineWords
	for i := 0; i < geom.Height; i++ {
		if len(fb.Rows[i]) < need {
			return fmt.Errorf("row %d holds %d words, need %d", i, len(fb.Rows[i]), need)
		}
	}
	return nil
}

// InvalidateBorderCache forces every border line to be repainted. Call it
// after writing into the frame buffer from outside the raster.
func (u *ULA) InvalidateBorderCache() {
	for i := range u.lastBorder {
		u.lastBorder[i] = borderUnknown
	}
}

// Advance adds elapsed cycles to the counter and produces whatever output
// is due. At most one line is completed per call; any cycles beyond that
// stay in the counter and are picked up by the next call.
func (u *ULA) Advance(elapsed int) {
	now := u.cycles.Add(int64(elapsed))
	if !u.ready {
		return
	}

	switch u.phase {
	case PhaseBlank:
		u.blank(now)
	case PhaseTopBorderWait, PhaseMainScreenWait, PhaseBottomBorderWait:
		u.wait(now)
	case PhaseTopBorder, PhaseMainScreen, PhaseBottomBorder:
		u.draw(elapsed)
	}
}

// blank waits for the counter to wrap into a new frame.
func (u *ULA) blank(now int64) {
	if now < u.firstLine {
		u.line = 0
		u.target = u.firstLine
		u.phase = PhaseTopBorderWait
	}
}

// wait starts the next line once the counter passes its boundary.
func (u *ULA) wait(now int64) {
	if now <= u.target {
		return
	}

	u.rest = int(now - u.target)
	u.target += int64(u.timing.CyclesPerLine)
	u.row = u.fb.Rows[u.line]
	u.pos = u.geom.LetterboxWords
	u.col = 0
	u.variant = drawPlain
	if u.overlay {
		u.variant = drawOverlay
	}

	u.phase++
	switch u.phase {
	case PhaseMainScreen:
		y := u.line - u.geom.TopBorderEnd
		u.bmpOffset = int(u.tables.Bitmap[y])
		u.attOffset = int(u.tables.Attr[y])
		u.vram = u.mem.VideoBank()
	default:
		u.lineCached = u.lastBorder[u.line]
		u.lineBorder = u.border
		u.lineMixed = false
	}

	u.draw(0)
}

// draw emits one 8-pixel column per 4 cycles of budget.
func (u *ULA) draw(elapsed int) {
	budget := elapsed + u.rest
	u.rest = budget & 0x03

	units := budget >> 2
	if left := ColumnsPerLine - u.col; units > left {
		units = left
	}

	brd := u.tables.Border[u.border]
	if u.phase == PhaseMainScreen {
		u.drawScreen(units, brd)
	} else {
		u.drawBorder(units, brd)
	}

	if u.col == ColumnsPerLine {
		u.endLine()
	}
}

func (u *ULA) drawBorder(units int, brd uint32) {
	row := u.row
	for end := u.col + units; u.col < end; u.col++ {
		if u.variant == drawOverlay && u.geom.OSD.Contains(u.line, u.col) {
			u.pos += WordsPerColumn
			continue
		}
		if u.border != u.lineBorder {
			u.lineMixed = true
		}
		if u.border != u.lineCached {
			row[u.pos] = brd
			row[u.pos+1] = brd
		}
		u.pos += WordsPerColumn
	}
}

func (u *ULA) drawScreen(units int, brd uint32) {
	row, vram, alu := u.row, u.vram, u.alu
	for end := u.col + units; u.col < end; u.col++ {
		screen := u.col >= FirstScreenCol && u.col <= LastScreenCol

		if u.variant == drawOverlay && u.geom.OSD.Contains(u.line, u.col) {
			u.pos += WordsPerColumn
			if screen {
				u.bmpOffset++
				u.attOffset++
			}
			continue
		}

		if screen {
			att := vram[u.attOffset]
			bmp := vram[u.bmpOffset]
			u.attOffset++
			u.bmpOffset++
			if att&u.flashing != 0 {
				bmp = ^bmp
			}
			row[u.pos] = alu[bmp>>4][att]
			row[u.pos+1] = alu[bmp&0x0F][att]
		} else {
			row[u.pos] = brd
			row[u.pos+1] = brd
		}
		u.pos += WordsPerColumn
	}
}

// endLine moves to the wait phase of the following line.
func (u *ULA) endLine() {
	if u.phase != PhaseMainScreen {
		if u.lineMixed || u.variant == drawOverlay {
			u.lastBorder[u.line] = borderUnknown
		} else {
			u.lastBorder[u.line] = u.lineBorder
		}
	}

	u.line++
	u.row = nil

	switch u.phase {
	case PhaseTopBorder:
		if u.line == u.geom.TopBorderEnd {
			u.phase = PhaseMainScreenWait
		} else {
			u.phase = PhaseTopBorderWait
		}
	case PhaseMainScreen:
		if u.line == u.geom.MainScreenEnd {
			u.phase = PhaseBottomBorderWait
		} else {
			u.phase = PhaseMainScreenWait
		}
	case PhaseBottomBorder:
		if u.line == u.geom.Height {
			u.line = 0
			u.phase = PhaseBlank
		} else {
			u.phase = PhaseBottomBorderWait
		}
	}
}

// Flush runs the raster to the end of the frame one line at a time. It
// does nothing once the counter has reached the frame length. A raster
// lagging the counter by more lines than remain in the frame is left
// unfinished; it catches up during the next frame and draws the one after
// that completely.
func (u *ULA) Flush() {
	frame := int64(u.timing.CyclesPerFrame)
	for u.cycles.Load() < frame {
		u.Advance(u.timing.CyclesPerLine)
	}
}

// EndFrame wraps the counter into the next frame and advances the flash
// timer.
func (u *ULA) EndFrame() {
	u.cycles.Add(-int64(u.timing.CyclesPerFrame))
	u.frames++
	if u.frames%flashFrames == 0 {
		u.ToggleFlash()
	}
}

// ToggleFlash swaps ink and paper of every flashing cell from the next
// drawn column on.
func (u *ULA) ToggleFlash() {
	u.flashing ^= 0x80
}

// FlashActive reports whether flashing cells are currently inverted.
func (u *ULA) FlashActive() bool {
	return u.flashing != 0
}

// SetBorder sets the border color. It is used from the next border column
// drawn.
func (u *ULA) SetBorder(color uint8) {
	u.border = color & 0x07
}

// Border returns the current border color.
func (u *ULA) Border() uint8 {
	return u.border
}

// SetOverlay selects the draw variant for lines started from now on.
func (u *ULA) SetOverlay(visible bool) {
	if u.overlay == visible {
		return
	}
	u.overlay = visible
	u.InvalidateBorderCache()
}

// Overlay reports whether the OSD rectangle is being skipped.
func (u *ULA) Overlay() bool {
	return u.overlay
}

// SampleFloatingBus returns the byte the ULA is fetching at the given
// cycle count, or 0xFF outside the screen fetch windows.
func (u *ULA) SampleFloatingBus(cycles int) uint8 {
	if !u.ready {
		return 0xFF
	}
	return u.floatBus.sample(cycles, u.tables, u.mem.VideoBank())
}

// FloatingBus samples the floating bus at the current cycle count.
func (u *ULA) FloatingBus() uint8 {
	return u.SampleFloatingBus(int(u.cycles.Load()))
}

// Cycles returns the cumulative cycle counter for the current frame.
func (u *ULA) Cycles() int {
	return int(u.cycles.Load())
}

// SetCycles overwrites the cycle counter. The raster position is left
// alone; use it only at a frame boundary or when restoring state.
func (u *ULA) SetCycles(cycles int) {
	u.cycles.Store(int64(cycles))
}

// Phase returns the current raster phase.
func (u *ULA) Phase() Phase { return u.phase }

// Line returns the current output line.
func (u *ULA) Line() int { return u.line }

// Column returns the current column within the line.
func (u *ULA) Column() int { return u.col }

// Mode returns the active mode.
func (u *ULA) Mode() Mode { return u.mode }

// Ready reports whether the last Init or Reset succeeded.
func (u *ULA) Ready() bool { return u.ready }

// FrameBuffer returns the frame buffer the raster draws into.
func (u *ULA) FrameBuffer() *FrameBuffer { return u.fb }

// Palette returns the device colors of the active mode.
func (u *ULA) Palette() [16]uint8 { return u.palette }

// Alu returns the active ALU table.
func (u *ULA) Alu() *AluTable { return u.alu }

// Geometry returns the active offset and border tables.
func (u *ULA) Geometry() *Geometry { return u.tables }

// Frames returns the number of completed frames.
func (u *ULA) Frames() uint64 { return u.frames }
