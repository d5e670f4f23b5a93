package emu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/go-chip-z80"

	"github.com/user-none/emzx/cheats"
	"github.com/user-none/emzx/logger"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Emulator)(nil)
var _ emucore.SaveStater = (*Emulator)(nil)
var _ emucore.BatterySaver = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)

const (
	ScreenWidth     = 360 // Widest geometry (16:9)
	MaxScreenHeight = 240 // Tallest geometry (4:3)
	sampleRate      = 48000
)

// ScreenDumpSize is the size of a raw .scr image: bitmap plus attributes.
const ScreenDumpSize = 6144 + 768

// Pad buttons beyond the directions
const (
	buttonFire  = 4
	buttonEnter = 5
	buttonSpace = 6
)

// How long transient overlay messages stay up
const messageFrames = 150

// ErrUnsupportedImage is returned for images that are neither a ROM nor a
// screen dump.
var ErrUnsupportedImage = errors.New("unsupported image size")

// screenViewerROM shows a screen dump: white border, then halt forever.
//
//	DI
//	LD A,7
//	OUT (0FEh),A
//	HALT
//	JR -3
var screenViewerROM = []byte{0xF3, 0x3E, 0x07, 0xD3, 0xFE, 0x76, 0x18, 0xFD}

// Emulator contains the emulator core components.
type Emulator struct {
	cpu *z80.CPU
	mem *Memory
	ula *ULA
	io  *ZXIO

	mode   Mode
	timing MachineTiming
	region Region

	// RGBA output converted from the device frame buffer
	rgba   []byte
	toRGBA [256][4]uint8

	overlay    Overlay
	showStatus bool
	message    string
	msgFrames  int

	cheatLib   *cheats.Library
	cheatFile  *cheats.File
	cheatPoker cheatTarget

	intLine bool

	// Pre-allocated audio buffer to avoid per-frame allocations
	audioBuffer []int16
}

// NewEmulator creates and initializes the emulator components. The image
// is a 16KB 48K ROM, a 32KB 128K ROM, or a 6912 byte screen dump which is
// shown on a 48K running a halt loop.
func NewEmulator(image []byte, region Region) (Emulator, error) {
	var rom, screen []byte
	switch len(image) {
	case romBankSize, 2 * romBankSize:
		rom = image
	case ScreenDumpSize:
		rom = screenViewerROM
		screen = image
	default:
		return Emulator{}, fmt.Errorf("%w: %d bytes", ErrUnsupportedImage, len(image))
	}

	machine := DetectMachine(rom)
	mem := NewMemory(rom, machine)
	ula := NewULA(mem)
	io := NewZXIO(ula, mem)
	bus := NewZXBus(mem, io)
	cpu := z80.New(bus)

	e := Emulator{
		cpu:    cpu,
		mem:    mem,
		ula:    ula,
		io:     io,
		region: region,
		toRGBA: DeviceToRGBA(DefaultPixelFormat),
		// ~960 stereo samples per frame at 48kHz/50fps
		audioBuffer: make([]int16, 0, 2048),
	}
	e.cheatPoker = cheatTarget{mem: mem}

	if err := e.setMode(Mode{Machine: machine, Aspect: Aspect4x3}); err != nil {
		return Emulator{}, err
	}
	if screen != nil {
		e.LoadScreen(screen)
	}

	lib, err := cheats.NewLibrary(afero.NewOsFs(), 8)
	if err != nil {
		return Emulator{}, err
	}
	e.cheatLib = lib

	logger.Logf(logger.Allow, "emu", "%s machine, ROM CRC %08X", machine, mem.GetROMCRC32())
	return e, nil
}

// setMode switches geometry and timing. A new frame buffer is allocated
// because the two geometries differ in size. The border color survives.
func (e *Emulator) setMode(mode Mode) error {
	border := e.ula.Border()
	geom := mode.Geometry()
	fb := NewFrameBuffer(geom, DefaultPixelFormat)
	if err := e.ula.Init(mode, fb); err != nil {
		return err
	}
	e.ula.SetBorder(border)
	e.ula.SetOverlay(e.showStatus)

	e.mode = mode
	e.timing = mode.Timing()
	e.rgba = make([]byte, geom.Width*geom.Height*4)
	e.overlay.Invalidate()
	return nil
}

// LoadScreen copies a screen dump into the display page.
func (e *Emulator) LoadScreen(data []byte) {
	for i := 0; i < len(data) && i < ScreenDumpSize; i++ {
		e.mem.PokeBank(5, uint16(i), data[i])
	}
}

// Reset performs a machine reset.
func (e *Emulator) Reset() {
	e.mem.Reset()
	e.cpu.Reset()
	e.intLine = false
	e.cpu.INT(false, 0xFF)
	if err := e.ula.Reset(e.mode); err != nil {
		logger.Logf(logger.Allow, "emu", "reset: %v", err)
	}
	e.ula.SetOverlay(e.showStatus)
	e.ula.SetCycles(0)
	e.overlay.Invalidate()
}

// setInterrupt drives the CPU INT line, only calling into the CPU on a change.
func (e *Emulator) setInterrupt(active bool) {
	if active != e.intLine {
		e.intLine = active
		e.cpu.INT(active, 0xFF)
	}
}

// runFrame executes CPU instructions until the frame's cycles are used,
// feeding every instruction's cycles to the raster.
func (e *Emulator) runFrame() {
	frame := e.timing.CyclesPerFrame
	for e.ula.Cycles() < frame {
		e.setInterrupt(e.ula.Cycles() < e.timing.InterruptLength)
		cycles := e.cpu.Step()
		if cycles <= 0 {
			// Halted with nothing to wake it this frame
			break
		}
		e.ula.Advance(cycles)
	}
	e.setInterrupt(false)

	// Catch the raster up with the end of the frame
	e.ula.Flush()
	e.ula.EndFrame()
}

// SetInput unpacks a button bitmask and sets joystick and key state.
func (e *Emulator) SetInput(player int, buttons uint32) {
	if player != 0 {
		return
	}
	up := buttons&(1<<emucore.ButtonUp) != 0
	down := buttons&(1<<emucore.ButtonDown) != 0
	left := buttons&(1<<emucore.ButtonLeft) != 0
	right := buttons&(1<<emucore.ButtonRight) != 0
	fire := buttons&(1<<buttonFire) != 0

	e.io.Input.SetKempston(up, down, left, right, fire)
	e.io.Input.SetKey(keyRowEnter, keyBitFirst, buttons&(1<<buttonEnter) != 0)
	e.io.Input.SetKey(keyRowSpace, keyBitFirst, buttons&(1<<buttonSpace) != 0)
}

// GetFramebuffer returns raw RGBA pixel data for current frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.rgba
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return e.mode.Geometry().Width * 4
}

// GetActiveHeight returns the current display height (240 or 200)
func (e *Emulator) GetActiveHeight() int {
	return e.mode.Geometry().Height
}

// GetRegion returns the emulator's region setting
func (e *Emulator) GetRegion() Region {
	return e.region
}

// SetRegion records the region. Spectrum timing does not depend on it.
func (e *Emulator) SetRegion(region Region) {
	e.region = region
}

// GetTiming returns FPS and scanline count for the current machine.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.CyclesPerFrame / e.timing.CyclesPerLine,
	}
}

// Mode returns the active display mode.
func (e *Emulator) Mode() Mode {
	return e.mode
}

// ULA returns the raster engine.
func (e *Emulator) ULA() *ULA {
	return e.ula
}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case "aspect_16_9":
		aspect := Aspect4x3
		if value == "true" {
			aspect = Aspect16x9
		}
		if aspect == e.mode.Aspect {
			return
		}
		if err := e.setMode(Mode{Machine: e.mode.Machine, Aspect: aspect}); err != nil {
			logger.Logf(logger.Allow, "emu", "aspect change: %v", err)
		}
	case "status_overlay":
		e.showStatus = value == "true"
		e.ula.SetOverlay(e.showStatus)
		e.overlay.Invalidate()
	case "cheats":
		e.loadCheats(value)
	case "cheat_toggle":
		i, err := strconv.Atoi(value)
		if err != nil {
			return
		}
		e.toggleCheat(i)
	case "cheat_value":
		// "cheat,poke,value"
		parts := strings.Split(value, ",")
		if len(parts) != 3 || e.cheatFile == nil {
			return
		}
		var n [3]int
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return
			}
			n[i] = v
		}
		e.cheatFile.SetPokeValue(n[0], n[1], uint8(n[2]))
	}
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// =============================================================================
// Cheats
// =============================================================================

// cheatTarget lets the cheat engine poke Spectrum memory.
type cheatTarget struct {
	mem *Memory
}

func (c cheatTarget) Peek(bank int, addr uint16) uint8 {
	if bank >= cheats.NoBank {
		return c.mem.Get(addr)
	}
	return c.mem.PeekBank(bank, addr)
}

func (c cheatTarget) Poke(bank int, addr uint16, value uint8) {
	if bank >= cheats.NoBank {
		c.mem.Set(addr, value)
		return
	}
	c.mem.PokeBank(bank, addr, value)
}

func (e *Emulator) loadCheats(path string) {
	if path == "" {
		e.cheatFile = nil
		return
	}
	f, err := e.cheatLib.Open(path)
	if err != nil {
		e.showMessage("NO CHEATS LOADED")
		return
	}
	e.cheatFile = f
	e.showMessage(fmt.Sprintf("%d CHEATS", f.Count()))
}

func (e *Emulator) toggleCheat(i int) {
	if e.cheatFile == nil {
		return
	}
	c, ok := e.cheatFile.Toggle(i)
	if !ok {
		return
	}
	if c.Enabled {
		e.showMessage("ON: " + c.Name)
	} else {
		e.cheatFile.Restore(i, e.cheatPoker)
		e.showMessage("OFF: " + c.Name)
	}
}

// =============================================================================
// Status overlay
// =============================================================================

func (e *Emulator) showMessage(msg string) {
	e.message = msg
	e.msgFrames = messageFrames
}

// videoFailedText is shown while the raster is disarmed by a failed mode
// change or reset.
const videoFailedText = "VIDEO INIT FAILED"

func (e *Emulator) statusText() string {
	if !e.ula.Ready() {
		return videoFailedText
	}
	if e.msgFrames > 0 {
		return e.message
	}
	s := e.mode.String()
	if e.cheatFile != nil {
		s += fmt.Sprintf(" CHEATS %d/%d", e.cheatFile.Enabled(), e.cheatFile.Count())
	}
	return s
}

func (e *Emulator) updateOverlay() {
	if e.msgFrames > 0 {
		e.msgFrames--
	}
	if !e.showStatus {
		return
	}
	e.overlay.SetText(e.statusText())
	e.overlay.Draw(e.ula.FrameBuffer(), e.mode.Geometry(), e.ula.Palette())
}

// =============================================================================
// Shared Emulation Methods
// =============================================================================

// RunFrame executes one frame of emulation.
func (e *Emulator) RunFrame() {
	e.runFrame()

	if e.cheatFile != nil {
		e.cheatFile.Apply(e.cheatPoker)
	}
	e.updateOverlay()
	e.convertFrame()

	// The beeper is not emulated; hand the frontend a frame of silence
	samples := sampleRate / e.timing.FPS
	e.audioBuffer = e.audioBuffer[:0]
	for i := 0; i < samples; i++ {
		e.audioBuffer = append(e.audioBuffer, 0, 0)
	}
}

// convertFrame expands the device frame buffer into RGBA.
func (e *Emulator) convertFrame() {
	fb := e.ula.FrameBuffer()
	geom := e.mode.Geometry()
	words := geom.Width / 4
	out := e.rgba
	i := 0
	for y := 0; y < geom.Height; y++ {
		row := fb.Rows[y]
		for w := 0; w < words; w++ {
			word := row[w]
			for px := 0; px < 4; px++ {
				c := &e.toRGBA[uint8(word>>(8*px))]
				out[i] = c[0]
				out[i+1] = c[1]
				out[i+2] = c[2]
				out[i+3] = c[3]
				i += 4
			}
		}
	}
}

// GetAudioSamples returns accumulated audio samples as 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// HasSRAM reports whether the machine has battery-backed RAM. It never does.
func (e *Emulator) HasSRAM() bool {
	return false
}

// GetSRAM returns nil; there is no SRAM.
func (e *Emulator) GetSRAM() []byte {
	return nil
}

// SetSRAM is a no-op; there is no SRAM.
func (e *Emulator) SetSRAM(data []byte) {}

// =============================================================================
// MemoryInspector interface
// =============================================================================

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read. Flat addresses are CPU addresses as currently paged:
// 0x0000-0xFFFF.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		if cur > 0xFFFF {
			return count
		}
		buf[i] = e.mem.Get(uint16(cur))
		count++
	}
	return count
}

// =============================================================================
// MemoryMapper interface
// =============================================================================

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: e.mem.RAMSize()},
	}
}

// systemPages returns the RAM pages that make up system RAM, in order.
func (e *Emulator) systemPages() []int {
	if e.mode.Machine == Machine128K {
		return []int{0, 1, 2, 3, 4, 5, 6, 7}
	}
	return []int{5, 2, 0}
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	if regionType != emucore.MemorySystemRAM {
		return nil
	}
	out := make([]byte, 0, e.mem.RAMSize())
	for _, p := range e.systemPages() {
		out = append(out, e.mem.ram[p][:]...)
	}
	return out
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	if regionType != emucore.MemorySystemRAM {
		return
	}
	for i, p := range e.systemPages() {
		start := i * ramPageSize
		if start >= len(data) {
			return
		}
		copy(e.mem.ram[p][:], data[start:])
	}
	e.ula.InvalidateBorderCache()
}
