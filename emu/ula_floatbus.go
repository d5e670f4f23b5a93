package emu

// VideoMemory gives the raster and the floating bus access to the 16K RAM
// page currently latched for display.
type VideoMemory interface {
	VideoBank() []byte
}

// floatBusVariant holds the per-machine constants of the floating bus.
type floatBusVariant struct {
	cyclesPerLine int
	phaseOffset   int // added to the cycle count before any division
	firstLine     int // first line whose fetches carry screen data
	firstSlot     int // position within the 8-cycle fetch group of the first bitmap read
}

// Only the first 128 t-states of a line fetch screen data; the rest of the
// line is border and retrace.
const fetchCycles = 128

var (
	floatBus48K  = floatBusVariant{cyclesPerLine: 224, phaseOffset: 0, firstLine: 64, firstSlot: 3}
	floatBus128K = floatBusVariant{cyclesPerLine: 228, phaseOffset: 1, firstLine: 63, firstSlot: 0}
)

func floatBusForMachine(m Machine) floatBusVariant {
	if m == Machine128K {
		return floatBus128K
	}
	return floatBus48K
}

// sample returns the byte the ULA is fetching at the given cycle, or 0xFF
// when it is fetching nothing. Every fetch group of 8 t-states reads
// bitmap, attribute, bitmap+1, attribute+1 in four consecutive slots.
func (v *floatBusVariant) sample(cycles int, g *Geometry, vram []byte) uint8 {
	cycles += v.phaseOffset
	if cycles < 0 {
		return 0xFF
	}

	y := cycles/v.cyclesPerLine - v.firstLine
	if y < 0 || y >= ScreenLines {
		return 0xFF
	}

	h := cycles % v.cyclesPerLine
	if h >= fetchCycles {
		return 0xFF
	}

	slot := (h & 0x07) - v.firstSlot
	if slot < 0 || slot > 3 {
		return 0xFF
	}

	offset := (h - v.firstSlot) >> 2
	if slot >= 2 {
		offset++
	}

	if slot&1 == 0 {
		return vram[int(g.Bitmap[y])+offset]
	}
	return vram[int(g.Attr[y])+offset]
}
