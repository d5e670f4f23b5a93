package emu

import (
	"encoding/binary"
	"fmt"
)

// ulaStateSize is the size of the raster state inside a save state:
// cycles(8) target(8) frames(8) line(2) phase col rest border flashing
// variant.
const ulaStateSize = 32

// serialize writes the raster position and timers.
func (u *ULA) serialize(data []byte, offset int) int {
	binary.LittleEndian.PutUint64(data[offset:], uint64(u.cycles.Load()))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], uint64(u.target))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], u.frames)
	offset += 8
	binary.LittleEndian.PutUint16(data[offset:], uint16(u.line))
	offset += 2
	data[offset] = uint8(u.phase)
	data[offset+1] = uint8(u.col)
	data[offset+2] = uint8(u.rest)
	data[offset+3] = u.border
	data[offset+4] = u.flashing
	data[offset+5] = uint8(u.variant)
	return offset + 6
}

// checkState validates a serialized raster position against the active
// geometry so that a restored engine never indexes outside its tables.
func (u *ULA) checkState(data []byte, offset int) error {
	line := int(binary.LittleEndian.Uint16(data[offset+24:]))
	phase := Phase(data[offset+26])
	col := int(data[offset+27])
	rest := int(data[offset+28])

	if !u.ready {
		return fmt.Errorf("%w: raster not initialized", ErrVideoInit)
	}
	lo, hi := 0, u.geom.Height
	switch phase {
	case PhaseBlank:
	case PhaseTopBorderWait, PhaseTopBorder:
		hi = u.geom.TopBorderEnd
	case PhaseMainScreenWait, PhaseMainScreen:
		lo, hi = u.geom.TopBorderEnd, u.geom.MainScreenEnd
	case PhaseBottomBorderWait, PhaseBottomBorder:
		lo = u.geom.MainScreenEnd
	default:
		return fmt.Errorf("invalid raster phase %d", phase)
	}
	if line < lo || line >= hi {
		return fmt.Errorf("line %d out of range for %s", line, phase)
	}
	if col > ColumnsPerLine || (!phase.waiting() && phase != PhaseBlank && col == ColumnsPerLine) {
		return fmt.Errorf("column %d out of range for %s", col, phase)
	}
	if rest > 3 {
		return fmt.Errorf("invalid cycle remainder %d", rest)
	}
	if data[offset+31] > uint8(drawOverlay) {
		return fmt.Errorf("invalid draw variant %d", data[offset+31])
	}
	return nil
}

// deserialize restores the raster written by serialize. The data must
// have passed checkState.
func (u *ULA) deserialize(data []byte, offset int) int {
	u.cycles.Store(int64(binary.LittleEndian.Uint64(data[offset:])))
	offset += 8
	u.target = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	u.frames = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	u.line = int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	u.phase = Phase(data[offset])
	u.col = int(data[offset+1])
	u.rest = int(data[offset+2])
	u.border = data[offset+3] & 0x07
	u.flashing = data[offset+4] & 0x80
	u.variant = drawVariant(data[offset+5])
	offset += 6

	u.InvalidateBorderCache()
	u.resumeLine()
	return offset
}

// resumeLine rebuilds the per line state of a line interrupted by a
// restore.
func (u *ULA) resumeLine() {
	if u.phase == PhaseBlank || u.phase.waiting() {
		u.row = nil
		return
	}

	u.row = u.fb.Rows[u.line]
	u.pos = u.geom.LetterboxWords + u.col*WordsPerColumn
	if u.phase == PhaseMainScreen {
		y := u.line - u.geom.TopBorderEnd
		done := min(max(u.col-FirstScreenCol, 0), ScreenBytes)
		u.bmpOffset = int(u.tables.Bitmap[y]) + done
		u.attOffset = int(u.tables.Attr[y]) + done
		u.vram = u.mem.VideoBank()
		return
	}
	u.lineCached = borderUnknown
	u.lineBorder = u.border
	u.lineMixed = true
}
