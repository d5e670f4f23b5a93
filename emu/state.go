package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/user-none/go-chip-z80"
)

const (
	stateVersion    = 1
	stateMagic      = "emzxSaveStat"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

// SerializeSize returns the total size in bytes needed for a save state.
// All eight RAM pages are stored on both machines so the size is fixed.
func SerializeSize() int {
	return stateHeaderSize + // 22
		z80.SerializeSize + // CPU state
		ramPages*ramPageSize + // RAM (128KB)
		1 + // paging register
		1 + // aspect
		ulaStateSize + // raster
		9 // keyboard rows (8) + Kempston (1)
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	size := SerializeSize()
	data := make([]byte, size)

	// Write header
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.mem.GetROMCRC32())

	offset := stateHeaderSize
	offset = e.serializeCPU(data, offset)
	offset = e.serializeMemory(data, offset)

	data[offset] = uint8(e.mode.Aspect)
	offset++

	offset = e.ula.serialize(data, offset)
	e.serializeInput(data, offset)

	// Data CRC over everything after the header
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores emulator state from a save state byte slice.
// The aspect ratio stored in the state replaces the current one.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize + z80.SerializeSize + ramPages*ramPageSize + 1
	aspect := Aspect(data[offset])
	if aspect != Aspect4x3 && aspect != Aspect16x9 {
		return errors.New("save state has an invalid aspect")
	}
	if aspect != e.mode.Aspect {
		if err := e.setMode(Mode{Machine: e.mode.Machine, Aspect: aspect}); err != nil {
			return err
		}
	}
	if err := e.ula.checkState(data, offset+1); err != nil {
		return err
	}

	offset = stateHeaderSize
	offset = e.deserializeCPU(data, offset)
	offset = e.deserializeMemory(data, offset)
	offset++ // aspect
	offset = e.ula.deserialize(data, offset)
	e.deserializeInput(data, offset)

	// RunFrame raises INT again if the restored position is inside the pulse
	e.intLine = false
	e.cpu.INT(false, 0xFF)
	e.overlay.Invalidate()
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	if len(data) < SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != e.mem.GetROMCRC32() {
		return errors.New("save state is for a different ROM")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// serializeCPU writes CPU state to the data buffer
func (e *Emulator) serializeCPU(data []byte, offset int) int {
	e.cpu.Serialize(data[offset:])
	return offset + z80.SerializeSize
}

// deserializeCPU reads CPU state from the data buffer
func (e *Emulator) deserializeCPU(data []byte, offset int) int {
	e.cpu.Deserialize(data[offset:])
	return offset + z80.SerializeSize
}

// serializeMemory writes the RAM pages and the paging register
func (e *Emulator) serializeMemory(data []byte, offset int) int {
	for p := range e.mem.ram {
		copy(data[offset:], e.mem.ram[p][:])
		offset += ramPageSize
	}
	data[offset] = e.mem.paging
	offset++
	return offset
}

// deserializeMemory reads the RAM pages and the paging register
func (e *Emulator) deserializeMemory(data []byte, offset int) int {
	for p := range e.mem.ram {
		copy(e.mem.ram[p][:], data[offset:offset+ramPageSize])
		offset += ramPageSize
	}
	e.mem.restorePaging(data[offset])
	offset++
	return offset
}

// serializeInput writes Input state to the data buffer
func (e *Emulator) serializeInput(data []byte, offset int) int {
	copy(data[offset:], e.io.Input.Rows[:])
	offset += len(e.io.Input.Rows)
	data[offset] = e.io.Input.Kempston
	offset++
	return offset
}

// deserializeInput reads Input state from the data buffer
func (e *Emulator) deserializeInput(data []byte, offset int) int {
	copy(e.io.Input.Rows[:], data[offset:offset+len(e.io.Input.Rows)])
	offset += len(e.io.Input.Rows)
	e.io.Input.Kempston = data[offset]
	offset++
	return offset
}
