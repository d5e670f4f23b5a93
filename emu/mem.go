package emu

import "hash/crc32"

const (
	romBankSize = 0x4000
	ramPageSize = 0x4000
	ramPages    = 8
)

// Paging register ($7FFD) bits on the 128K
const (
	pagingRAMMask = 0x07 // Page mapped at $C000-$FFFF
	pagingScreen  = 0x08 // Display page 7 instead of page 5
	pagingROM     = 0x10 // Select ROM bank 1
	pagingLock    = 0x20 // Ignore further writes until reset
)

// Memory implements the Spectrum memory map.
//
// 48K:
//
//	$0000-$3FFF: ROM
//	$4000-$7FFF: RAM page 5 (screen)
//	$8000-$BFFF: RAM page 2
//	$C000-$FFFF: RAM page 0
//
// 128K is identical except that $C000-$FFFF holds any of the eight pages,
// the ROM area holds one of two ROM banks and the screen can be read from
// page 5 or page 7, all selected through port $7FFD.
type Memory struct {
	machine Machine
	rom     [2][romBankSize]uint8
	ram     [ramPages][ramPageSize]uint8
	romCRC  uint32

	paging     uint8 // Last value written to $7FFD
	romBank    uint8
	topPage    uint8
	videoLatch bool // Screen is read from page 7
	locked     bool
}

// NewMemory creates the memory map for a machine. The ROM image is copied
// into the ROM banks; a 128K image holds both banks back to back.
func NewMemory(rom []byte, machine Machine) *Memory {
	m := &Memory{
		machine: machine,
		romCRC:  crc32.ChecksumIEEE(rom),
	}
	for i := range m.rom[0] {
		m.rom[0][i] = 0xFF
		m.rom[1][i] = 0xFF
	}
	n := copy(m.rom[0][:], rom)
	if n < len(rom) {
		copy(m.rom[1][:], rom[n:])
	}
	m.Reset()
	return m
}

// Reset restores the power-on paging state. RAM contents are kept.
func (m *Memory) Reset() {
	m.paging = 0
	m.romBank = 0
	m.topPage = 0
	m.videoLatch = false
	m.locked = false
}

// page returns the RAM page mapped at a 16K slot (1-3).
func (m *Memory) page(slot uint16) uint8 {
	switch slot {
	case 1:
		return 5
	case 2:
		return 2
	default:
		return m.topPage
	}
}

// Get reads a byte from the CPU address space
func (m *Memory) Get(addr uint16) uint8 {
	slot := addr >> 14
	if slot == 0 {
		return m.rom[m.romBank][addr]
	}
	return m.ram[m.page(slot)][addr&0x3FFF]
}

// Set writes a byte to the CPU address space. Writes to ROM are ignored.
func (m *Memory) Set(addr uint16, val uint8) {
	slot := addr >> 14
	if slot == 0 {
		return
	}
	m.ram[m.page(slot)][addr&0x3FFF] = val
}

// WritePaging handles a write to port $7FFD. It has no effect on the 48K
// or once the lock bit has been set.
func (m *Memory) WritePaging(val uint8) {
	if m.machine != Machine128K || m.locked {
		return
	}
	m.paging = val
	m.topPage = val & pagingRAMMask
	m.videoLatch = val&pagingScreen != 0
	m.romBank = (val & pagingROM) >> 4
	m.locked = val&pagingLock != 0
}

// restorePaging loads a saved paging register, ignoring the lock.
func (m *Memory) restorePaging(val uint8) {
	if m.machine != Machine128K {
		return
	}
	m.locked = false
	m.WritePaging(val)
}

// Paging returns the last value written to $7FFD.
func (m *Memory) Paging() uint8 {
	return m.paging
}

// VideoBank returns the RAM page the ULA is displaying.
func (m *Memory) VideoBank() []byte {
	if m.videoLatch {
		return m.ram[7][:]
	}
	return m.ram[5][:]
}

// PeekBank reads a byte from a RAM page regardless of paging.
func (m *Memory) PeekBank(page int, offset uint16) uint8 {
	return m.ram[page&0x07][offset&0x3FFF]
}

// PokeBank writes a byte into a RAM page regardless of paging.
func (m *Memory) PokeBank(page int, offset uint16, val uint8) {
	m.ram[page&0x07][offset&0x3FFF] = val
}

// RAMSize returns the amount of RAM visible to the machine.
func (m *Memory) RAMSize() int {
	if m.machine == Machine128K {
		return ramPages * ramPageSize
	}
	return 3 * ramPageSize
}

// GetROMCRC32 returns the CRC32 checksum of the loaded ROM.
// Used for save state verification to ensure states are loaded with the correct ROM.
func (m *Memory) GetROMCRC32() uint32 {
	return m.romCRC
}
