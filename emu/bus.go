package emu

// ZXBus adapts Memory and ZXIO into the go-chip-z80 Bus interface.
type ZXBus struct {
	mem *Memory
	io  *ZXIO
}

// NewZXBus creates a new ZXBus bridging memory and I/O.
func NewZXBus(mem *Memory, io *ZXIO) *ZXBus {
	return &ZXBus{mem: mem, io: io}
}

func (b *ZXBus) Fetch(addr uint16) uint8      { return b.mem.Get(addr) }
func (b *ZXBus) Read(addr uint16) uint8       { return b.mem.Get(addr) }
func (b *ZXBus) Write(addr uint16, val uint8) { b.mem.Set(addr, val) }
func (b *ZXBus) In(port uint16) uint8         { return b.io.In(port) }
func (b *ZXBus) Out(port uint16, val uint8)   { b.io.Out(port, val) }
