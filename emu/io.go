package emu

// Keyboard half-row and bit of the keys reachable from the pad.
const (
	keyRowEnter = 6 // $BFFE: Enter, L, K, J, H
	keyRowSpace = 7 // $7FFE: Space, Symbol Shift, M, N, B
	keyBitFirst = 0x01
)

// Kempston joystick bits (active high)
const (
	kempstonRight = 0x01
	kempstonLeft  = 0x02
	kempstonDown  = 0x04
	kempstonUp    = 0x08
	kempstonFire  = 0x10
)

// Input holds keyboard and joystick state (directly usable as port values)
type Input struct {
	Rows     [8]uint8 // Keyboard half-rows, bits 0-4 active low
	Kempston uint8    // Port $1F
}

// ZXIO decodes the Spectrum I/O ports.
type ZXIO struct {
	ula   *ULA
	mem   *Memory
	Input *Input
}

func NewZXIO(ula *ULA, mem *Memory) *ZXIO {
	io := &ZXIO{
		ula:   ula,
		mem:   mem,
		Input: &Input{},
	}
	for i := range io.Input.Rows {
		io.Input.Rows[i] = 0x1F // All keys released
	}
	return io
}

func (e *ZXIO) In(port uint16) uint8 {
	// The ULA answers every even port
	if port&0x01 == 0 {
		return e.readKeyboard(uint8(port >> 8))
	}
	if port&0xFF == 0x1F {
		return e.Input.Kempston
	}
	// Nothing drives the bus: the CPU sees whatever the ULA is fetching
	return e.ula.FloatingBus()
}

func (e *ZXIO) Out(port uint16, value uint8) {
	if port&0x01 == 0 {
		e.ula.SetBorder(value & 0x07)
	}
	// $7FFD is decoded on A15 and A1 only
	if port&0x8002 == 0 {
		e.mem.WritePaging(value)
	}
}

// readKeyboard ANDs together every half-row whose select line (high address
// byte, active low) is pulled down. Bits 5 and 7 always read as 1 and bit 6
// is the EAR input, idle high.
func (e *ZXIO) readKeyboard(sel uint8) uint8 {
	keys := uint8(0x1F)
	for row := 0; row < 8; row++ {
		if sel&(1<<row) == 0 {
			keys &= e.Input.Rows[row]
		}
	}
	return 0xE0 | keys
}

// SetKempston updates the joystick port
func (i *Input) SetKempston(up, down, left, right, fire bool) {
	i.Kempston = 0
	if right {
		i.Kempston |= kempstonRight
	}
	if left {
		i.Kempston |= kempstonLeft
	}
	if down {
		i.Kempston |= kempstonDown
	}
	if up {
		i.Kempston |= kempstonUp
	}
	if fire {
		i.Kempston |= kempstonFire
	}
}

// SetKey presses or releases one key of the matrix
func (i *Input) SetKey(row int, bit uint8, pressed bool) {
	if pressed {
		i.Rows[row] &^= bit
	} else {
		i.Rows[row] |= bit
	}
}
