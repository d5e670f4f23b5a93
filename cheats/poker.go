package cheats

// Poker gives the cheat engine access to emulated memory. A bank of
// NoBank addresses the CPU address space; banks 0-7 address a RAM page
// directly with the address taken modulo 16K.
type Poker interface {
	Peek(bank int, addr uint16) uint8
	Poke(bank int, addr uint16, value uint8)
}

// Apply writes the pokes of every enabled cheat. The bytes they replace
// are remembered the first time a cheat is applied so that Restore can put
// them back.
func (f *File) Apply(p Poker) {
	for i := range f.cheats {
		c := &f.cheats[i]
		if !c.Enabled {
			continue
		}
		if !c.captured {
			c.saved = make([]uint8, len(c.Pokes))
			for j, pk := range c.Pokes {
				c.saved[j] = p.Peek(pk.Bank, pk.Address)
			}
			c.captured = true
		}
		for _, pk := range c.Pokes {
			p.Poke(pk.Bank, pk.Address, pk.Value)
		}
	}
}

// Restore puts back the bytes replaced by cheat i. Cheats that were never
// applied fall back to the original values stored in the file.
func (f *File) Restore(i int, p Poker) {
	if i < 0 || i >= len(f.cheats) {
		return
	}
	c := &f.cheats[i]
	// Restore in reverse so overlapping pokes end with the oldest byte
	for j := len(c.Pokes) - 1; j >= 0; j-- {
		pk := c.Pokes[j]
		v := pk.Original
		if c.captured {
			v = c.saved[j]
		}
		p.Poke(pk.Bank, pk.Address, v)
	}
	c.saved = nil
	c.captured = false
}
