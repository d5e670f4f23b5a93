// Package cheats reads .pok cheat files and applies their pokes to the
// emulated memory.
//
// A .pok file is line oriented. A line starting with N names a new cheat,
// lines starting with M or Z each hold one poke of that cheat as four
// numbers (bank, address, value, original) and a line starting with Y ends
// the file. Bank 8 means the address is a plain CPU address; banks 0-7 name
// a 128K RAM page. A value of 256 asks the user for the value at runtime.
package cheats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/user-none/emzx/logger"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrNoCheats is returned for files without a single usable cheat.
	ErrNoCheats = errors.New("no cheats found")

	// ErrBadPoke is returned for poke lines that cannot be parsed.
	ErrBadPoke = errors.New("malformed poke")

	// errPokeRange marks a poke that parsed but names an impossible bank,
	// address or byte. Such pokes are skipped rather than failing the file.
	errPokeRange = errors.New("value out of range")
)

const (
	// InputValue in the value field marks a poke set by the user.
	InputValue = 256

	// NoBank addresses the CPU address space rather than a RAM page.
	NoBank = 8
)

// Poke is a single memory patch.
type Poke struct {
	Bank     int
	Address  uint16
	Value    uint8
	Original uint8
	Input    bool // Value is supplied by the user
}

// Cheat is a named group of pokes.
type Cheat struct {
	Name    string
	Pokes   []Poke
	Enabled bool

	saved    []uint8 // memory contents before the cheat was applied
	captured bool
}

// InputCount returns the number of pokes that need a user value.
func (c *Cheat) InputCount() int {
	n := 0
	for _, p := range c.Pokes {
		if p.Input {
			n++
		}
	}
	return n
}

// File is a parsed cheat file.
type File struct {
	Path   string
	cheats []Cheat
}

// Parse reads a cheat file. Cheats without pokes are dropped, and so are
// pokes whose numbers are out of range; those are logged.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	var cur *Cheat

	flush := func() {
		if cur != nil && len(cur.Pokes) > 0 {
			f.cheats = append(f.cheats, *cur)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		switch line[0] {
		case 'N':
			flush()
			cur = &Cheat{Name: decodeName(line[1:])}
		case 'M', 'Z':
			p, err := parsePoke(line[1:])
			if errors.Is(err, errPokeRange) {
				logger.Logf(logger.Allow, "cheats", "line %d: skipped: %v", lineNo, err)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if cur == nil {
				cur = &Cheat{}
			}
			cur.Pokes = append(cur.Pokes, p)
		case 'Y':
			flush()
			return f.finish()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cheats: %w", err)
	}

	flush()
	return f.finish()
}

func (f *File) finish() (*File, error) {
	if len(f.cheats) == 0 {
		return nil, ErrNoCheats
	}
	return f, nil
}

// parsePoke reads "bank address value original".
func parsePoke(s string) (Poke, error) {
	var bank, addr, value, orig int
	n, err := fmt.Sscan(s, &bank, &addr, &value, &orig)
	if err != nil || n != 4 {
		return Poke{}, fmt.Errorf("%w: %q", ErrBadPoke, strings.TrimSpace(s))
	}
	if bank < 0 || bank > NoBank || addr < 0 || addr > 0xFFFF ||
		value < 0 || value > InputValue || orig < 0 || orig > 0xFF {
		return Poke{}, fmt.Errorf("%w in %q", errPokeRange, strings.TrimSpace(s))
	}

	p := Poke{
		Bank:     bank,
		Address:  uint16(addr),
		Original: uint8(orig),
		Input:    value == InputValue,
	}
	if p.Input {
		p.Value = p.Original
	} else {
		p.Value = uint8(value)
	}
	return p, nil
}

// decodeName converts a Latin-1 cheat name to UTF-8.
func decodeName(raw string) string {
	name, err := charmap.ISO8859_1.NewDecoder().String(raw)
	if err != nil {
		name = raw
	}
	return strings.TrimSpace(name)
}

// Count returns the number of cheats.
func (f *File) Count() int {
	return len(f.cheats)
}

// Cheat returns a copy of cheat i.
func (f *File) Cheat(i int) (Cheat, bool) {
	if i < 0 || i >= len(f.cheats) {
		return Cheat{}, false
	}
	c := f.cheats[i]
	c.Pokes = append([]Poke(nil), c.Pokes...)
	c.saved = nil
	return c, true
}

// Name returns the name of cheat i.
func (f *File) Name(i int) string {
	if i < 0 || i >= len(f.cheats) {
		return ""
	}
	return f.cheats[i].Name
}

// Toggle flips the enabled state of cheat i and returns the result.
func (f *File) Toggle(i int) (Cheat, bool) {
	if i < 0 || i >= len(f.cheats) {
		return Cheat{}, false
	}
	f.cheats[i].Enabled = !f.cheats[i].Enabled
	return f.Cheat(i)
}

// Enabled returns the number of enabled cheats.
func (f *File) Enabled() int {
	n := 0
	for i := range f.cheats {
		if f.cheats[i].Enabled {
			n++
		}
	}
	return n
}

// Poke returns poke j of cheat i.
func (f *File) Poke(i, j int) (Poke, bool) {
	if i < 0 || i >= len(f.cheats) || j < 0 || j >= len(f.cheats[i].Pokes) {
		return Poke{}, false
	}
	return f.cheats[i].Pokes[j], true
}

// InputPoke returns the j-th user-valued poke of cheat i.
func (f *File) InputPoke(i, j int) (Poke, bool) {
	if i < 0 || i >= len(f.cheats) {
		return Poke{}, false
	}
	n := 0
	for _, p := range f.cheats[i].Pokes {
		if !p.Input {
			continue
		}
		if n == j {
			return p, true
		}
		n++
	}
	return Poke{}, false
}

// SetPokeValue sets the value of poke j of cheat i.
func (f *File) SetPokeValue(i, j int, value uint8) (Poke, bool) {
	if i < 0 || i >= len(f.cheats) || j < 0 || j >= len(f.cheats[i].Pokes) {
		return Poke{}, false
	}
	f.cheats[i].Pokes[j].Value = value
	return f.cheats[i].Pokes[j], true
}
