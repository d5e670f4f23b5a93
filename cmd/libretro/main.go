package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emzx/adapter"
)

func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadA, BitID: 4},     // Kempston fire
		{RetroID: libretro.JoypadB, BitID: 6},     // Space
		{RetroID: libretro.JoypadStart, BitID: 5}, // Enter
	})
}

func main() {}
