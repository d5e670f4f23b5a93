package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emzx/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the Spectrum emulator.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emzx",
		ConsoleName:     "ZX Spectrum",
		Extensions:      []string{".rom", ".scr"},
		ScreenWidth:     emu.ScreenWidth,
		MaxScreenHeight: emu.MaxScreenHeight,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "Fire", ID: 4, DefaultKey: "J", DefaultPad: "A"},
			{Name: "Enter", ID: 5, DefaultKey: "Enter", DefaultPad: "Start"},
			{Name: "Space", ID: 6, DefaultKey: "Space", DefaultPad: "B"},
		},
		Players: 1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "aspect_16_9",
				Label:       "Widescreen Border",
				Description: "Use the 360x200 16:9 layout instead of 320x240",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
			{
				Key:         "status_overlay",
				Label:       "Status Overlay",
				Description: "Show machine and cheat status in the lower border",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
		},
		RDBName:       "Sinclair - ZX Spectrum",
		ThumbnailRepo: "Sinclair_-_ZX_Spectrum",
		DataDirName:   "emzx",
		ConsoleID:     59,
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
		SerializeSize: emu.SerializeSize(),
	}
}

// CreateEmulator creates a new emulator instance with the given image and region.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DetectRegion reports PAL: every Spectrum model emulated here is a PAL
// machine. The bool is true because no database lookup is needed.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emu.DefaultRegion(), true
}
