//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"os"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/emzx/adapter"
	"github.com/user-none/emzx/logger"
)

// number of log entries shown when the frontend exits with an error
const tailOnError = 20

func main() {
	romPath := flag.String("rom", "", "path to ROM or .scr file (opens UI if not provided)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	wide := flag.Bool("aspect-16-9", false, "use the 360x200 widescreen layout")
	overlay := flag.Bool("overlay", false, "show the status overlay")
	cheatPath := flag.String("cheats", "", "path to a .pok cheat file")
	echoLog := flag.Bool("log", false, "echo emulator log entries to stderr")
	flag.Parse()

	if *echoLog {
		logger.SetEcho(os.Stderr)
	}

	factory := &adapter.Factory{}

	if *romPath != "" {
		options := map[string]string{}
		if *wide {
			options["aspect_16_9"] = "true"
		}
		if *overlay {
			options["status_overlay"] = "true"
		}
		if *cheatPath != "" {
			options["cheats"] = *cheatPath
		}
		if err := standalone.RunDirect(factory, *romPath, *regionFlag, options); err != nil {
			fatal(err, *echoLog)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		fatal(err, *echoLog)
	}
}

// fatal prints the end of the emulator log, unless it was already echoed,
// and exits.
func fatal(err error, echoed bool) {
	if !echoed {
		logger.Tail(os.Stderr, tailOnError)
	}
	log.Fatal(err)
}
