// Command ulashot renders ZX Spectrum screen dumps to PNG files through the
// raster engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/user-none/emzx/emu"
	"github.com/user-none/emzx/logger"
	"github.com/user-none/emzx/romloader"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var errTerminal = errors.New("refusing to write PNG data to a terminal")

type styles struct {
	ok   lipgloss.Style
	fail lipgloss.Style
	dim  lipgloss.Style
}

func newStyles() styles {
	return styles{
		ok:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2)),
		fail: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
		dim:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
	}
}

// result is the outcome of rendering one input file.
type result struct {
	input  string
	output string
	err    error
}

func main() {
	machineFlag := flag.String("machine", "48k", "machine: 48k or 128k")
	aspectFlag := flag.String("aspect", "4:3", "aspect: 4:3 or 16:9")
	scale := flag.Int("scale", 2, "integer scale factor")
	flash := flag.Bool("flash", false, "draw flashing cells inverted")
	border := flag.Uint("border", 7, "border color 0-7")
	outDir := flag.String("o", ".", "output directory, or - for stdout with a single input")
	jobs := flag.Int("j", runtime.NumCPU(), "parallel renders")
	echoLog := flag.Bool("log", false, "echo raster log entries to stderr")
	flag.Parse()

	if *echoLog {
		logger.SetEcho(os.Stderr)
	}

	mode, err := parseMode(*machineFlag, *aspectFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if flag.NArg() == 0 || *scale < 1 {
		flag.Usage()
		os.Exit(2)
	}

	opts := renderOptions{mode: mode, border: uint8(*border & 7), flash: *flash, scale: *scale}

	if *outDir == "-" {
		if flag.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "stdout output takes exactly one input")
			os.Exit(2)
		}
		if term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, errTerminal)
			os.Exit(1)
		}
		if err := renderTo(os.Stdout, flag.Arg(0), opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	results := renderAll(context.Background(), flag.Args(), *outDir, opts, *jobs)
	if printSummary(os.Stderr, results, newStyles()) > 0 {
		os.Exit(1)
	}
}

// parseMode maps the command line names onto a display mode.
func parseMode(machine, aspect string) (emu.Mode, error) {
	var mode emu.Mode
	switch strings.ToLower(machine) {
	case "48k", "48":
		mode.Machine = emu.Machine48K
	case "128k", "128":
		mode.Machine = emu.Machine128K
	default:
		return mode, fmt.Errorf("unknown machine %q", machine)
	}
	switch aspect {
	case "4:3":
		mode.Aspect = emu.Aspect4x3
	case "16:9":
		mode.Aspect = emu.Aspect16x9
	default:
		return mode, fmt.Errorf("unknown aspect %q", aspect)
	}
	return mode, nil
}

// renderAll renders every input into outDir. Failures are reported per file
// and do not stop the other renders.
func renderAll(ctx context.Context, inputs []string, outDir string, opts renderOptions, jobs int) []result {
	results := make([]result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))

	for i, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = result{input: input, err: err}
				return nil
			}
			out := filepath.Join(outDir, outputName(input))
			results[i] = result{input: input, output: out, err: renderFile(input, out, opts)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// outputName replaces the input's extensions with .png.
func outputName(input string) string {
	base := filepath.Base(input)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base + ".png"
}

func renderFile(input, output string, opts renderOptions) error {
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := renderTo(f, input, opts); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	return f.Close()
}

func renderTo(w io.Writer, input string, opts renderOptions) error {
	data, _, err := romloader.LoadROM(input)
	if err != nil {
		return err
	}
	img, err := renderScreen(data, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// printSummary writes one styled line per input and returns the number of
// failures.
func printSummary(w io.Writer, results []result, st styles) int {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(w, "%s %s %s\n", st.fail.Render("FAIL"), r.input, st.dim.Render(r.err.Error()))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", st.ok.Render(" OK "), r.input, st.dim.Render("-> "+r.output))
	}
	fmt.Fprintf(w, "%d rendered, %d failed\n", len(results)-failed, failed)
	return failed
}
