// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	nl "github.com/mlnoga/polarlight/internal"
	"github.com/mlnoga/polarlight/internal/fits"
	"github.com/mlnoga/polarlight/internal/ops"
	"github.com/mlnoga/polarlight/internal/rest"
	"github.com/mlnoga/polarlight/internal/sensor"
	"github.com/mlnoga/polarlight/internal/synth"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var configFile = flag.String("config", "", "read sensor, pipeline and output settings from JSON `file`. Flags given explicitly take precedence")

var height = flag.Int("height", sensor.IMX250MZRHeight, "sensor height in pixels, for raw input")
var width = flag.Int("width", sensor.IMX250MZRWidth, "sensor width in pixels, for raw input")
var bitDepth = flag.Int("bitdepth", sensor.IMX250MZRBitDepth, "sensor bit depth, 8 or 12. Raw input is detected from the buffer size, FITS input from the BITDEPTH header key")
var scale16 = flag.Bool("scale16", false, "divide FITS and TIFF input values by 16, for 16-bit stretched captures of a 12-bit sensor")

var out = flag.String("out", "", "save synthetic frame to `file` (.raw or .fits). Also the base name for the log file")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var split = flag.String("split", "", "save orientation grids with given filename pattern, e.g. `split%d_%s.fits`")
var dolp = flag.String("dolp", "", "save DoLP map with given filename pattern, e.g. `dolp%d.fits`. Suffix .png, .jpg or .tif selects a preview")
var aolp = flag.String("aolp", "", "save AoLP map with given filename pattern, e.g. `aolp%d.fits`")
var snr = flag.String("snr", "", "save SNR(DoLP) map with given filename pattern, e.g. `snr%d.fits`")
var stokes = flag.String("stokes", "", "save Stokes parameters with given filename pattern, e.g. `stokes%d_%s.fits`")
var pngs = flag.String("png", "", "save color-mapped DoLP and AoLP with given filename pattern, e.g. `map%d_%s.png`")
var pdf = flag.String("pdf", "", "save histogram report with given filename pattern, e.g. `report%d.pdf`")
var html = flag.String("html", "", "save interactive histograms with given filename pattern, e.g. `report%d.html`")

var halfRes = flag.Bool("halfres", false, "compute maps directly from the orientation grids, at half resolution")
var withSNR = flag.Bool("withSNR", true, "compute the SNR of the DoLP")
var mask = flag.Bool("mask", true, "mask pixels where any orientation is at or above 85% of full scale")
var maxDoLP = flag.Float64("maxdolp", 100, "upper end of the DoLP display range in percent")
var bins = flag.Int("bins", 256, "number of histogram bins for the DoLP mode estimate")
var threads = flag.Int("threads", 0, "maximum number of frames processed in parallel, 0=auto")

var intensity = flag.Float64("intensity", 2000, "synth: total intensity S0 in ADU")
var synthDoLP = flag.Float64("synthDoLP", 30, "synth: degree of linear polarization in percent")
var synthAoLP = flag.Float64("synthAoLP", 30, "synth: angle of linear polarization in degrees")
var aolpSlope = flag.Float64("aolpSlope", 0, "synth: additional AoLP in degrees per column")
var noise = flag.Bool("noise", true, "synth: add Poisson shot noise")
var seed = flag.Uint("seed", 1, "synth: random seed")

var addr = flag.String("addr", ":8080", "serve: listen on given address")
var chroot = flag.String("chroot", "", "serve: chroot to given directory before serving")
var setuid = flag.Int("setuid", -1, "serve: set user id before serving, -1=don't")

// Contents of the -config file
type config struct {
	Sensor   sensor.Geometry    `json:"sensor"`
	Pipeline ops.PipelineConfig `json:"pipeline"`
	Outputs  ops.Outputs        `json:"outputs"`
}

func main() {
	logWriter := nl.LogWriter()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Polarlight Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (stats|polarize|split|stokes|synth|report|serve|legal|version) (img0.raw ... imgn.raw)

Commands:
  stats    Show frame statistics and the dominant degree of polarization
  polarize Compute DoLP, AoLP and SNR maps and save them
  split    Split frames into four orientation FITS files
  stokes   Compute maps from four orientation FITS files, as written by split
  synth    Write a synthetic frame of partially polarized light to -out
  report   Save PDF and HTML histogram reports
  serve    Serve the REST API
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		nl.LogFatalf("Error reading config: %s\n", err.Error())
	}

	// set defaults per command
	switch args[0] {
	case "stats":
		cfg.Outputs = ops.Outputs{}
	case "split":
		cfg.Pipeline.HalfRes, cfg.Pipeline.SNR = true, false
		cfg.Outputs = ops.Outputs{Split: cfg.Outputs.Split}
		if cfg.Outputs.Split == "" {
			cfg.Outputs.Split = "split%d_%s.fits"
		}
	case "report":
		if cfg.Outputs.PDF == "" && cfg.Outputs.HTML == "" {
			cfg.Outputs.PDF = "report%d.pdf"
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	opCtx := ops.NewContext(logWriter, *threads)

	// run actions
	switch args[0] {
	case "stats", "polarize", "split", "report":
		err = cmdBatch(ctx, args[0], args[1:], cfg, opCtx, logWriter)

	case "stokes":
		err = cmdStokes(ctx, args[1:], cfg, opCtx, logWriter)

	case "synth":
		err = cmdSynth(cfg.Sensor, logWriter)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			fmt.Fprintf(logWriter, "Serving %s frames on %s with %s\n", cfg.Sensor, *addr, opCtx)
			err = rest.Serve(*addr, &rest.Server{Geometry: cfg.Sensor, Pipeline: cfg.Pipeline, Ctx: opCtx})
		}

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed := time.Since(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	nl.LogClose()
}

// Builds the configuration from defaults, the optional JSON file and the flags.
// Without a file all flags apply, else only those given explicitly.
func loadConfig(fileName string) (*config, error) {
	cfg := &config{Sensor: sensor.DefaultGeometry(), Pipeline: ops.DefaultPipelineConfig()}
	explicit := map[string]bool{}
	if fileName != "" {
		buf, err := os.ReadFile(fileName)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", fileName, err)
		}
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	}
	use := func(name string) bool { return fileName == "" || explicit[name] }

	ints := []struct {
		name string
		dst  *int
		src  int
	}{
		{"height", &cfg.Sensor.Height, *height},
		{"width", &cfg.Sensor.Width, *width},
		{"bitdepth", &cfg.Sensor.BitDepth, *bitDepth},
		{"bins", &cfg.Pipeline.Bins, *bins},
	}
	for _, i := range ints {
		if use(i.name) {
			*i.dst = i.src
		}
	}
	bools := []struct {
		name string
		dst  *bool
		src  bool
	}{
		{"halfres", &cfg.Pipeline.HalfRes, *halfRes},
		{"withSNR", &cfg.Pipeline.SNR, *withSNR},
		{"mask", &cfg.Pipeline.MaskNonlinear, *mask},
	}
	for _, b := range bools {
		if use(b.name) {
			*b.dst = b.src
		}
	}
	if use("maxdolp") {
		cfg.Pipeline.MaxDoLP = *maxDoLP
	}
	strs := []struct {
		name string
		dst  *string
		src  string
	}{
		{"split", &cfg.Outputs.Split, *split},
		{"dolp", &cfg.Outputs.DoLP, *dolp},
		{"aolp", &cfg.Outputs.AoLP, *aolp},
		{"snr", &cfg.Outputs.SNR, *snr},
		{"stokes", &cfg.Outputs.Stokes, *stokes},
		{"png", &cfg.Outputs.PNG, *pngs},
		{"pdf", &cfg.Outputs.PDF, *pdf},
		{"html", &cfg.Outputs.HTML, *html},
	}
	for _, s := range strs {
		if use(s.name) {
			*s.dst = s.src
		}
	}

	if err := cfg.Sensor.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Runs the pipeline over all input files, and saves outputs per frame
func cmdBatch(ctx context.Context, cmd string, args []string, cfg *config, opCtx *ops.Context, logWriter io.Writer) error {
	fileNames, err := ops.GlobFiles(args, false, logWriter)
	if err != nil {
		return fmt.Errorf("globbing filenames: %w", err)
	}
	pl, err := ops.NewPipeline(cfg.Pipeline, opCtx)
	if err != nil {
		return err
	}
	if err := ops.PrintJSON(logWriter, fmt.Sprintf("\nRunning %s on %d frames with %s and these settings:\n", cmd, len(fileNames), opCtx), "\n", cfg); err != nil {
		return err
	}
	b := &ops.Batch{
		Pipeline: pl,
		Loader:   &ops.Loader{Geometry: cfg.Sensor, Scale16: *scale16},
		Outputs:  &cfg.Outputs,
		Forget:   cmd != "stats",
	}
	rs, err := b.Run(ctx, fileNames)
	if cmd == "stats" {
		printStats(ops.RemoveNils(rs), logWriter)
	}
	return err
}

// Prints frame statistics and the DoLP mode per frame as CSV
func printStats(rs []*ops.Result, logWriter io.Writer) {
	if len(rs) == 0 {
		return
	}
	fmt.Fprintf(logWriter, "\nID,FileName,%s,DoLPP50,DoLPMode,DoLPStdDev\n", rs[0].FrameStats.ToCSVHeader())
	for _, r := range rs {
		p50 := "NaN"
		if r.DoLPStats != nil {
			p50 = fmt.Sprintf("%.6g", r.DoLPStats.P50)
		}
		fmt.Fprintf(logWriter, "%d,%s,%s,%s,%.6g,%.6g\n", r.ID, r.FileName, r.FrameStats.ToCSVLine(), p50, r.DoLPMode, r.DoLPStdDev)
	}
}

// Computes maps from four orientation FITS files
func cmdStokes(ctx context.Context, args []string, cfg *config, opCtx *ops.Context, logWriter io.Writer) error {
	fileNames, err := ops.GlobFiles(args, false, logWriter)
	if err != nil {
		return fmt.Errorf("globbing filenames: %w", err)
	}
	l := &ops.Loader{Geometry: cfg.Sensor, Scale16: *scale16}
	gs, bd, hdr, err := l.LoadOrientations(fileNames, logWriter)
	if err != nil {
		return err
	}
	pl, err := ops.NewPipeline(cfg.Pipeline, opCtx)
	if err != nil {
		return err
	}
	r, err := pl.RunGrids(ctx, 0, fileNames[0], gs, bd)
	if err != nil {
		return err
	}
	r.Header = hdr
	if err := cfg.Outputs.Save(r, cfg.Pipeline, logWriter); err != nil {
		return err
	}
	return ops.PrintJSON(logWriter, "\nSummary:\n", "\n", r.Summary())
}

// Writes a synthetic frame to -out, as raw buffer or FITS depending on the suffix
func cmdSynth(g sensor.Geometry, logWriter io.Writer) error {
	if *out == "" {
		return errors.New("synth needs an output file, set -out")
	}
	p := synth.Params{
		Height: g.Height, Width: g.Width, BitDepth: g.BitDepth,
		Intensity: *intensity, DoLP: *synthDoLP, AoLP: *synthAoLP, AoLPSlope: *aolpSlope,
		Noise: *noise, Seed: uint32(*seed),
	}
	if err := ops.PrintJSON(logWriter, "Synthesizing frame with these settings:\n", "\n", p); err != nil {
		return err
	}
	f, err := synth.Frame(p)
	if err != nil {
		return err
	}
	f.FileName = *out
	fmt.Fprintf(logWriter, "Writing %s frame to %s\n", g, *out)
	lower := strings.TrimSuffix(strings.ToLower(*out), ".gz")
	switch filepath.Ext(lower) {
	case ".fits", ".fit", ".fts":
		return fits.NewImageFromFrame(f).WriteFile(*out)
	case ".raw":
		if lower == strings.ToLower(*out) {
			return sensor.WriteRawFile(*out, f)
		}
	}
	return fmt.Errorf("unknown suffix of %s, want .raw, .fits or .fits.gz", *out)
}
