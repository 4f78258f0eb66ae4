// Command enginecheck audits the engine catalogue and optionally
// renders a probe file through one engine.
//
// Usage:
//
//	enginecheck [flags]
//
// Examples:
//
//	enginecheck -level paranoid
//	enginecheck -csv mapping.csv
//	enginecheck -probe 25 -wav phaser.wav -seconds 2
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/dither"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/catalog"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/factory"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/validate"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/probe"
)

var (
	flagLevel   = flag.String("level", "comprehensive", "audit level: basic, standard, comprehensive, paranoid")
	flagCSV     = flag.String("csv", "", "write the ID mapping with audit status to this CSV file")
	flagList    = flag.Bool("list", false, "print the catalogue and exit")
	flagProbe   = flag.Int("probe", -1, "render a probe WAV through this engine ID")
	flagWAV     = flag.String("wav", "probe.wav", "output path for -probe")
	flagSeconds = flag.Float64("seconds", 2, "probe length in seconds")
	flagRate    = flag.Int("rate", 48000, "probe sample rate")
)

func main() {
	flag.Parse()

	if *flagList {
		printCatalog()
		return
	}

	if *flagProbe >= 0 {
		if err := renderProbe(catalog.ID(*flagProbe), *flagWAV, *flagSeconds, *flagRate); err != nil {
			fmt.Fprintf(os.Stderr, "enginecheck: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *flagWAV)
		return
	}

	level, err := parseLevel(*flagLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enginecheck: %v\n", err)
		os.Exit(2)
	}

	report := validate.Run(level, factory.Create)
	fmt.Print(report.Text())

	if *flagCSV != "" {
		f, err := os.Create(*flagCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "enginecheck: %v\n", err)
			os.Exit(1)
		}
		if err := report.MappingCSV(f); err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "enginecheck: %v\n", err)
			os.Exit(1)
		}
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "enginecheck: %v\n", err)
			os.Exit(1)
		}
	}

	if !report.OK() {
		os.Exit(1)
	}
}

func parseLevel(s string) (validate.Level, error) {
	switch s {
	case "basic":
		return validate.Basic, nil
	case "standard":
		return validate.Standard, nil
	case "comprehensive":
		return validate.Comprehensive, nil
	case "paranoid":
		return validate.Paranoid, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

func printCatalog() {
	for id := catalog.ID(0); id < catalog.Count; id++ {
		meta, _ := catalog.Lookup(id)
		flags := ""
		if meta.HighCost {
			flags += " high-cost"
		}
		if meta.Studio {
			flags += " studio"
		}
		if meta.Platinum {
			flags += " platinum"
		}
		fmt.Printf("%2d  %-26s %-10s params=%d mix=%d%s\n",
			int(id), meta.Name, meta.Category, meta.NumParams, meta.MixIndex, flags)
	}
	fmt.Printf("checksum %016x\n", catalog.Checksum())
}

// renderProbe runs a swept sine through the engine and writes the
// result as a 16 bit stereo WAV.
func renderProbe(id catalog.ID, path string, seconds float64, rate int) error {
	e := factory.Create(id)
	if e == nil {
		return fmt.Errorf("no engine for ID %d", int(id))
	}

	const blockSize = 512
	if err := e.Prepare(float64(rate), blockSize); err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	total := int(seconds * float64(rate))
	block := [][]float64{make([]float64, blockSize), make([]float64, blockSize)}
	out := make([]int, 0, total*2)

	sweep, err := probe.NewExpSweep(float64(rate), 50, 10000, 0.5, total)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	quant, err := dither.NewTPDF(16, 1)
	if err != nil {
		return fmt.Errorf("dither: %w", err)
	}

	for sweep.Remaining() > 0 {
		count := sweep.Fill(block[0])
		copy(block[1][:count], block[0][:count])

		e.Process([][]float64{block[0][:count], block[1][:count]})

		for i := 0; i < count; i++ {
			out = append(out, quant.Quantize(block[0][i]), quant.Quantize(block[1][i]))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           out,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
