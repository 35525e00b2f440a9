// Command ggbench runs the CPU, memory and GPU benchmarks and prints the
// scores.
//
// Settings come from the defaults, then an optional TOML profile (-config),
// then GGBENCH_BACKEND, then the flags given on the command line.
//
// With -live it also presents the benchmark scene continuously while the
// suite runs, and with -preview it writes the last presented frame to a PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/jeandeaual/go-locale"
	"github.com/muesli/termenv"
	"golang.org/x/image/draw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/ggbench"
	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/ggbench/internal/caption"

	// Register the WebGPU platform.
	_ "github.com/gogpu/ggbench/gpu/wgpu"
)

func main() {
	def := ggbench.DefaultProfile()
	var (
		configPath = flag.String("config", "", "TOML profile to load")
		backend    = flag.String("backend", "", "GPU platform (wgpu, software); empty selects by priority")
		frames     = flag.Int("frames", def.GPU.Frames, "GPU frames to render")
		width      = flag.Int("width", def.GPU.Width, "GPU surface width")
		height     = flag.Int("height", def.GPU.Height, "GPU surface height")
		cpuSize    = flag.Int("cpu-size", def.CPU.Size, "CPU workload elements")
		memSize    = flag.Int("mem-size", def.Memory.Size, "memory workload elements")
		seed       = flag.Uint64("seed", 0, "workload seed; 0 uses a random seed")
		lang       = flag.String("lang", "", "language tag for number formatting; empty uses the system locale")
		output     = flag.String("o", "", "also write the report as YAML to this file")
		live       = flag.Bool("live", false, "present the scene live while benchmarking")
		preview    = flag.String("preview", "", "write the last live frame to this PNG file (implies -live)")
		previewMax = flag.Int("preview-height", 320, "height of the preview image")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		ggbench.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	prof := def
	if *configPath != "" {
		var err error
		if prof, err = ggbench.LoadProfile(*configPath); err != nil {
			log.Fatalf("Failed to load profile: %v", err)
		}
	}
	if env := os.Getenv("GGBENCH_BACKEND"); env != "" {
		prof.Backend = env
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			prof.Backend = *backend
		case "frames":
			prof.GPU.Frames = *frames
		case "width":
			prof.GPU.Width = *width
		case "height":
			prof.GPU.Height = *height
		case "cpu-size":
			prof.CPU.Size = *cpuSize
		case "mem-size":
			prof.Memory.Size = *memSize
		case "seed":
			prof.Seed = *seed
		}
	})

	tag := languageTag(*lang)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		wg        sync.WaitGroup
		presenter *gpu.Presenter
		adapter   *gpu.LiveAdapter
	)
	liveCtx, stopLive := context.WithCancel(ctx)
	defer stopLive()

	if *live || *preview != "" {
		var err error
		presenter, adapter, err = newPresenter(prof, *preview != "")
		if err != nil {
			log.Fatalf("Live view: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := presenter.Run(liveCtx); err != nil {
				log.Printf("Live view stopped: %v", err)
			}
		}()
	}

	suite := ggbench.New(prof.Options()...)
	start := time.Now()
	rep := <-suite.Start(ctx)
	if err := suite.Close(); err != nil {
		log.Printf("Close: %v", err)
	}

	if presenter != nil {
		stopLive()
		wg.Wait()
		adapter.Detach()
		log.Printf("Live view presented %d frames", presenter.Frames())
	}

	printReport(rep, tag)
	log.Printf("Benchmarks finished in %v", time.Since(start).Round(time.Millisecond))

	if *output != "" {
		if err := writeReport(*output, rep); err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}
		log.Printf("Report saved to %s", *output)
	}

	if *preview != "" {
		if err := writePreview(*preview, presenter.LastFrame(), *previewMax, previewCaption(rep.GPU, tag)); err != nil {
			log.Fatalf("Failed to save preview: %v", err)
		}
		log.Printf("Preview saved to %s", *preview)
	}

	if !rep.Complete() {
		os.Exit(1)
	}
}

// languageTag resolves the formatting language from the flag or the system
// locale, falling back to English.
func languageTag(flagValue string) language.Tag {
	name := flagValue
	if name == "" {
		sys, err := locale.GetLocale()
		if err != nil || sys == "" {
			return language.English
		}
		name = sys
	}
	tag, err := language.Parse(name)
	if err != nil {
		log.Printf("Unknown language %q, using English", name)
		return language.English
	}
	return tag
}

// printReport prints one line per category, coloring failed categories when
// stdout is a terminal.
func printReport(rep ggbench.Report, tag language.Tag) {
	out := termenv.NewOutput(os.Stdout)
	for _, res := range rep.Results() {
		s := out.String(res.Format(tag))
		switch res.Status {
		case ggbench.StatusOK:
			s = s.Bold()
		case ggbench.StatusError:
			s = s.Foreground(out.Color("1"))
		case ggbench.StatusUnavailable, ggbench.StatusSkipped:
			s = s.Foreground(out.Color("3"))
		}
		fmt.Println(s.String())
	}
}

// newPresenter sets up the live view on the profile's platform, or on the
// highest priority one.
func newPresenter(prof ggbench.Profile, snapshot bool) (*gpu.Presenter, *gpu.LiveAdapter, error) {
	var (
		p   gpu.Platform
		err error
	)
	if prof.Backend != "" {
		p, err = gpu.LookupPlatform(prof.Backend)
	} else {
		p, err = gpu.DefaultPlatform()
	}
	if err != nil {
		return nil, nil, err
	}

	adapter := gpu.NewLiveAdapter()
	window := gpucontext.NullWindowProvider{W: prof.GPU.Width, H: prof.GPU.Height}
	opts := []gpu.PresenterOption{gpu.WithFrameInterval(gpu.DefaultFrameInterval)}
	if snapshot {
		opts = append(opts, gpu.WithSnapshot())
	}
	return gpu.NewPresenter(p, window, adapter, opts...), adapter, nil
}

func writeReport(path string, rep ggbench.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rep.WriteYAML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// previewCaption summarizes the GPU result for the preview image.
func previewCaption(res ggbench.Result, tag language.Tag) string {
	if res.Status != ggbench.StatusOK {
		return fmt.Sprintf("GPU benchmark %s", strings.ToLower(res.Status.String()))
	}
	return message.NewPrinter(tag).Sprintf("GPU benchmark complete - Score: %d (%.1f FPS)", res.Score, res.FPS)
}

// writePreview scales img to the given height, adds a caption strip below it
// and writes the result as PNG.
func writePreview(path string, img *image.RGBA, height int, text string) error {
	if img == nil {
		return errors.New("no frame was captured")
	}
	b := img.Bounds()
	if height <= 0 || height > b.Dy() {
		height = b.Dy()
	}
	scaled := max(1, b.Dx()*height/b.Dy())

	face, err := caption.Default()
	if err != nil {
		return err
	}
	size := max(10, float64(height)/20)
	line := face.Shape(text, size)
	strip := int(math.Ceil(line.Ascent+line.Descent)) + int(size)
	// Narrow previews are widened so the caption fits.
	width := max(scaled, int(math.Ceil(line.Advance+size)))

	dst := image.NewRGBA(image.Rect(0, 0, width, height+strip))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	x0 := (width - scaled) / 2
	draw.CatmullRom.Scale(dst, image.Rect(x0, 0, x0+scaled, height), img, b, draw.Src, nil)

	dot := image.Pt(int(size/2), height+int(size/2)+int(math.Ceil(line.Ascent)))
	if err := face.Draw(dst, line, dot, color.White); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dst); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
