// Command gbemu is the windowed front end: load a ROM, open an ebiten
// window, and run it at real-time speed. A --headless mode exists for
// CI-style framebuffer regression checks (CRC32/PNG) without a display.
package main

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pxlsrv/dmgcore/internal/cart"
	"github.com/pxlsrv/dmgcore/internal/machine"
	"github.com/pxlsrv/dmgcore/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagBootROM  string
	flagScale    int
	flagTitle    string
	flagTrace    bool
	flagSaveRAM  bool
	flagHeadless bool
	flagFrames   int
	flagPNGOut   string
	flagExpect   string
)

func main() {
	root := &cobra.Command{
		Use:   "gbemu [rom]",
		Short: "Run a Game Boy ROM in a window (or headless for regression checks)",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().StringVar(&flagBootROM, "bootrom", "", "optional DMG boot ROM")
	root.Flags().IntVar(&flagScale, "scale", 3, "window scale")
	root.Flags().StringVar(&flagTitle, "title", "gbemu", "window title")
	root.Flags().BoolVar(&flagTrace, "trace", false, "accepted but has no effect: no CPU trace is printed")
	root.Flags().BoolVar(&flagSaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")
	root.Flags().BoolVar(&flagHeadless, "headless", false, "run without a window")
	root.Flags().IntVar(&flagFrames, "frames", 300, "frames to run in headless mode")
	root.Flags().StringVar(&flagPNGOut, "outpng", "", "write last framebuffer to PNG at path")
	root.Flags().StringVar(&flagExpect, "expect", "", "assert framebuffer CRC32 (hex)")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(_ *cobra.Command, args []string) error {
	romPath := args[0]
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("read rom: %w", err)
	}
	var boot []byte
	if flagBootROM != "" {
		if boot, err = os.ReadFile(flagBootROM); err != nil {
			return fmt.Errorf("read bootrom: %w", err)
		}
	}

	if h, err := cart.ParseHeader(rom); err == nil {
		log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	}

	m := machine.New(machine.Config{Trace: flagTrace})
	if err := m.LoadROM(rom, boot); err != nil {
		return fmt.Errorf("load rom: %w", err)
	}

	savPath := strings.TrimSuffix(romPath, ".gb") + ".sav"
	if flagSaveRAM {
		if data, err := os.ReadFile(savPath); err == nil {
			if m.LoadBattery(data) {
				log.Printf("loaded save RAM: %s (%d bytes)", savPath, len(data))
			}
		}
	}

	if flagHeadless {
		if err := runHeadless(m, flagFrames, flagPNGOut, flagExpect); err != nil {
			return err
		}
		return persistBattery(m, savPath)
	}

	uiCfg := ui.Config{Title: flagTitle, Scale: flagScale}
	app := ui.NewApp(uiCfg, m)
	if err := app.Run(); err != nil {
		return err
	}
	return persistBattery(m, savPath)
}

func persistBattery(m *machine.Machine, savPath string) error {
	if !flagSaveRAM {
		return nil
	}
	data, ok := m.SaveBattery()
	if !ok {
		return nil
	}
	if err := os.WriteFile(savPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", savPath, err)
	}
	log.Printf("wrote %s", savPath)
	return nil
}

func runHeadless(m *machine.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}
	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	fb := m.Framebuffer()
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(fb, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
