// Command gbrun is a headless instruction-level runner, primarily for
// driving blargg-style test ROMs: it watches the serial port for the
// --until substring ("Passed" by default) and exits 0 when it appears.
// With --auto it also detects "Failed N tests" and exits 1.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pxlsrv/dmgcore/internal/machine"
	"github.com/spf13/cobra"
)

var (
	flagBootROM      string
	flagSteps        int
	flagTrace        bool
	flagUntil        string
	flagAuto         bool
	flagTimeout      time.Duration
	flagTraceOnFail  bool
	flagTraceWindow  int
	flagSerialWindow int
)

type ringWriter struct {
	buf   []byte
	idx   int
	fill  int
	inner io.Writer
}

func newRingWriter(size int, inner io.Writer) *ringWriter {
	if size < 256 {
		size = 256
	}
	return &ringWriter{buf: make([]byte, size), inner: inner}
}

func (w *ringWriter) Write(p []byte) (int, error) {
	for _, ch := range p {
		w.buf[w.idx] = ch
		w.idx = (w.idx + 1) % len(w.buf)
		if w.fill < len(w.buf) {
			w.fill++
		}
	}
	return w.inner.Write(p)
}

func (w *ringWriter) String() string {
	start := (w.idx - w.fill + len(w.buf)) % len(w.buf)
	out := make([]byte, 0, w.fill)
	for i := 0; i < w.fill; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return string(out)
}

func main() {
	root := &cobra.Command{
		Use:   "gbrun [rom]",
		Short: "Run a ROM headlessly, instruction by instruction, watching serial output",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().StringVar(&flagBootROM, "bootrom", "", "optional DMG boot ROM to run from 0x0000 until FF50 disables it")
	root.Flags().IntVar(&flagSteps, "steps", 5_000_000, "max CPU steps to run")
	root.Flags().BoolVar(&flagTrace, "trace", false, "print PC/opcode/register trace for every instruction")
	root.Flags().StringVar(&flagUntil, "until", "Passed", "stop when serial output contains this substring (case-insensitive); empty to disable")
	root.Flags().BoolVar(&flagAuto, "auto", false, "auto-detect 'Passed' or 'Failed N tests' in serial output and exit 0/1")
	root.Flags().DurationVar(&flagTimeout, "timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	root.Flags().BoolVar(&flagTraceOnFail, "trace-on-fail", false, "when --auto detects failure, print a recent trace window")
	root.Flags().IntVar(&flagTraceWindow, "trace-window", 200, "number of recent instructions to retain for --trace-on-fail")
	root.Flags().IntVar(&flagSerialWindow, "serial-window", 8192, "number of recent serial bytes to retain for diagnostics")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type traceEntry struct {
	pc                     uint16
	op                     byte
	cyc                    int
	a, f, b, c, d, e, h, l byte
	sp                     uint16
	ime                    bool
	ifreg, ie              byte
}

func run(_ *cobra.Command, args []string) error {
	rom, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read rom: %w", err)
	}
	var boot []byte
	if flagBootROM != "" {
		if boot, err = os.ReadFile(flagBootROM); err != nil {
			return fmt.Errorf("read bootrom: %w", err)
		}
	}

	m := machine.New(machine.Config{Trace: flagTrace})
	if err := m.LoadROM(rom, boot); err != nil {
		return fmt.Errorf("load rom: %w", err)
	}

	var ser bytes.Buffer
	ring := newRingWriter(flagSerialWindow, &ser)
	w := io.Writer(os.Stdout)
	if flagUntil != "" || flagAuto {
		w = io.MultiWriter(os.Stdout, ring)
	}
	m.SetSerialWriter(w)

	start := time.Now()
	var deadline time.Time
	if flagTimeout > 0 {
		deadline = start.Add(flagTimeout)
	}
	failRe := regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
	stageRe := regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
	lastStage := ""

	traceRing := make([]traceEntry, flagTraceWindow)
	ringIdx, ringFill := 0, 0
	var cycles int

	for i := 0; i < flagSteps; i++ {
		c := m.CPU()
		b := m.Bus()
		pc := c.PC
		var op byte
		if flagTrace || flagTraceOnFail {
			op = b.Read(pc)
		}
		cyc := m.StepInstruction()
		cycles += cyc
		if flagTrace || flagTraceOnFail {
			te := traceEntry{
				pc: pc, op: op, cyc: cyc,
				a: c.A, f: c.F, b: c.B, c: c.C, d: c.D, e: c.E, h: c.H, l: c.L,
				sp: c.SP, ime: c.IME(), ifreg: b.Read(0xFF0F), ie: b.Read(0xFFFF),
			}
			if flagTrace {
				printTrace(te)
			}
			if flagTraceOnFail && flagTraceWindow > 0 {
				traceRing[ringIdx] = te
				ringIdx = (ringIdx + 1) % flagTraceWindow
				if ringFill < flagTraceWindow {
					ringFill++
				}
			}
		}

		if flagAuto {
			s := ser.String()
			if mm := stageRe.FindAllString(s, -1); len(mm) > 0 {
				lastStage = mm[len(mm)-1]
			}
			if strings.Contains(strings.ToLower(s), "passed") {
				reportDone(i+1, cycles, start, lastStage, "Detected PASS in serial output.")
				return nil
			}
			if mm := failRe.FindStringSubmatch(s); mm != nil {
				fmt.Printf("\nDetected %s in serial output.\n", mm[0])
				if lastStage != "" {
					fmt.Printf("Last stage seen: %s\n", lastStage)
				}
				if flagTraceOnFail && ringFill > 0 {
					dumpTrace(traceRing, ringIdx, ringFill, flagTraceWindow)
				}
				if ring.fill > 0 {
					fmt.Printf("\n--- recent serial (last %d bytes) ---\n%s\n--- end serial ---\n", ring.fill, ring.String())
				}
				fmt.Printf("\nDone: steps=%d cycles~=%d elapsed=%s\n", i+1, cycles, time.Since(start).Truncate(time.Millisecond))
				os.Exit(1)
			}
		} else if flagUntil != "" {
			if strings.Contains(strings.ToLower(ser.String()), strings.ToLower(flagUntil)) {
				reportDone(i+1, cycles, start, "", fmt.Sprintf("Detected %q in serial output.", flagUntil))
				return nil
			}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			fmt.Printf("\nDone: steps=%d cycles~=%d elapsed=%s\n", i+1, cycles, time.Since(start).Truncate(time.Millisecond))
			os.Exit(2)
		}
	}
	fmt.Printf("\nDone: steps=%d cycles~=%d elapsed=%s\n", flagSteps, cycles, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func printTrace(te traceEntry) {
	fmt.Printf("PC=%04X OP=%02X cyc=%d A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t IF=%02X IE=%02X\n",
		te.pc, te.op, te.cyc, te.a, te.f, te.b, te.c, te.d, te.e, te.h, te.l, te.sp, te.ime, te.ifreg, te.ie)
}

func dumpTrace(ring []traceEntry, idx, fill, window int) {
	fmt.Printf("\n--- recent trace (last %d instructions) ---\n", fill)
	start := (idx - fill + window) % window
	for j := 0; j < fill; j++ {
		printTrace(ring[(start+j)%window])
	}
	fmt.Printf("--- end trace ---\n")
}

func reportDone(steps, cycles int, start time.Time, lastStage, msg string) {
	fmt.Printf("\n%s\n", msg)
	if lastStage != "" {
		fmt.Printf("Last stage seen: %s\n", lastStage)
	}
	fmt.Printf("\nDone: steps=%d cycles~=%d elapsed=%s\n", steps, cycles, time.Since(start).Truncate(time.Millisecond))
}
