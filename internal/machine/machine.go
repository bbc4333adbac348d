// Package machine wires cpu, bus, timer, ppu and interrupt together into
// the run_frame loop described in §4.7: step the CPU for one instruction,
// advance the timer and PPU by the same T-cycle count, then give the
// interrupt controller a chance to service whatever that stepping raised.
package machine

import (
	"io"
	"os"

	"github.com/pxlsrv/dmgcore/internal/bus"
	"github.com/pxlsrv/dmgcore/internal/cart"
	"github.com/pxlsrv/dmgcore/internal/cpu"
)

// cyclesPerFrame is 154 scanlines (144 visible + 10 VBlank) of 456
// T-cycles each (§4.1).
const cyclesPerFrame = 154 * 456

// Config holds emulation-affecting settings independent of any one ROM.
type Config struct {
	Trace        bool // stored only; Machine prints no trace (cmd/gbrun prints its own per-instruction trace)
	LimitFPS     bool // stored only; StepFrame never throttles, whatever this is set to
	UseFetcherBG bool // kept for parity with the teacher's BG-fetcher toggle; the fetcher path is the only one implemented
}

// Buttons mirrors the eight-button DMG joypad state for a single frame.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// shade maps a post-palette 2-bit color id (0=lightest) to the classic
// 4-level DMG greyscale, as an 8-bit grey intensity.
var shade = [4]byte{0xFF, 0xAA, 0x55, 0x00}

// Machine is a complete, runnable DMG: cartridge, CPU, and the bus that
// composes PPU/timer/interrupts.
type Machine struct {
	cfg Config
	cpu *cpu.CPU
	bus *bus.Bus
	fb  []byte // RGBA, 160x144x4
}

// New constructs a Machine with no cartridge loaded; call LoadROM or
// LoadROMFromFile before stepping.
func New(cfg Config) *Machine {
	return &Machine{
		cfg: cfg,
		fb:  make([]byte, 160*144*4),
	}
}

// LoadROM creates a fresh Bus/CPU pair for rom and resets to the
// documented post-boot state (§6.3), or runs boot if provided.
func (m *Machine) LoadROM(rom []byte, boot []byte) error {
	if _, err := cart.ParseHeader(rom); err != nil {
		return err
	}
	b := bus.New(rom)
	c := cpu.New(b)
	if len(boot) >= 0x100 {
		b.SetBootROM(boot)
		c.SetPC(0x0000)
	} else {
		c.ResetNoBoot()
		initPostBootIO(b)
	}
	m.bus = b
	m.cpu = c
	return nil
}

// Reset returns the CPU to the documented post-boot register state
// without reloading or re-parsing the cartridge (§6.3).
func (m *Machine) Reset() {
	m.cpu.ResetNoBoot()
	initPostBootIO(m.bus)
}

// LoadROMFromFile reads path and calls LoadROM with no boot ROM.
func (m *Machine) LoadROMFromFile(path string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.LoadROM(rom, nil)
}

// initPostBootIO mirrors what the DMG boot ROM leaves in I/O registers
// when skipped (§6.3): LCD on with BG enabled and sprites off, BGP=0xFC
// and OBP0/OBP1=0xFF, timers stopped, sound registers at their
// post-boot values.
func initPostBootIO(b *bus.Bus) {
	b.Write(0xFF00, 0xCF)
	for _, r := range [...]struct {
		addr uint16
		v    byte
	}{
		{0xFF10, 0x80}, {0xFF11, 0xBF}, {0xFF12, 0xF3}, {0xFF14, 0xBF}, {0xFF16, 0x3F}, {0xFF17, 0x00},
		{0xFF19, 0xBF}, {0xFF1A, 0x7F}, {0xFF1B, 0xFF}, {0xFF1C, 0x9F}, {0xFF1E, 0xBF}, {0xFF20, 0xFF},
		{0xFF21, 0x00}, {0xFF22, 0x00}, {0xFF23, 0xBF}, {0xFF24, 0x77}, {0xFF25, 0xF3}, {0xFF26, 0xF1},
	} {
		b.Write(r.addr, r.v)
	}
	b.Write(0xFF05, 0x00)
	b.Write(0xFF06, 0x00)
	b.Write(0xFF07, 0x00)
	b.Write(0xFF40, 0x91)
	b.Write(0xFF42, 0x00)
	b.Write(0xFF43, 0x00)
	b.Write(0xFF45, 0x00)
	b.Write(0xFF47, 0xFC)
	b.Write(0xFF48, 0xFF)
	b.Write(0xFF49, 0xFF)
	b.Write(0xFF4A, 0x00)
	b.Write(0xFF4B, 0x00)
	b.Write(0xFFFF, 0x00)
}

// SetSerialWriter routes serial-port output (e.g. blargg test ROM status
// text) to w.
func (m *Machine) SetSerialWriter(w io.Writer) { m.bus.SetSerialWriter(w) }

// SetButtons updates the joypad state ahead of the next frame.
func (m *Machine) SetButtons(btn Buttons) { m.bus.SetJoypadState(btn.mask()) }

// CPU exposes the underlying CPU for tools that want finer-grained control
// than StepFrame (cmd/gbrun's instruction-level trace/auto-detect mode).
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Bus exposes the underlying bus for the same reason.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// StepInstruction runs exactly one CPU instruction (or halted idle tick)
// and its associated timer/PPU/interrupt bookkeeping, returning the
// T-cycles it consumed.
func (m *Machine) StepInstruction() int {
	cycles := m.cpu.Step()
	m.bus.Timer().Step(cycles)
	m.bus.PPU().Step(cycles)
	m.bus.Interrupts().Poll(m.cpu)
	return cycles
}

// SaveBattery returns the cartridge's external RAM if it is battery-backed,
// for persisting to a .sav file alongside the ROM.
func (m *Machine) SaveBattery() ([]byte, bool) {
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil, false
	}
	return bb.SaveRAM(), true
}

// LoadBattery restores previously saved external RAM, if the cartridge is
// battery-backed.
func (m *Machine) LoadBattery(data []byte) bool {
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// runFrame advances the machine by one full 70224 T-cycle frame.
func (m *Machine) runFrame() {
	budget := 0
	for budget < cyclesPerFrame {
		budget += m.StepInstruction()
	}
}

// StepFrameNoRender advances one frame without touching the RGBA
// framebuffer, for headless test-ROM running.
func (m *Machine) StepFrameNoRender() { m.runFrame() }

// StepFrame advances one frame and composes the PPU's per-pixel color ids
// into an RGBA framebuffer.
func (m *Machine) StepFrame() {
	m.runFrame()
	screen := m.bus.PPU().Screen
	for y := 0; y < 144; y++ {
		for x := 0; x < 160; x++ {
			g := shade[screen[y][x]&3]
			i := (y*160 + x) * 4
			m.fb[i+0] = g
			m.fb[i+1] = g
			m.fb[i+2] = g
			m.fb[i+3] = 0xFF
		}
	}
}

// Framebuffer returns the RGBA pixels produced by the most recent
// StepFrame call.
func (m *Machine) Framebuffer() []byte { return m.fb }
