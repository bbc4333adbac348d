// Package cpu implements the fetch/decode/execute loop for the LR35902
// core: the register file, ALU flag semantics, and the primary and
// CB-prefixed opcode tables described in §4.2.
package cpu

import (
	"github.com/pxlsrv/dmgcore/internal/bus"
)

// CPU holds the full architectural register file plus the IME latch and
// the halted/stopped terminal states described in §4.2/§9.
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	ime bool
	// halted covers both HALT (0x76) and illegal opcodes, which this
	// model treats identically: execution stops in place (§4.2, §7).
	halted bool
	// stopped distinguishes STOP (0x10) for callers that care, though it
	// behaves like halted for dispatch purposes.
	stopped bool
	// eiPending defers IME's rising edge to after the instruction
	// following EI, per the real hardware's one-instruction delay.
	eiPending bool

	bus *bus.Bus
}

// New creates a CPU wired to bus b. Callers should follow with ResetNoBoot
// to reach the documented post-boot register state (§6.3).
func New(b *bus.Bus) *CPU {
	return &CPU{bus: b, SP: 0xFFFE}
}

// SetPC allows tests or a boot stub to set the program counter.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// Bus exposes the underlying bus for tests/tools.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// Halted reports whether the CPU has stopped dispatching instructions,
// either via HALT, STOP, or an illegal opcode (§7, §9).
func (c *CPU) Halted() bool { return c.halted }

// ResetNoBoot sets registers to the documented DMG post-boot state (§6.3).
func (c *CPU) ResetNoBoot() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.ime = true
	c.halted = false
	c.stopped = false
	c.eiPending = false
}

// --- interrupt.Target implementation ---

func (c *CPU) IME() bool     { return c.ime }
func (c *CPU) SetIME(v bool) { c.ime = v }
func (c *CPU) PushPC()       { c.push16(c.PC) }

// JumpTo sets PC to an interrupt vector and wakes the CPU from HALT/STOP,
// since servicing an interrupt always resumes dispatch on real hardware.
func (c *CPU) JumpTo(v uint16) {
	c.PC = v
	c.halted = false
	c.stopped = false
}

// Flags helpers
const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

func (c *CPU) setZNHC(z, n, h, carry bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if carry {
		f |= flagC
	}
	c.F = f
}

func (c *CPU) add8(a, b byte) (res byte, z, n, h, cy bool) {
	r := uint16(a) + uint16(b)
	res = byte(r)
	z = res == 0
	n = false
	h = ((a & 0x0F) + (b & 0x0F)) > 0x0F
	cy = r > 0xFF
	return
}

func (c *CPU) adc8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := uint16(a) + uint16(b) + uint16(ci)
	res = byte(r)
	z = res == 0
	n = false
	h = ((a & 0x0F) + (b & 0x0F) + ci) > 0x0F
	cy = r > 0xFF
	return
}

func (c *CPU) sub8(a, b byte) (res byte, z, n, h, cy bool) {
	r := int16(a) - int16(b)
	res = byte(r)
	z = res == 0
	n = true
	h = (a & 0x0F) < (b & 0x0F)
	cy = int16(a) < int16(b)
	return
}

func (c *CPU) sbc8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := int16(a) - int16(b) - int16(ci)
	res = byte(r)
	z = res == 0
	n = true
	h = (a & 0x0F) < ((b & 0x0F) + ci)
	cy = int16(a) < int16(b)+int16(ci)
	return
}

func (c *CPU) and8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a & b
	z = res == 0
	n = false
	h = true
	cy = false
	return
}

func (c *CPU) xor8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a ^ b
	z = res == 0
	n = false
	h = false
	cy = false
	return
}

func (c *CPU) or8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a | b
	z = res == 0
	n = false
	h = false
	cy = false
	return
}

func (c *CPU) cp8(a, b byte) (z, n, h, cy bool) {
	_, z, n, h, cy = c.sub8(a, b)
	return
}

func (c *CPU) read8(addr uint16) byte     { return c.bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	b := c.read8(c.PC)
	c.PC++
	return b
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | (hi << 8)
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | (hi << 8)
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v&0x00FF))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.write16(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// get/set implement the 3-bit register-index addressing shared by LD r,r'
// and the CB table, where index 6 means (HL).
func (c *CPU) get(idx byte) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.getHL())
	default:
		return c.A
	}
}

func (c *CPU) set(idx byte, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.getHL(), v)
	case 7:
		c.A = v
	}
}

// Step fetches, decodes and executes one instruction (or CB-prefixed
// instruction), returning the T-cycles it consumed. The caller (the
// machine loop, §4.7) is responsible for stepping the timer and PPU by
// that count and then polling interrupts; Step itself never services an
// interrupt — it only honors the HALT-without-IME wake rule (§9).
func (c *CPU) Step() (cycles int) {
	if c.eiPending {
		defer func() {
			if c.eiPending {
				c.ime = true
				c.eiPending = false
			}
		}()
	}

	if c.halted {
		if c.bus.Interrupts().AnyPending() {
			c.halted = false
		} else {
			return 4
		}
	}

	op := c.fetch8()
	return c.execute(op)
}
