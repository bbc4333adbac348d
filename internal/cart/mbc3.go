package cart

// MBC3 adds a 7-bit ROM bank register and a combined RAM-bank/RTC-select
// register over MBC1's scheme, plus a clock-latch write at 0x6000-0x7FFF.
// This implementation covers the ROM/RAM banking only; the real-time
// clock registers (RTC select values 0x08-0x0C) are accepted but treated
// as RAM bank 0, matching carts used without battery-backed RTC state.
type MBC3 struct {
	rom []byte
	ram []byte

	ramOn   bool
	romBank byte // 1..127
	ramSel  byte // 0..3 when selecting RAM; RTC registers collapse to 0
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom, romBank: 1}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC3) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		off, ok := romWindow(addr, m.rom, int(m.romBank))
		if !ok {
			return 0xFF
		}
		return m.rom[off]
	case addr >= 0xA000 && addr <= 0xBFFF:
		off, ok := ramWindow(addr, m.ramOn, m.ram, int(m.ramSel), 0x2000)
		if !ok {
			return 0xFF
		}
		return m.ram[off]
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramOn = ramEnableLatch(value)
	case addr < 0x4000:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr < 0x6000:
		m.selectRAMOrRTC(value)
	case addr < 0x8000:
		// Clock latch: no RTC state is modeled, so this is a no-op.
	case addr >= 0xA000 && addr <= 0xBFFF:
		if off, ok := ramWindow(addr, m.ramOn, m.ram, int(m.ramSel), 0x2000); ok {
			m.ram[off] = value
		}
	}
}

// selectRAMOrRTC handles the 0x4000-0x5FFF register, which is a single
// write target shared between RAM bank select (0x00-0x03) and RTC
// register select (0x08-0x0C) on real MBC3 carts.
func (m *MBC3) selectRAMOrRTC(value byte) {
	if value <= 0x03 {
		m.ramSel = value
		return
	}
	m.ramSel = 0
}

func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}
