package cart

import "testing"

// markedROM builds a ROM where reading the first byte of bank N returns N,
// so a bank switch is observable by a single Read.
func markedROM(banks int) []byte {
	rom := make([]byte, banks*0x4000)
	for bank := 0; bank < banks; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	return rom
}

func TestMBC1_SwitchableROMBankFollowsLow5BitRegister(t *testing.T) {
	m := NewMBC1(markedROM(8), 0)

	if got := m.Read(0x0000); got != 0x00 {
		t.Fatalf("fixed bank 0 got %#02x want 0x00", got)
	}
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("switchable bank defaults to 1, got %#02x", got)
	}

	m.Write(0x2000, 0x03)
	if got := m.Read(0x4000); got != 0x03 {
		t.Fatalf("after selecting bank 3, got %#02x", got)
	}

	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank register 0 must remap to 1, got %#02x", got)
	}
}

func TestMBC1_RAMBankingModeRoutesAddressToSelectedBank(t *testing.T) {
	m := NewMBC1(markedROM(8), 32*1024)

	m.Write(0x0000, 0x0A) // RAM enable
	m.Write(0x6000, 0x01) // mode 1: 0x4000-0x5FFF now selects RAM bank
	m.Write(0x4000, 0x02) // RAM bank 2

	m.Write(0xA000, 0x77)
	if got := m.Read(0xA000); got != 0x77 {
		t.Fatalf("RAM bank 2 round-trip got %#02x want 0x77", got)
	}
}
