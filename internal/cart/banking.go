package cart

// ramWindow maps a CPU address in 0xA000-0xBFFF to an offset into a
// banked external-RAM array, honoring the enable latch all three MBCs
// share. Returns ok=false when disabled, absent, or out of range.
func ramWindow(addr uint16, enabled bool, ram []byte, bank int, bankSize int) (off int, ok bool) {
	if !enabled || len(ram) == 0 {
		return 0, false
	}
	off = bank*bankSize + int(addr-0xA000)
	if off < 0 || off >= len(ram) {
		return 0, false
	}
	return off, true
}

// romWindow maps a CPU address in 0x4000-0x7FFF to an offset into the
// full ROM image for the given switched-in bank.
func romWindow(addr uint16, rom []byte, bank int) (off int, ok bool) {
	off = bank*0x4000 + int(addr-0x4000)
	if off < 0 || off >= len(rom) {
		return 0, false
	}
	return off, true
}

// ramEnableLatch is the write-0x0A-to-low-nibble convention every MBC in
// this family uses to gate external RAM access.
func ramEnableLatch(value byte) bool {
	return value&0x0F == 0x0A
}
