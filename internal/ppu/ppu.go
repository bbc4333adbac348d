package ppu

// Requester is a callback signature to request IF bits (0:VBlank, 1:STAT).
type Requester func(bit int)

const lineCycles = 456

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, and the per-scanline mode
// timing described in §4.5. It exposes CPU-facing Read/Write for VRAM/OAM
// and the PPU IO registers.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	lx int // T-cycles elapsed within the current scanline [0..455]

	// Screen holds one color id (0..3, post-palette) per pixel, row-major,
	// 160x144. The host collaborator (§6.2) reads this between frames.
	Screen [144][160]byte

	req Requester
}

func New(req Requester) *PPU { return &PPU{req: req} }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		// On DMG, bit7 reads as 1; bit6..3 are enables; bit2 coincidence; bit1..0 mode
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. A write to LY
// (FF44) resets both LY and the position within the line to 0, per §4.1.
// A write to LCDC with bit 7 set refreshes STAT's mode bits immediately.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		p.lcdc = value
		if value&0x80 != 0 {
			p.updateMode()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.lx = 0
	case addr == 0xFF45:
		p.lyc = value
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Step advances the PPU by cycles T-cycles per §4.5: STAT mode/coincidence
// tracking runs every call regardless of LCD power; if the LCD is on, lx
// accumulates and, on crossing a line boundary, LY advances and the line
// LY now names is rasterized. STAT is refreshed once more after lx has
// advanced, so it reflects the position this call reached.
func (p *PPU) Step(cycles int) {
	p.updateMode()
	p.updateLYC()

	if p.lcdc&0x80 == 0 {
		p.ly = 0
		p.lx = 0
		return
	}

	p.lx += cycles
	for p.lx >= lineCycles {
		p.lx -= lineCycles
		p.ly++
		if p.ly == 144 {
			if p.req != nil {
				p.req(0)
			}
		} else if p.ly > 153 {
			p.ly = 0
		}
		if p.ly < 144 {
			p.renderScanline(p.ly)
		}
		p.updateMode()
		p.updateLYC()
	}
	p.updateMode()
	p.updateLYC()
}

// updateMode derives STAT[1:0] from ly/lx per §4.5's mode-boundary table
// (OAM search, then pixel transfer, then HBlank, in that forward order —
// see the Open Question resolution in DESIGN.md) and fires the STAT
// interrupt on any mode transition whose enable bit is set.
func (p *PPU) updateMode() {
	cur := p.stat & 0x03
	var next byte
	var candidate bool
	switch {
	case p.ly >= 144:
		next = 1
		candidate = p.stat&(1<<4) != 0
	case p.lx < 80:
		next = 2
		candidate = p.stat&(1<<5) != 0
	case p.lx < 80+172:
		next = 3
	default:
		next = 0
		candidate = p.stat&(1<<3) != 0
	}
	p.stat = (p.stat &^ 0x03) | next
	if cur != next && candidate && p.req != nil {
		p.req(1)
	}
}

func (p *PPU) updateLYC() {
	wasSet := p.stat&(1<<2) != 0
	match := p.ly == p.lyc
	if match {
		p.stat |= 1 << 2
	} else {
		p.stat &^= 1 << 2
	}
	if match && !wasSet && p.stat&(1<<6) != 0 && p.req != nil {
		p.req(1)
	}
}

// Expose palettes and scroll for renderer convenience.
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
func (p *PPU) LY() byte   { return p.ly }

// Read implements VRAMReader for the scanline rasterizer.
func (p *PPU) Read(addr uint16) byte { return p.vram[addr-0x8000] }
