package ppu

// renderScanline fills Screen[ly] with post-palette BG/window color ids,
// implementing the per-scanline rasterizer of §4.6. Sprites are outside
// this spec's scope; only LCDC bit 0 (BG/window enable) gates this.
func (p *PPU) renderScanline(ly byte) {
	if p.lcdc&0x01 == 0 {
		for x := 0; x < 160; x++ {
			p.Screen[ly][x] = 0
		}
		return
	}

	tileData8000 := p.lcdc&0x10 != 0

	bgMapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		bgMapBase = 0x9C00
	}
	row := RenderBGScanlineUsingFetcher(p, bgMapBase, tileData8000, p.scx, p.scy, ly)

	useWindow := p.lcdc&0x20 != 0 && p.wy <= ly
	if useWindow {
		winMapBase := uint16(0x9800)
		if p.lcdc&0x40 != 0 {
			winMapBase = 0x9C00
		}
		// The window's first pixel lands on screen column WX itself, with
		// no real-hardware WX-7 offset, and the window is composited pixel
		// by pixel from there (not switched on at 8-pixel tile boundaries).
		wxStart := int(p.wx)
		winLine := ly - p.wy
		winRow := RenderWindowScanlineUsingFetcher(p, winMapBase, tileData8000, wxStart, winLine)
		start := wxStart
		if start < 0 {
			start = 0
		}
		for x := start; x < 160; x++ {
			row[x] = winRow[x]
		}
	}

	for x := 0; x < 160; x++ {
		p.Screen[ly][x] = applyPalette(p.bgp, row[x])
	}
}

// applyPalette translates a 2-bit color id through a packed 4-entry,
// 2-bits-per-entry palette register (BGP/OBP0/OBP1 share this format).
func applyPalette(palette, colorID byte) byte {
	return (palette >> (colorID * 2)) & 0x03
}
