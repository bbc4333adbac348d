package ppu

// RenderBGScanlineUsingFetcher renders the 160 BG color ids for scanline
// ly by walking the tile-map row that SCX/SCY/ly select, one tile fetch
// at a time, discarding the SCX%8 leading pixels the way real BG fetch
// hardware does.
func RenderBGScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, scx, scy, ly byte) [160]byte {
	bgY := uint16(ly) + uint16(scy)
	mapRow := (bgY >> 3) & 31
	fineY := byte(bgY & 7)

	mapCol := (uint16(scx) >> 3) & 31
	skip := int(scx & 7)

	var q pixelQueue
	f := newBGFetcher(mem, &q)
	fetchTileAt := func(col uint16) {
		f.Configure(mapBase, tileData8000, mapBase+mapRow*32+col, fineY)
		f.Fetch()
	}

	fetchTileAt(mapCol)
	for i := 0; i < skip; i++ {
		q.Pop()
	}

	var out [160]byte
	for x := 0; x < 160; x++ {
		if q.Len() == 0 {
			mapCol = (mapCol + 1) & 31
			fetchTileAt(mapCol)
		}
		out[x], _ = q.Pop()
	}
	return out
}

// RenderWindowScanlineUsingFetcher renders the window layer for a single
// scanline starting at pixel column wxStart, using winLine (the line
// number within the window itself, already adjusted for WY) as the
// vertical coordinate. Columns before wxStart are left at color id 0 for
// the caller to composite over the BG layer.
func RenderWindowScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, wxStart int, winLine byte) [160]byte {
	var out [160]byte
	if wxStart >= 160 {
		return out
	}
	if wxStart < 0 {
		wxStart = 0
	}

	mapRow := (uint16(winLine) >> 3) & 31
	fineY := winLine & 7
	mapCol := uint16(0)

	var q pixelQueue
	f := newBGFetcher(mem, &q)
	fetchTileAt := func(col uint16) {
		f.Configure(mapBase, tileData8000, mapBase+mapRow*32+col, fineY)
		f.Fetch()
	}
	fetchTileAt(mapCol)

	for x := wxStart; x < 160; x++ {
		if q.Len() == 0 {
			mapCol = (mapCol + 1) & 31
			fetchTileAt(mapCol)
		}
		out[x], _ = q.Pop()
	}
	return out
}
