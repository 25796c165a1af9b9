package assessment

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/ternarybob/scopulus/internal/models"
)

// Tiled GeoTIFF writer. No tiled-TIFF encoder exists in the stdlib or the
// x/image tree (x/image/tiff writes strips only), so the writer emits the
// minimal cloud-optimized layout by hand: little-endian header, one IFD
// up front, then Deflate-compressed 256x256 tiles. Output bytes are
// deterministic: fixed compression level, fixed tile order.

const (
	cogTileSize = 256

	// cogTileWriters is the number of concurrent tile compressors.
	cogTileWriters = 4

	// cogCompressionLevel is fixed so identical rasters compress to
	// identical bytes across runs and workers.
	cogCompressionLevel = zlib.BestCompression
)

// TIFF tag ids used by the writer.
const (
	tagImageWidth     = 256
	tagImageLength    = 257
	tagBitsPerSample  = 258
	tagCompression    = 259
	tagPhotometric    = 262
	tagSamplesPerPix  = 277
	tagTileWidth      = 322
	tagTileLength     = 323
	tagTileOffsets    = 324
	tagTileByteCounts = 325

	compressionDeflate   = 8 // Adobe-style Deflate, zlib streams
	photometricBlackZero = 1

	typeShort = 3
	typeLong  = 4
)

// WriteCOG encodes a raster as a tiled Cloud-Optimized GeoTIFF.
func (e *Engine) WriteCOG(w io.Writer, grid *models.RasterGrid) error {
	if err := grid.Validate(); err != nil {
		return err
	}

	tilesX := (grid.Width + cogTileSize - 1) / cogTileSize
	tilesY := (grid.Height + cogTileSize - 1) / cogTileSize
	tiles, err := compressTiles(grid, tilesX, tilesY)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	// Header: little-endian magic, IFD immediately after.
	buf.Write([]byte{'I', 'I', 42, 0})
	binary.Write(&buf, binary.LittleEndian, uint32(8))

	numTiles := tilesX * tilesY
	entries := 10
	ifdSize := 2 + entries*12 + 4
	arraysStart := 8 + ifdSize

	// Offsets/bytecounts arrays live right after the IFD when they do
	// not fit inline (count > 1).
	external := numTiles > 1
	dataStart := arraysStart
	if external {
		dataStart += 8 * numTiles
	}

	offsets := make([]uint32, numTiles)
	byteCounts := make([]uint32, numTiles)
	cursor := uint32(dataStart)
	for i, tile := range tiles {
		offsets[i] = cursor
		byteCounts[i] = uint32(len(tile))
		cursor += uint32(len(tile))
	}

	// IFD, entries in ascending tag order.
	binary.Write(&buf, binary.LittleEndian, uint16(entries))
	writeIFDEntry(&buf, tagImageWidth, typeLong, 1, uint32(grid.Width))
	writeIFDEntry(&buf, tagImageLength, typeLong, 1, uint32(grid.Height))
	writeIFDEntry(&buf, tagBitsPerSample, typeShort, 1, 8)
	writeIFDEntry(&buf, tagCompression, typeShort, 1, compressionDeflate)
	writeIFDEntry(&buf, tagPhotometric, typeShort, 1, photometricBlackZero)
	writeIFDEntry(&buf, tagSamplesPerPix, typeShort, 1, 1)
	writeIFDEntry(&buf, tagTileWidth, typeLong, 1, cogTileSize)
	writeIFDEntry(&buf, tagTileLength, typeLong, 1, cogTileSize)
	if external {
		writeIFDEntry(&buf, tagTileOffsets, typeLong, uint32(numTiles), uint32(arraysStart))
		writeIFDEntry(&buf, tagTileByteCounts, typeLong, uint32(numTiles), uint32(arraysStart+4*numTiles))
	} else {
		writeIFDEntry(&buf, tagTileOffsets, typeLong, 1, offsets[0])
		writeIFDEntry(&buf, tagTileByteCounts, typeLong, 1, byteCounts[0])
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // no next IFD

	if external {
		for _, off := range offsets {
			binary.Write(&buf, binary.LittleEndian, off)
		}
		for _, count := range byteCounts {
			binary.Write(&buf, binary.LittleEndian, count)
		}
	}

	for _, tile := range tiles {
		buf.Write(tile)
	}

	_, err = w.Write(buf.Bytes())
	return err
}

func writeIFDEntry(buf *bytes.Buffer, tag, fieldType uint16, count, value uint32) {
	binary.Write(buf, binary.LittleEndian, tag)
	binary.Write(buf, binary.LittleEndian, fieldType)
	binary.Write(buf, binary.LittleEndian, count)
	binary.Write(buf, binary.LittleEndian, value)
}

// compressTiles deflates every tile with a bounded worker group. Results
// are collected by index so the output order never depends on scheduling.
func compressTiles(grid *models.RasterGrid, tilesX, tilesY int) ([][]byte, error) {
	numTiles := tilesX * tilesY
	tiles := make([][]byte, numTiles)
	errs := make([]error, numTiles)

	indexes := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < cogTileWriters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				tiles[idx], errs[idx] = compressTile(grid, idx%tilesX, idx/tilesX)
			}
		}()
	}
	for idx := 0; idx < numTiles; idx++ {
		indexes <- idx
	}
	close(indexes)
	wg.Wait()

	for idx, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", idx, err)
		}
	}
	return tiles, nil
}

// compressTile extracts one 256x256 tile (zero-padded at the raster edge)
// and deflates it at the fixed level.
func compressTile(grid *models.RasterGrid, tx, ty int) ([]byte, error) {
	raw := make([]byte, cogTileSize*cogTileSize)
	for row := 0; row < cogTileSize; row++ {
		y := ty*cogTileSize + row
		if y >= grid.Height {
			break
		}
		x0 := tx * cogTileSize
		width := cogTileSize
		if x0+width > grid.Width {
			width = grid.Width - x0
		}
		copy(raw[row*cogTileSize:row*cogTileSize+width], grid.Pixels[y*grid.Width+x0:y*grid.Width+x0+width])
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, cogCompressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
