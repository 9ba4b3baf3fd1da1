// Package matrix builds and scans the composite "keymaster" image: a grid
// of per-block QR codes pasted into one PNG, and the reverse — slicing a
// keymaster back into its per-cell QR codes.
package matrix

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/shumzu/shumzu/internal/errs"
	"github.com/shumzu/shumzu/internal/log"
	"github.com/shumzu/shumzu/internal/qr"
)

// CellSize is the pixel width/height every per-block QR image is
// rasterized to before being pasted into the keymaster canvas. The codec
// must not depend on this exact value, but encode and decode must agree
// on it, so it lives here as the single source of truth.
const CellSize = 200

// GridDims computes the keymaster's column and row count for t total
// blocks (metadata + payload): cols = floor(sqrt(t)), rows = ceil(t/cols).
func GridDims(t int) (cols, rows int) {
	cols = int(math.Sqrt(float64(t)))
	if cols < 1 {
		cols = 1
	}
	rows = (t + cols - 1) / cols
	return cols, rows
}

// CellOrigin returns the pixel origin of the cell holding block index i,
// given the grid's column count.
func CellOrigin(index, cols int) (x, y int) {
	row, col := index/cols, index%cols
	return col * CellSize, row * CellSize
}

// Build pastes one QR image per entry of cells (keyed by block index)
// into a single RGB canvas sized by GridDims(total), and returns it. Cells
// with no corresponding key are left as opaque background.
func Build(cells map[int]image.Image, total int) *image.RGBA {
	cols, rows := GridDims(total)
	canvas := image.NewRGBA(image.Rect(0, 0, cols*CellSize, rows*CellSize))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	for index, cellImg := range cells {
		x, y := CellOrigin(index, cols)
		dstRect := image.Rect(x, y, x+CellSize, y+CellSize)
		draw.Draw(canvas, dstRect, cellImg, image.Point{}, draw.Src)
	}

	return canvas
}

// WritePNG encodes img as a PNG at path.
func WritePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(fmt.Errorf("%w: %v", errs.ErrIO, err), "create keymaster")
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return errs.Wrap(fmt.Errorf("%w: %v", errs.ErrIO, err), "encode keymaster png")
	}
	return nil
}

// OpenPNG decodes a PNG from path with no pixel-count limit: legitimate
// keymasters can be arbitrarily large, so no decompression-bomb guard is
// applied here.
func OpenPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrIO, err), "open keymaster")
	}
	defer f.Close()
	return decodePNG(f)
}

func decodePNG(r io.Reader) (image.Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrIO, err), "decode keymaster png")
	}
	return img, nil
}

// CellResult is one decoded (or failed) cell from a scan. Row/Col are
// provenance for logging only — decode correctness never depends on
// where in the canvas a cell happened to sit.
type CellResult struct {
	Row, Col int
	Envelope string
	Err      error
}

// subImager is satisfied by every concrete image type image/png.Decode
// can return (*image.RGBA, *image.NRGBA, *image.Paletted, ...).
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// ScanAll enumerates every grid cell of img (derived from its own bounds
// and CellSize) and attempts a QR decode on each. Cells that fail to
// decode — background, corruption — are recorded with their error rather
// than aborting the scan; the pipeline decides what that means for
// reassembly.
func ScanAll(img image.Image) ([]CellResult, error) {
	b := img.Bounds()
	cols := b.Dx() / CellSize
	rows := b.Dy() / CellSize
	if cols == 0 || rows == 0 {
		return nil, errs.Wrap(fmt.Errorf("%w: image smaller than one cell (%dx%d)", errs.ErrQRDecode, b.Dx(), b.Dy()), "scan keymaster")
	}

	si, ok := img.(subImager)
	if !ok {
		// Normalize to a croppable representation.
		rgba := image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
		si = rgba
	}

	results := make([]CellResult, 0, cols*rows)
	found := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x0, y0 := b.Min.X+col*CellSize, b.Min.Y+row*CellSize
			cellRect := image.Rect(x0, y0, x0+CellSize, y0+CellSize)
			cell := si.SubImage(cellRect)

			envelope, err := qr.Decode(cell)
			if err != nil {
				log.Debug("cell did not decode", log.Int("row", row), log.Int("col", col), log.Err(err))
				results = append(results, CellResult{Row: row, Col: col, Err: err})
				continue
			}
			found++
			results = append(results, CellResult{Row: row, Col: col, Envelope: envelope})
		}
	}

	if found == 0 {
		return nil, errs.ErrQRDecode
	}
	return results, nil
}
