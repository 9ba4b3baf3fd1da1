package matrix

import (
	"fmt"
	"image"
	"path/filepath"
	"testing"

	"github.com/shumzu/shumzu/internal/qr"
)

func TestGridDimsBoundaries(t *testing.T) {
	cases := []struct {
		total      int
		cols, rows int
	}{
		{2, 1, 2}, // |B|=1: metadata + one payload block
		{5, 2, 3}, // |B|=4096, s=1024: 1 metadata + 4 payload
		{9, 3, 3}, // perfect square
		{1, 1, 1},
	}
	for _, c := range cases {
		cols, rows := GridDims(c.total)
		if cols != c.cols || rows != c.rows {
			t.Errorf("GridDims(%d) = (%d,%d), want (%d,%d)", c.total, cols, rows, c.cols, c.rows)
		}
	}
}

func TestCellOriginMatchesGrid(t *testing.T) {
	cols, _ := GridDims(5)
	x, y := CellOrigin(3, cols)
	wantRow, wantCol := 3/cols, 3%cols
	if x != wantCol*CellSize || y != wantRow*CellSize {
		t.Errorf("CellOrigin(3, %d) = (%d,%d), want (%d,%d)", cols, x, y, wantCol*CellSize, wantRow*CellSize)
	}
}

func TestBuildScanRoundTrip(t *testing.T) {
	total := 5

	cellImages := make(map[int]image.Image, total)
	for i := 0; i < total; i++ {
		envelope := fmt.Sprintf(`{"index":%d,"data":"YmxvY2slMGQ="}`, i)
		img, err := qr.Encode(envelope, CellSize)
		if err != nil {
			t.Fatalf("Encode block %d: %v", i, err)
		}
		cellImages[i] = img
	}

	canvas := Build(cellImages, total)

	wantCols, wantRows := GridDims(total)
	if canvas.Bounds().Dx() != wantCols*CellSize || canvas.Bounds().Dy() != wantRows*CellSize {
		t.Fatalf("canvas size = %dx%d, want %dx%d", canvas.Bounds().Dx(), canvas.Bounds().Dy(), wantCols*CellSize, wantRows*CellSize)
	}

	path := filepath.Join(t.TempDir(), "keymaster.png")
	if err := WritePNG(canvas, path); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}

	reopened, err := OpenPNG(path)
	if err != nil {
		t.Fatalf("OpenPNG: %v", err)
	}

	results, err := ScanAll(reopened)
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}

	decoded := 0
	for _, r := range results {
		if r.Err == nil {
			decoded++
		}
	}
	if decoded != total {
		t.Errorf("decoded %d cells, want %d", decoded, total)
	}
}

func TestScanAllRejectsTooSmallImage(t *testing.T) {
	tiny := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if _, err := ScanAll(tiny); err == nil {
		t.Error("ScanAll should fail on an image smaller than one cell")
	}
}
