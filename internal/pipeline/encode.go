package pipeline

import (
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/shumzu/shumzu/internal/block"
	"github.com/shumzu/shumzu/internal/compress"
	shumzucrypto "github.com/shumzu/shumzu/internal/crypto"
	"github.com/shumzu/shumzu/internal/errs"
	"github.com/shumzu/shumzu/internal/log"
	"github.com/shumzu/shumzu/internal/matrix"
	"github.com/shumzu/shumzu/internal/qr"
	"github.com/shumzu/shumzu/internal/util"
)

// EncodeResult summarizes a completed Encode run.
type EncodeResult struct {
	OutputPath  string
	BlockCount  int
	Encrypted   bool
	GridColumns int
	GridRows    int
}

// Encode reads inputPath, splits it into a metadata block plus payload
// blocks, runs each block through compress -> (encrypt) -> envelope -> QR,
// and pastes the resulting per-block QR codes into one keymaster PNG at
// outputPath.
//
// Phases: READ_FILE -> FRAME -> (parallel COMPRESS -> ENCRYPT? -> ENVELOPE
// -> QR_ENCODE) -> ASSEMBLE_MATRIX -> WRITE_PNG.
func Encode(inputPath, outputPath string, cfg Config, reporter ProgressReporter) (*EncodeResult, error) {
	r := reporterOrNull(reporter)

	r.SetStatus("Reading file...")
	fileBytes, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrIO, err), "read input file")
	}

	r.SetStatus("Framing blocks...")
	metaBytes, payload, err := block.Split(filepath.Base(inputPath), fileBytes, cfg.blockSize())
	if err != nil {
		return nil, err
	}

	blocks := make([][]byte, 0, len(payload)+1)
	blocks = append(blocks, metaBytes)
	blocks = append(blocks, payload...)
	total := len(blocks)

	encrypted := len(cfg.Password) > 0
	r.SetStatus("Encoding blocks...")
	r.SetCanCancel(true)

	cellImages := make([]image.Image, total)
	cellErrs := make([]error, total)
	var aborted atomic.Bool
	var bytesDone int64
	totalBytes := int64(len(fileBytes))
	startTime := time.Now()

	parallelFor(total, func(i int) {
		if r.IsCancelled() || aborted.Load() {
			cellErrs[i] = fmt.Errorf("operation cancelled")
			return
		}
		img, err := encodeOneBlock(i, blocks[i], cfg.Password)
		if err != nil {
			cellErrs[i] = errs.NewBlockError(i, "encode", err)
			aborted.Store(true)
			return
		}
		cellImages[i] = img
		done := atomic.AddInt64(&bytesDone, int64(len(blocks[i])))
		progress, speed, eta := util.Statify(done, totalBytes, startTime)
		r.SetProgress(progress, fmt.Sprintf("%d/%d blocks | %.2f MiB/s | ETA %s", i+1, total, speed, eta))
		r.Update()
	})

	for i, err := range cellErrs {
		if err != nil {
			log.Error("block encode failed", log.Int("index", i), log.Err(err))
			return nil, err
		}
	}

	cells := make(map[int]image.Image, total)
	for i, img := range cellImages {
		cells[i] = img
	}

	r.SetStatus("Assembling keymaster...")
	canvas := matrix.Build(cells, total)
	cols, rows := matrix.GridDims(total)

	r.SetStatus("Writing keymaster PNG...")
	if err := matrix.WritePNG(canvas, outputPath); err != nil {
		return nil, err
	}

	log.Info("encode complete", log.String("output", outputPath), log.Int("blocks", total), log.Bool("encrypted", encrypted))
	r.SetProgress(1, "done")
	r.Update()

	return &EncodeResult{
		OutputPath:  outputPath,
		BlockCount:  total,
		Encrypted:   encrypted,
		GridColumns: cols,
		GridRows:    rows,
	}, nil
}

// encodeOneBlock runs compress -> (encrypt) -> envelope -> QR_ENCODE for a
// single block and returns its rasterized QR image.
func encodeOneBlock(index int, data []byte, password []byte) (image.Image, error) {
	compressed, err := compress.Compress(data)
	if err != nil {
		return nil, err
	}

	payload := compressed
	if len(password) > 0 {
		sealed, err := shumzucrypto.Seal(password, index, compressed)
		if err != nil {
			return nil, err
		}
		payload = sealed
	}

	env := block.Envelope{Index: index, Data: base64.StdEncoding.EncodeToString(payload)}
	envelopeJSON, err := env.Encode()
	if err != nil {
		return nil, err
	}

	return qr.Encode(envelopeJSON, matrix.CellSize)
}
