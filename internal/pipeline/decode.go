package pipeline

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/shumzu/shumzu/internal/block"
	"github.com/shumzu/shumzu/internal/compress"
	shumzucrypto "github.com/shumzu/shumzu/internal/crypto"
	"github.com/shumzu/shumzu/internal/errs"
	"github.com/shumzu/shumzu/internal/fileops"
	"github.com/shumzu/shumzu/internal/log"
	"github.com/shumzu/shumzu/internal/matrix"
	"github.com/shumzu/shumzu/internal/util"
)

// DecodeResult summarizes a completed Decode run.
type DecodeResult struct {
	OutputPath string
	FileName   string
	BlockCount int
	Encrypted  bool
}

// Decode reads a keymaster PNG at inputPath, scans every grid cell for a
// QR code, reassembles the blocks it recovers, verifies the result's
// integrity hash, and writes it under outputDir.
//
// Phases: READ_PNG -> SCAN_ALL -> ENVELOPE_PARSE -> BASE64 -> (parallel
// DECRYPT? -> DECOMPRESS) -> REASSEMBLE -> VERIFY -> WRITE_FILE.
func Decode(inputPath, outputDir string, cfg Config, reporter ProgressReporter) (*DecodeResult, error) {
	r := reporterOrNull(reporter)

	r.SetStatus("Reading keymaster...")
	img, err := matrix.OpenPNG(inputPath)
	if err != nil {
		return nil, err
	}

	r.SetStatus("Scanning grid...")
	cellResults, err := matrix.ScanAll(img)
	if err != nil {
		return nil, err
	}

	envelopes := make(map[int]block.Envelope)
	for _, cr := range cellResults {
		if cr.Err != nil {
			continue
		}
		env, err := block.DecodeEnvelope(cr.Envelope)
		if err != nil {
			log.Warn("cell decoded a QR code but not a valid envelope", log.Int("row", cr.Row), log.Int("col", cr.Col), log.Err(err))
			continue
		}
		envelopes[env.Index] = env
	}
	if len(envelopes) == 0 {
		return nil, errs.ErrQRDecode
	}

	// Captured from the envelopes actually observed on the grid, before
	// per-block decrypt/decompress failures can drop any of them — see
	// reassemble's maxObservedIndex doc comment for why this must not be
	// derived later from the surviving blocks map.
	maxObservedIndex := 0
	for idx := range envelopes {
		if idx > maxObservedIndex {
			maxObservedIndex = idx
		}
	}

	raw := make(map[int][]byte, len(envelopes))
	for idx, env := range envelopes {
		data, err := base64.StdEncoding.DecodeString(env.Data)
		if err != nil {
			log.Warn("dropping invalid block", log.Int("index", idx), log.Err(errs.NewBlockError(idx, "base64", err)))
			continue
		}
		raw[idx] = data
	}
	if len(raw) == 0 {
		return nil, &errs.MissingBlockError{Missing: []int{block.MetadataIndex}}
	}

	password, encrypted, err := resolvePassword(raw, cfg)
	if err != nil {
		return nil, err
	}

	r.SetStatus("Decoding blocks...")
	indices := make([]int, 0, len(raw))
	for idx := range raw {
		indices = append(indices, idx)
	}
	total := len(indices)

	plaintexts := make([][]byte, total)
	blockErrs := make([]error, total)
	var cancelled atomic.Bool
	r.SetCanCancel(true)

	var totalRawBytes int64
	for _, b := range raw {
		totalRawBytes += int64(len(b))
	}
	var bytesDone int64
	startTime := time.Now()

	parallelFor(total, func(i int) {
		if r.IsCancelled() {
			cancelled.Store(true)
			return
		}
		idx := indices[i]
		pt, err := decodeOneBlock(idx, raw[idx], password, encrypted)
		if err != nil {
			blockErrs[i] = errs.NewBlockError(idx, "decode", err)
			return
		}
		plaintexts[i] = pt
		done := atomic.AddInt64(&bytesDone, int64(len(raw[idx])))
		progress, speed, eta := util.Statify(done, totalRawBytes, startTime)
		r.SetProgress(progress, fmt.Sprintf("%d/%d blocks | %.2f MiB/s | ETA %s", i+1, total, speed, eta))
		r.Update()
	})
	if cancelled.Load() {
		return nil, fmt.Errorf("operation cancelled")
	}

	// Per-block failures (tag mismatch, decompression failure) are not
	// fatal here: the block is simply dropped, and the reassembler's
	// contiguous-index check turns the gap into a MissingBlockError
	// naming it precisely.
	blocks := make(map[int][]byte, total)
	for i, idx := range indices {
		if blockErrs[i] != nil {
			log.Warn("dropping invalid block", log.Int("index", idx), log.Err(blockErrs[i]))
			continue
		}
		blocks[idx] = plaintexts[i]
	}

	r.SetStatus("Reassembling...")
	metadata, fileBytes, err := reassemble(blocks, maxObservedIndex)
	if err != nil {
		return nil, err
	}

	r.SetStatus("Writing output...")
	outPath := filepath.Join(outputDir, metadata.FileName)
	f, finalPath, err := fileops.CreateNewFile(outPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := fileops.WriteChunked(f, fileBytes); err != nil {
		return nil, err
	}

	log.Info("decode complete", log.String("output", finalPath), log.Int("blocks", total), log.Bool("encrypted", encrypted))
	r.SetProgress(1, "done")
	r.Update()

	return &DecodeResult{
		OutputPath: finalPath,
		FileName:   metadata.FileName,
		BlockCount: total,
		Encrypted:  encrypted,
	}, nil
}

// resolvePassword implements the password-required heuristic (spec
// scenario: decode a keymaster whose blocks are encrypted, without a
// password already in hand). It attempts a no-password decompress of one
// available raw block; failure there means the blocks are ciphertext, so
// a password is obtained from cfg.Password or cfg.PromptPassword before
// any block is actually decoded.
func resolvePassword(raw map[int][]byte, cfg Config) (password []byte, encrypted bool, err error) {
	var probe []byte
	if b, ok := raw[block.MetadataIndex]; ok {
		probe = b
	} else {
		for _, b := range raw {
			probe = b
			break
		}
	}

	if _, err := compress.Decompress(probe); err == nil {
		return nil, false, nil
	}

	if len(cfg.Password) > 0 {
		return cfg.Password, true, nil
	}
	if cfg.PromptPassword == nil {
		return nil, true, errs.ErrPasswordRequired
	}
	pw, err := cfg.PromptPassword()
	if err != nil {
		return nil, true, errs.Wrap(err, "password prompt")
	}
	return pw, true, nil
}

// decodeOneBlock runs (decrypt)? -> decompress for a single block's raw
// base64-decoded bytes.
func decodeOneBlock(index int, raw []byte, password []byte, encrypted bool) ([]byte, error) {
	payload := raw
	if encrypted {
		opened, err := shumzucrypto.Open(password, index, raw)
		if err != nil {
			return nil, err
		}
		payload = opened
	}
	return compress.Decompress(payload)
}
