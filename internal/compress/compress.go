// Package compress implements SHUMZU's two-stage block compressor: an
// outer entropy stage (Brotli) followed by a dictionary stage (Zstandard).
// The stage order is part of the on-wire format and must not change.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/shumzu/shumzu/internal/errs"
)

// BrotliQuality mirrors the reference "level 19"-class effort at the
// Brotli stage: brotli's own scale tops out at 11, so the quality is
// pinned to the library's maximum rather than chasing a mismatched number.
const BrotliQuality = 11

// Compress runs brotli_compress then zstd_compress over x and returns the
// resulting bytes. Deterministic for a given input and library version;
// callers must not assume byte-exact output across library versions.
func Compress(x []byte) ([]byte, error) {
	var brotliBuf bytes.Buffer
	bw := brotli.NewWriterLevel(&brotliBuf, BrotliQuality)
	if _, err := bw.Write(x); err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrCompression, err), "brotli stage")
	}
	if err := bw.Close(); err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrCompression, err), "brotli stage")
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrCompression, err), "zstd stage init")
	}
	defer enc.Close()

	return enc.EncodeAll(brotliBuf.Bytes(), nil), nil
}

// Decompress runs zstd_decompress then brotli_decompress over c, the exact
// inverse of Compress.
func Decompress(c []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrCompression, err), "zstd stage init")
	}
	defer dec.Close()

	brotliBytes, err := dec.DecodeAll(c, nil)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrCompression, err), "zstd stage")
	}

	br := brotli.NewReader(bytes.NewReader(brotliBytes))
	out, err := io.ReadAll(br)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrCompression, err), "brotli stage")
	}
	return out, nil
}
