// Package block implements SHUMZU's framing format: splitting a source
// file into a metadata block plus fixed-size payload blocks, and the
// per-block JSON envelope each one travels inside a QR code as.
package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/shumzu/shumzu/internal/errs"
	"github.com/shumzu/shumzu/internal/hashx"
)

// MetadataIndex is the block index always assigned to the metadata record.
// Canonical per the spec: metadata is index 0, payload is 1..N.
const MetadataIndex = 0

// Metadata is the small structured record carried at block index 0. It is
// not encrypted independently — it traverses the same
// compress -> (encrypt) -> envelope path as payload blocks.
type Metadata struct {
	FileName string `json:"file_name"`
	Hash     string `json:"hash"`
}

// NewMetadata builds the Metadata record for a source file's bytes and
// display name (basename only).
func NewMetadata(fileName string, fileBytes []byte) Metadata {
	return Metadata{
		FileName: filepath.Base(fileName),
		Hash:     hashx.DigestHex(fileBytes),
	}
}

// Marshal serializes Metadata as canonical UTF-8 JSON.
func (m Metadata) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrMetadata, err), "marshal metadata")
	}
	return b, nil
}

// ParseMetadata parses a metadata block's bytes, rejecting anything that
// doesn't carry both required fields.
func ParseMetadata(b []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var m Metadata
	if err := dec.Decode(&m); err != nil {
		return Metadata{}, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrMetadata, err), "parse metadata")
	}
	if m.FileName == "" || m.Hash == "" {
		return Metadata{}, errs.Wrap(fmt.Errorf("%w: missing file_name or hash", errs.ErrMetadata), "parse metadata")
	}
	return m, nil
}

// Split divides fileBytes into a metadata block (index 0) followed by
// payload blocks (indices 1..N) of at most blockSize bytes each. Block i
// (i>=1) covers bytes [(i-1)*blockSize, min(i*blockSize, len(fileBytes))).
//
// An empty file still yields the metadata block, but Split reports
// ErrEmptyFile rather than producing a zero-payload keymaster.
func Split(fileName string, fileBytes []byte, blockSize int) (metadata []byte, payload [][]byte, err error) {
	if len(fileBytes) == 0 {
		metaBytes, err := NewMetadata(fileName, fileBytes).Marshal()
		if err != nil {
			return nil, nil, err
		}
		return metaBytes, nil, errs.ErrEmptyFile
	}
	if blockSize <= 0 {
		return nil, nil, fmt.Errorf("invalid block size %d", blockSize)
	}

	meta := NewMetadata(fileName, fileBytes)
	metaBytes, err := meta.Marshal()
	if err != nil {
		return nil, nil, err
	}

	n := (len(fileBytes) + blockSize - 1) / blockSize
	blocks := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		start := i * blockSize
		end := min(start+blockSize, len(fileBytes))
		blocks = append(blocks, fileBytes[start:end])
	}

	return metaBytes, blocks, nil
}

// Envelope is the per-block on-wire unit carried inside one QR code:
//
//	{"index": <int>, "data": <base64-string>}
//
// It is a tagged struct, not a free-form map, and rejects unknown keys on
// decode per the envelope redesign note.
type Envelope struct {
	Index int    `json:"index"`
	Data  string `json:"data"`
}

// Encode serializes an Envelope as a JSON string.
func (e Envelope) Encode() (string, error) {
	if e.Index < 0 {
		return "", errs.Wrap(fmt.Errorf("%w: negative index %d", errs.ErrEnvelope, e.Index), "encode envelope")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "", errs.Wrap(fmt.Errorf("%w: %v", errs.ErrEnvelope, err), "encode envelope")
	}
	return string(b), nil
}

// DecodeEnvelope parses a JSON string into an Envelope, rejecting anything
// lacking both "index" and "data" or carrying unexpected types/keys.
func DecodeEnvelope(s string) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()

	var raw struct {
		Index *int    `json:"index"`
		Data  *string `json:"data"`
	}
	if err := dec.Decode(&raw); err != nil {
		return Envelope{}, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrEnvelope, err), "decode envelope")
	}
	if raw.Index == nil || raw.Data == nil {
		return Envelope{}, errs.Wrap(fmt.Errorf("%w: missing index or data", errs.ErrEnvelope), "decode envelope")
	}
	e := Envelope{Index: *raw.Index, Data: *raw.Data}
	if e.Index < 0 {
		return Envelope{}, errs.Wrap(fmt.Errorf("%w: negative index %d", errs.ErrEnvelope, e.Index), "decode envelope")
	}
	return e, nil
}
