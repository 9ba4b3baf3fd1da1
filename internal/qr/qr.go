// Package qr wraps the embedded QR encode/decode libraries behind the
// narrow interface the rest of SHUMZU's codec consumes: one envelope
// string in, one fixed-size image out, and back.
package qr

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	skipqr "github.com/skip2/go-qrcode"

	"github.com/shumzu/shumzu/internal/errs"
)

// level is the QR error-correction level used for every encode — L, the
// lowest, since SHUMZU relies on block-level retry (re-photograph, re-scan)
// rather than the QR standard's own redundancy.
const level = skipqr.Low

// Encode renders envelope as a QR code at the smallest version that fits
// it, then rasterizes directly at size x size pixels.
func Encode(envelope string, size int) (image.Image, error) {
	code, err := skipqr.New(envelope, level)
	if err != nil {
		return nil, errs.Wrap(fmt.Errorf("%w: %v", errs.ErrQRCapacity, err), "qr encode")
	}
	code.DisableBorder = false
	return code.Image(size), nil
}

// Decode reads a single QR symbol out of img and returns its decoded text.
// Returns ErrQRDecode if img contains no recognizable QR code.
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", errs.Wrap(fmt.Errorf("%w: %v", errs.ErrQRDecode, err), "qr decode")
	}

	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bmp, nil)
	if err != nil {
		return "", errs.Wrap(fmt.Errorf("%w: %v", errs.ErrQRDecode, err), "qr decode")
	}

	return result.GetText(), nil
}
