package qr

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

func blankImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	envelope := `{"index":1,"data":"aGVsbG8gd29ybGQ="}`

	img, err := Encode(envelope, 200)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("image bounds = %dx%d, want 200x200", b.Dx(), b.Dy())
	}

	got, err := Decode(img)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != envelope {
		t.Errorf("Decode = %q, want %q", got, envelope)
	}
}

func TestEncodeCapacityError(t *testing.T) {
	// Far beyond what a version-40, ECC-L QR symbol can hold.
	huge := strings.Repeat("a", 1<<16)
	if _, err := Encode(huge, 200); err == nil {
		t.Error("Encode should fail with QRCapacityError on oversized input")
	}
}

func TestDecodeNonQRImageFails(t *testing.T) {
	blank := blankImage(200, 200)
	if _, err := Decode(blank); err == nil {
		t.Error("Decode should fail on an image with no QR code")
	}
}
