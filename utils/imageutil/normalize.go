// Package imageutil prepares uploaded images for the OCR engine:
// decoding the accepted formats and normalizing the color space to
// opaque RGB before the bytes are re-encoded for the engine.
package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode parses image bytes in any of the accepted formats
// (PNG, JPEG, BMP, TIFF, WEBP).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// FlattenToWhite composites an image with an alpha channel over a white
// background, yielding an opaque RGB image. Images that are already
// opaque are returned unchanged.
func FlattenToWhite(img image.Image) image.Image {
	if op, ok := img.(interface{ Opaque() bool }); ok && op.Opaque() {
		return img
	}

	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

// WriteTempPNG encodes img to a temporary PNG file and returns its
// path. The caller is responsible for removing the file.
func WriteTempPNG(img image.Image) (string, error) {
	tempFile, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := imaging.Encode(tempFile, img, imaging.PNG); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempFile.Name())
		return "", err
	}

	return tempFile.Name(), nil
}
