// Package imageproc decodes uploaded scans and converts them to a single
// colour model before OCR.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Codec struct{}

func NewCodec() *Codec { return &Codec{} }

// Decode returns the image and the registered format name.
func (c *Codec) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("decode image: empty payload")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Normalize converts paletted, grayscale, CMYK and YCbCr images to NRGBA.
// Images already in NRGBA are returned as is.
func (c *Codec) Normalize(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	if _, ok := img.(*image.NRGBA); ok {
		return img
	}
	return imaging.Clone(img)
}
