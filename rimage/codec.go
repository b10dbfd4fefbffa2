package rimage

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"

	// register the decoders accepted for still reference images.
	_ "image/gif"
	_ "image/png"

	_ "github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	_ "github.com/xfmoulet/qoi"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// JPEGQuality is used for the byte raster handed across the detector boundary.
const JPEGQuality = 90

// EncodeJPEG encodes img as a JPEG. It returns nil if img is nil, empty or cannot be encoded.
func EncodeJPEG(img image.Image) []byte {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil
	}
	return buf.Bytes()
}

// DecodeImage decodes an encoded raster of any registered format into an editable RGBA image.
// It returns nil when the data cannot be decoded or decodes to an empty image.
func DecodeImage(data []byte) *image.RGBA {
	if len(data) == 0 {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil || img.Bounds().Empty() {
		return nil
	}
	return ToRGBA(img)
}

// ReadImageFromFile decodes the still image at path. PNG, JPEG, GIF, BMP, TIFF, WebP, PPM and QOI
// are supported.
func ReadImageFromFile(path string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", path)
	}
	if img.Bounds().Empty() {
		return nil, errors.Errorf("image %q is empty", path)
	}
	return img, nil
}
