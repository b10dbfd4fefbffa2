package rimage

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/lmittmann/ppm"
	"github.com/xfmoulet/qoi"
	"go.viam.com/test"
)

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	return img
}

func TestJPEGRoundTripKeepsDimensions(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {7, 3}, {64, 48}, {321, 241}} {
		img := gradient(size.X, size.Y)
		data := EncodeJPEG(img)
		test.That(t, data, test.ShouldNotBeEmpty)

		decoded := DecodeImage(data)
		test.That(t, decoded, test.ShouldNotBeNil)
		test.That(t, decoded.Bounds().Dx(), test.ShouldEqual, size.X)
		test.That(t, decoded.Bounds().Dy(), test.ShouldEqual, size.Y)
	}
}

func TestCodecSentinels(t *testing.T) {
	test.That(t, EncodeJPEG(nil), test.ShouldBeNil)
	test.That(t, EncodeJPEG(image.NewRGBA(image.Rectangle{})), test.ShouldBeNil)
	test.That(t, DecodeImage(nil), test.ShouldBeNil)
	test.That(t, DecodeImage([]byte("definitely not an image")), test.ShouldBeNil)
}

func TestReadImageFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.png")
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, gradient(12, 9)), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	img, err := ReadImageFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 12)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 9)

	bad := filepath.Join(dir, "bad.png")
	test.That(t, os.WriteFile(bad, []byte("nope"), 0o600), test.ShouldBeNil)
	_, err = ReadImageFromFile(bad)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadImageFromFile(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadImageFromFileLosslessFormats(t *testing.T) {
	src := gradient(10, 6)
	for name, encode := range map[string]func(io.Writer, image.Image) error{
		"template.ppm": ppm.Encode,
		"template.qoi": qoi.Encode,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			f, err := os.Create(path)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, encode(f, src), test.ShouldBeNil)
			test.That(t, f.Close(), test.ShouldBeNil)

			img, err := ReadImageFromFile(path)
			test.That(t, err, test.ShouldBeNil)
			got := ToRGBA(img)
			test.That(t, got.Bounds(), test.ShouldResemble, src.Bounds())
			test.That(t, got.RGBAAt(7, 4), test.ShouldResemble, src.RGBAAt(7, 4))
		})
	}
}
