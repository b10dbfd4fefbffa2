// Package rimage converts between decoded video frames, editable in-memory images and encoded
// byte rasters, and holds the image helpers the recognizers need.
package rimage

import (
	"image"
	"image/color"
	"image/draw"

	"go.viam.com/videoplayer/videosource"
)

// FrameToImage converts a decoder frame into an editable RGBA image with its origin at (0, 0).
// It returns nil for an empty or malformed frame.
func FrameToImage(frame videosource.Frame) *image.RGBA {
	if frame.Empty() {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	bpp := frame.Format.BytesPerPixel()
	src := frame.Data
	dst := img.Pix
	n := frame.Width * frame.Height
	for i := 0; i < n; i++ {
		s := src[i*bpp : i*bpp+bpp]
		d := dst[i*4 : i*4+4]
		switch frame.Format {
		case videosource.PixelFormatRGB24:
			d[0], d[1], d[2] = s[0], s[1], s[2]
		case videosource.PixelFormatBGR24:
			d[0], d[1], d[2] = s[2], s[1], s[0]
		case videosource.PixelFormatGray8:
			d[0], d[1], d[2] = s[0], s[0], s[0]
		}
		d[3] = 0xff
	}
	return img
}

// ImageToFrame packs img into an RGB24 frame. Alpha is dropped.
func ImageToFrame(img image.Image) videosource.Frame {
	if img == nil || img.Bounds().Empty() {
		return videosource.Frame{}
	}
	rgba := ToRGBA(img)
	bounds := rgba.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]byte, 0, width*height*3)
	for y := 0; y < height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		for x := 0; x < width; x++ {
			data = append(data, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return videosource.Frame{
		Width:  width,
		Height: height,
		Format: videosource.PixelFormatRGB24,
		Data:   data,
	}
}

// ToRGBA returns img as an *image.RGBA with its origin at (0, 0). An *image.RGBA already at the
// origin is returned as is, anything else is copied.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	return CloneRGBA(img)
}

// CloneRGBA copies img into a new RGBA image with its origin at (0, 0).
func CloneRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Dx() == g2.Bounds().Dx() && g1.Bounds().Dy() == g2.Bounds().Dy()
}

// Red is the default annotation color.
var Red = color.RGBA{R: 255, A: 255}
