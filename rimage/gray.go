package rimage

import (
	"image"
	"image/draw"
	"math"
)

// MakeGray converts img to single channel grayscale using the standard luma weights.
func MakeGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)
	return result
}

// EqualizeHist spreads the intensity histogram of gray over the full 0-255 range. The mapping
// is the cumulative distribution normalized so the darkest present level becomes 0. A constant
// image is returned unchanged.
func EqualizeHist(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	width, height := bounds.Dx(), bounds.Dy()
	total := width * height
	if total == 0 {
		return out
	}

	var hist [256]int
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		for _, v := range row {
			hist[v]++
		}
	}

	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}

	var lut [256]uint8
	if hist[first] == total {
		for i := range lut {
			lut[i] = uint8(first)
		}
	} else {
		scale := 255.0 / float64(total-hist[first])
		sum := 0
		for i := first + 1; i < 256; i++ {
			sum += hist[i]
			v := math.Round(float64(sum) * scale)
			if v > 255 {
				v = 255
			}
			lut[i] = uint8(v)
		}
	}

	for y := 0; y < height; y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		dst := out.Pix[y*out.Stride : y*out.Stride+width]
		for x, v := range src {
			dst[x] = lut[v]
		}
	}
	return out
}
