package brute

import (
	"context"
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"

	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/vision/templatematch"
)

// pattern returns a deterministic, non repeating gray image.
func pattern(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*37 + y*91 + x*y*13) % 251)
		}
	}
	return img
}

func crop(img *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], img.Pix[(r.Min.Y+y)*img.Stride+r.Min.X:])
	}
	return out
}

func TestLocateFindsExactCrop(t *testing.T) {
	search := pattern(40, 30)
	template := crop(search, image.Rect(13, 9, 21, 15))

	for m := templatematch.SqDiff; m <= templatematch.CCoeffNormed; m++ {
		if m == templatematch.CCorr || m == templatematch.CCoeff {
			// the unnormalized scores favor bright or high contrast areas, not exact matches
			continue
		}
		t.Run(m.String(), func(t *testing.T) {
			loc, _, err := Locate(context.Background(), search, template, m)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, loc, test.ShouldResemble, image.Pt(13, 9))
		})
	}
}

func TestLocateScores(t *testing.T) {
	search := pattern(20, 20)
	template := crop(search, image.Rect(4, 4, 10, 10))

	_, s, err := Locate(context.Background(), search, template, templatematch.SqDiff)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldAlmostEqual, 0)

	_, s, err = Locate(context.Background(), search, template, templatematch.CCoeffNormed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestLocateErrors(t *testing.T) {
	small := pattern(4, 4)
	big := pattern(8, 8)
	_, _, err := Locate(context.Background(), small, big, templatematch.SqDiff)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = Locate(context.Background(), big, image.NewGray(image.Rectangle{}), templatematch.SqDiff)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = Locate(context.Background(), big, small, templatematch.MatchMethod(9))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatchOutlinesBestPlacement(t *testing.T) {
	reg, err := registry.LookupMatcher(Model)
	test.That(t, err, test.ShouldBeNil)
	matcher, err := reg.Constructor(context.Background(), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	gray := pattern(60, 40)
	search := image.NewRGBA(gray.Bounds())
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			v := gray.GrayAt(x, y).Y
			search.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	template := crop(gray, image.Rect(30, 10, 50, 30))

	out, err := matcher.Match(context.Background(), search, template, templatematch.SqDiff)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds(), test.ShouldResemble, search.Bounds())
	// top edge of the outline at (40, 10) is red
	r, g, b, _ := out.At(40, 10).RGBA()
	test.That(t, r>>8, test.ShouldBeGreaterThan, 200)
	test.That(t, g>>8, test.ShouldBeLessThan, 60)
	test.That(t, b>>8, test.ShouldBeLessThan, 60)
	// the search image is not modified
	test.That(t, search.RGBAAt(40, 10).R, test.ShouldEqual, gray.GrayAt(40, 10).Y)
}

func TestNewMatcherRejectsBadColor(t *testing.T) {
	_, err := NewMatcher(Config{Color: "not a color"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLocateTiesPickFirstPlacement(t *testing.T) {
	search := image.NewGray(image.Rect(0, 0, 24, 18))
	for i := range search.Pix {
		search.Pix[i] = 90
	}
	template := crop(search, image.Rect(0, 0, 5, 5))
	loc, s, err := Locate(context.Background(), search, template, templatematch.SqDiff)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loc, test.ShouldResemble, image.Pt(0, 0))
	test.That(t, s, test.ShouldAlmostEqual, 0)
}

func TestLocateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	search := pattern(30, 30)
	_, _, err := Locate(ctx, search, crop(search, image.Rect(2, 2, 6, 6)), templatematch.SqDiff)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
