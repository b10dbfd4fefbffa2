package rimage

import (
	"image"
	"image/color"
	"testing"

	"github.com/fogleman/gg"
	"go.viam.com/test"
)

func TestDrawRectangleEmpty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	dc := gg.NewContextForRGBA(img)
	DrawRectangleEmpty(dc, image.Rect(10, 10, 40, 30), Red, 2)

	onEdge := img.RGBAAt(25, 10)
	test.That(t, onEdge.R, test.ShouldBeGreaterThan, 200)
	test.That(t, onEdge.G, test.ShouldBeLessThan, 50)

	// the inside stays untouched
	test.That(t, img.RGBAAt(25, 20), test.ShouldResemble, color.RGBA{})
}

func TestClipRectangle(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)
	test.That(t, ClipRectangle(image.Rect(10, 10, 20, 20), bounds), test.ShouldResemble, image.Rect(10, 10, 20, 20))
	test.That(t, ClipRectangle(image.Rect(-5, 40, 120, 70), bounds), test.ShouldResemble, image.Rect(0, 40, 100, 50))
	test.That(t, ClipRectangle(image.Rect(200, 200, 300, 300), bounds).Empty(), test.ShouldBeTrue)
	// non canonical input
	test.That(t, ClipRectangle(image.Rectangle{Min: image.Pt(20, 20), Max: image.Pt(10, 10)}, bounds), test.ShouldResemble, image.Rect(10, 10, 20, 20))
}

func TestNewColorFromHex(t *testing.T) {
	c, err := NewColorFromHex("#00ff80")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, color.RGBA{0, 255, 128, 255})

	_, err = NewColorFromHex("green")
	test.That(t, err, test.ShouldNotBeNil)
}
