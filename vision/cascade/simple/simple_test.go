package simple

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/videosource/fake"
	"go.viam.com/videoplayer/vision/cascade"
)

func whiteGray(w, h int) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for i := range gray.Pix {
		gray.Pix[i] = 255
	}
	return gray
}

func fill(gray *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			gray.Pix[y*gray.Stride+x] = v
		}
	}
}

func TestDetect(t *testing.T) {
	c, err := NewClassifier(Config{})
	test.That(t, err, test.ShouldBeNil)

	gray := whiteGray(40, 30)
	fill(gray, image.Rect(2, 3, 10, 9), 0)
	fill(gray, image.Rect(20, 10, 30, 25), 10)
	// too small
	fill(gray, image.Rect(35, 1, 37, 3), 0)
	// not dark enough
	fill(gray, image.Rect(0, 20, 10, 30), 100)

	rects, err := c.Detect(context.Background(), gray)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rects, test.ShouldResemble, []image.Rectangle{
		image.Rect(2, 3, 10, 9),
		image.Rect(20, 10, 30, 25),
	})

	// deterministic
	again, err := c.Detect(context.Background(), gray)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, rects)
}

func TestDetectNothing(t *testing.T) {
	c, err := NewClassifier(Config{Threshold: 10, MinArea: 1})
	test.That(t, err, test.ShouldBeNil)
	rects, err := c.Detect(context.Background(), whiteGray(8, 8))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rects, test.ShouldBeEmpty)
}

func TestNewClassifierValidates(t *testing.T) {
	_, err := NewClassifier(Config{Threshold: 300})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewClassifier(Config{MinArea: -1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFindsSyntheticSquare(t *testing.T) {
	reg, err := registry.LookupClassifier(Model)
	test.That(t, err, test.ShouldBeNil)
	classifier, err := reg.Constructor(context.Background(), "", config.AttributeMap{"min_area": 50}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	r, err := cascade.NewRecognizer(classifier, cascade.Options{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// a 30px square centered at (55, 60); equalization also darkens the far left of the gradient
	frame := fake.SyntheticFrame(10, 160, 120)
	rects, ok, err := r.Detect(context.Background(), frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)

	var square []image.Rectangle
	for _, rect := range rects {
		if image.Pt(55, 60).In(rect) {
			square = append(square, rect)
		}
	}
	test.That(t, square, test.ShouldHaveLength, 1)
	// jpeg blurs the edges a little
	test.That(t, square[0].Dx(), test.ShouldBeBetweenOrEqual, 28, 44)
	test.That(t, square[0].Dy(), test.ShouldBeBetweenOrEqual, 28, 44)
}
