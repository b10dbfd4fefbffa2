package headless

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"

	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
)

func TestSurface(t *testing.T) {
	s := NewSurface("title", logging.NewTestLogger(t))
	test.That(t, s.Title(), test.ShouldEqual, "title")

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	test.That(t, s.Present(img), test.ShouldNotBeNil)

	s.Resize(4, 3)
	test.That(t, s.Present(img), test.ShouldBeNil)
	test.That(t, s.Last(), test.ShouldEqual, img)
	test.That(t, s.Calls(), test.ShouldHaveLength, 1)

	test.That(t, s.Close(), test.ShouldBeNil)
	test.That(t, s.Present(img), test.ShouldNotBeNil)
}

func TestSurfaceKeepsRecentCalls(t *testing.T) {
	s := NewSurface("title", logging.NewTestLogger(t))
	const total = MaxRecordedCalls + 5
	for i := 1; i <= total; i++ {
		s.Resize(i, 1)
		test.That(t, s.Present(image.NewGray(image.Rect(0, 0, i, 1))), test.ShouldBeNil)
	}
	calls := s.Calls()
	test.That(t, calls, test.ShouldHaveLength, MaxRecordedCalls)
	test.That(t, calls[0].Width, test.ShouldEqual, 6)
	test.That(t, calls[len(calls)-1].Width, test.ShouldEqual, total)
	test.That(t, s.Presented(), test.ShouldEqual, uint64(total))
}

func TestRegistered(t *testing.T) {
	reg, err := registry.LookupSurface(Model)
	test.That(t, err, test.ShouldBeNil)
	surface, err := reg.Constructor(context.Background(), "player", nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, surface.(*Surface).Title(), test.ShouldEqual, "player")
}
