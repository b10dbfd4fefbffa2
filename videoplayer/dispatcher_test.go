package videoplayer

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/videosource"
	"go.viam.com/videoplayer/videosource/fake"
)

func TestModeFromString(t *testing.T) {
	for _, tc := range []struct {
		in    string
		mode  Mode
		known bool
	}{
		{config.ModeCascade, CascadeDetection, true},
		{config.ModeTemplate, TemplateMatch, true},
		{" Template ", TemplateMatch, true},
		{"", CascadeDetection, false},
		{"sift", CascadeDetection, false},
	} {
		mode, known := ModeFromString(tc.in)
		test.That(t, mode, test.ShouldEqual, tc.mode)
		test.That(t, known, test.ShouldEqual, tc.known)
	}
	test.That(t, CascadeDetection.String(), test.ShouldEqual, "cascade")
	test.That(t, TemplateMatch.String(), test.ShouldEqual, "template")
	test.That(t, Mode(9).String(), test.ShouldEqual, "Mode(9)")
}

func TestNewDispatcherRequiresRecognizer(t *testing.T) {
	_, err := NewDispatcher(TemplateMatch, &frameRecognizer{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDispatcher(CascadeDetection, nil, &frameRecognizer{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDispatcher(Mode(7), nil, &frameRecognizer{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDispatchRoutesByMode(t *testing.T) {
	frame := fake.SyntheticFrame(4, 16, 8)
	for _, tc := range []struct {
		mode         Mode
		wantTemplate bool
	}{
		{CascadeDetection, false},
		{TemplateMatch, true},
		// anything unknown falls back to cascade detection
		{Mode(7), false},
		{Mode(-1), false},
	} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			cascadeRec, templateRec := &frameRecognizer{}, &frameRecognizer{}
			d, err := NewDispatcher(tc.mode, cascadeRec, templateRec)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, d.Mode(), test.ShouldEqual, tc.mode)

			img, ok := d.Dispatch(context.Background(), frame)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, img.Bounds(), test.ShouldResemble, rimage.FrameToImage(frame).Bounds())
			if tc.wantTemplate {
				test.That(t, templateRec.Seen(), test.ShouldResemble, []uint64{4})
				test.That(t, cascadeRec.Seen(), test.ShouldBeEmpty)
			} else {
				test.That(t, cascadeRec.Seen(), test.ShouldResemble, []uint64{4})
				test.That(t, templateRec.Seen(), test.ShouldBeEmpty)
			}
		})
	}
}

func TestDispatchDoesNotTouchFrame(t *testing.T) {
	frame := fake.SyntheticFrame(0, 8, 8)
	before := append([]byte(nil), frame.Data...)
	d, err := NewDispatcher(CascadeDetection, &frameRecognizer{}, nil)
	test.That(t, err, test.ShouldBeNil)
	_, ok := d.Dispatch(context.Background(), frame)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, frame.Data, test.ShouldResemble, before)

	_, ok = d.Dispatch(context.Background(), videosource.Frame{})
	test.That(t, ok, test.ShouldBeFalse)
}
