// Package display presents recognition results on a display surface.
package display

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"

	"go.viam.com/videoplayer/logging"
)

// Surface is something an image can be shown on, e.g. a window.
type Surface interface {
	// Resize sets the surface to exactly width by height pixels.
	Resize(width, height int)
	// Present shows img. The surface has already been resized to img's dimensions.
	Present(img image.Image) error
	Close() error
}

// Sink resizes a Surface to each result and presents it synchronously.
type Sink struct {
	surface   Surface
	scale     float64
	logger    logging.Logger
	presented atomic.Uint64
	failed    atomic.Uint64
}

// NewSink returns a Sink drawing on surface. A scale other than 0 or 1 resizes every image
// before it is presented. The surface is borrowed, not owned.
func NewSink(surface Surface, scale float64, logger logging.Logger) (*Sink, error) {
	if surface == nil {
		return nil, errors.New("display sink requires a surface")
	}
	if scale < 0 {
		return nil, errors.Errorf("display scale must not be negative, got %v", scale)
	}
	if scale == 0 {
		scale = 1
	}
	return &Sink{surface: surface, scale: scale, logger: logger}, nil
}

// Show presents img and reports whether it reached the surface. Nil or empty images, and images
// that scale down to nothing, are ignored. A failure to present is logged and counted, never
// returned, so one bad frame does not stop playback.
func (s *Sink) Show(ctx context.Context, img image.Image) bool {
	_, span := trace.StartSpan(ctx, "display::Show")
	defer span.End()

	if img == nil || img.Bounds().Empty() {
		return false
	}
	if s.scale != 1 {
		b := img.Bounds()
		w := int(float64(b.Dx())*s.scale + 0.5)
		h := int(float64(b.Dy())*s.scale + 0.5)
		if w < 1 || h < 1 {
			return false
		}
		img = imaging.Resize(img, w, h, imaging.Linear)
	}
	b := img.Bounds()
	s.surface.Resize(b.Dx(), b.Dy())
	if err := s.surface.Present(img); err != nil {
		s.failed.Inc()
		s.logger.Warnw("failed to present frame", "error", err)
		return false
	}
	s.presented.Inc()
	return true
}

// Presented returns how many images were presented successfully.
func (s *Sink) Presented() uint64 {
	return s.presented.Load()
}

// Failed returns how many images the surface rejected.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}
