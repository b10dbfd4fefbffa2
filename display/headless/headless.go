// Package headless implements a display surface that shows nothing. It keeps the last image so
// it can be used by tests and on machines without a screen.
package headless

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/display"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
)

// Model is the registry name of the headless surface.
const Model = "headless"

func init() {
	registry.RegisterSurface(Model, func(
		ctx context.Context,
		title string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (display.Surface, error) {
		return NewSurface(title, logger), nil
	})
}

// MaxRecordedCalls is how many of the most recent presentations a Surface keeps.
const MaxRecordedCalls = 256

// Call records one Resize followed by Present.
type Call struct {
	Width, Height int
	Bounds        image.Rectangle
}

// Surface is a display.Surface that records what it is asked to show.
type Surface struct {
	title  string
	logger logging.Logger

	mu            sync.Mutex
	width, height int
	calls         []Call
	presented     uint64
	last          image.Image
	closed        bool
}

// NewSurface returns an open headless surface.
func NewSurface(title string, logger logging.Logger) *Surface {
	return &Surface{title: title, logger: logger}
}

// Resize records the requested size.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// Present records img. It fails if img does not match the last Resize.
func (s *Surface) Present(img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("surface is closed")
	}
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return errors.Errorf("image is %dx%d but surface is %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if len(s.calls) == MaxRecordedCalls {
		s.calls = s.calls[1:]
	}
	s.calls = append(s.calls, Call{Width: s.width, Height: s.height, Bounds: b})
	s.presented++
	s.last = img
	s.logger.Debugw("present", "title", s.title, "width", b.Dx(), "height", b.Dy(), "count", s.presented)
	return nil
}

// Close marks the surface closed.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Calls returns the most recent successful presentations, at most MaxRecordedCalls, oldest
// first.
func (s *Surface) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Presented returns how many images were presented in total.
func (s *Surface) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// Last returns the last image presented.
func (s *Surface) Last() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Title returns the title given at construction.
func (s *Surface) Title() string {
	return s.title
}
