package videoplayer

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"go.viam.com/videoplayer/videosource"
)

// A Recognizer turns a frame into an image ready for display. ok is false when the frame
// produced nothing to show.
type Recognizer interface {
	Recognize(ctx context.Context, frame videosource.Frame) (img image.Image, ok bool)
}

// Dispatcher routes every frame to the recognizer of its mode. It never touches the frame
// itself.
type Dispatcher struct {
	mode     Mode
	cascade  Recognizer
	template Recognizer
}

// NewDispatcher returns a dispatcher for mode. Only the recognizer the mode routes to is
// required. Any mode other than TemplateMatch routes to the cascade recognizer.
func NewDispatcher(mode Mode, cascade, template Recognizer) (*Dispatcher, error) {
	if mode == TemplateMatch {
		if template == nil {
			return nil, errors.New("template mode requires a template recognizer")
		}
	} else if cascade == nil {
		return nil, errors.Errorf("mode %v requires a cascade recognizer", mode)
	}
	return &Dispatcher{mode: mode, cascade: cascade, template: template}, nil
}

// Mode returns the mode frames are routed by.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Dispatch runs frame through the selected recognizer.
func (d *Dispatcher) Dispatch(ctx context.Context, frame videosource.Frame) (image.Image, bool) {
	switch d.mode {
	case TemplateMatch:
		return d.template.Recognize(ctx, frame)
	case CascadeDetection:
		return d.cascade.Recognize(ctx, frame)
	default:
		return d.cascade.Recognize(ctx, frame)
	}
}
