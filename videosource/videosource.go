// Package videosource defines decoded video frames and the Grabber interface that produces them.
package videosource

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// ErrEndOfStream is returned by Grabber.Next once the source has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// PixelFormat describes the layout of Frame.Data.
type PixelFormat int

const (
	// PixelFormatRGB24 is packed 8-bit R, G, B.
	PixelFormatRGB24 PixelFormat = iota
	// PixelFormatBGR24 is packed 8-bit B, G, R, the layout OpenCV decodes to.
	PixelFormatBGR24
	// PixelFormatGray8 is one 8-bit luminance sample per pixel.
	PixelFormatGray8
)

// BytesPerPixel returns the packed size of one pixel, or 0 for an unknown format.
func (pf PixelFormat) BytesPerPixel() int {
	switch pf {
	case PixelFormatRGB24, PixelFormatBGR24:
		return 3
	case PixelFormatGray8:
		return 1
	default:
		return 0
	}
}

func (pf PixelFormat) String() string {
	switch pf {
	case PixelFormatRGB24:
		return "rgb24"
	case PixelFormatBGR24:
		return "bgr24"
	case PixelFormatGray8:
		return "gray8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(pf))
	}
}

// Frame is a single decoded raster as it comes out of a decoder. It is owned by the caller of
// Grabber.Next for one recognition cycle and must not be retained.
type Frame struct {
	// Seq is the zero based position of the frame in the stream.
	Seq uint64
	// Timestamp is the presentation time relative to the start of the stream, if known.
	Timestamp time.Duration
	Width     int
	Height    int
	Format    PixelFormat
	// Data is tightly packed, row major, Width*Height*Format.BytesPerPixel() bytes.
	Data []byte
}

// Empty reports whether the frame lacks usable pixel data: no dimensions, an unknown format,
// dimensions too large to address or a buffer too short for the dimensions.
func (f Frame) Empty() bool {
	bpp := f.Format.BytesPerPixel()
	if f.Width <= 0 || f.Height <= 0 || bpp == 0 {
		return true
	}
	if f.Width > math.MaxInt/f.Height/bpp {
		return true
	}
	return len(f.Data) < f.Width*f.Height*bpp
}

// Grabber decodes a video source into a sequence of Frames.
type Grabber interface {
	// Start opens the source. A failure is returned as a *StartError.
	Start(ctx context.Context) error
	// Next returns the next decoded frame, ErrEndOfStream when exhausted, or any other error for
	// a frame that could not be grabbed. Callers may keep calling Next after a non end of stream
	// error.
	Next(ctx context.Context) (Frame, error)
	Close(ctx context.Context) error
}

// StartError is returned when a grabber cannot open its source.
type StartError struct {
	Source string
	Err    error
}

// NewStartError wraps err as a *StartError for source.
func NewStartError(source string, err error) error {
	return &StartError{Source: source, Err: err}
}

func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start grabber for %q: %v", e.Source, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
