// Package fake implements a scriptable in-memory grabber used by tests and demos.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/videosource"
)

// Model is the registry name of the fake grabber.
const Model = "fake"

const (
	defaultFrames = 30
	defaultWidth  = 320
	defaultHeight = 240
	frameDuration = 33 * time.Millisecond
)

func init() {
	registry.RegisterGrabber(Model, func(
		ctx context.Context,
		source string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (videosource.Grabber, error) {
		conf, err := config.TransformAttributeMapToStruct[Config](attrs)
		if err != nil {
			return nil, err
		}
		if err := conf.Validate(); err != nil {
			return nil, err
		}
		return NewSyntheticGrabber(conf.frames(), conf.width(), conf.height()), nil
	})
}

// Config are the attributes of the fake grabber.
type Config struct {
	Frames int `json:"frames,omitempty"`
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Validate checks that the attributes are usable.
func (conf Config) Validate() error {
	if conf.Frames < 0 || conf.Width < 0 || conf.Height < 0 {
		return errors.Errorf("fake grabber attributes must not be negative: %+v", conf)
	}
	return nil
}

func (conf Config) frames() int {
	if conf.Frames == 0 {
		return defaultFrames
	}
	return conf.Frames
}

func (conf Config) width() int {
	if conf.Width == 0 {
		return defaultWidth
	}
	return conf.Width
}

func (conf Config) height() int {
	if conf.Height == 0 {
		return defaultHeight
	}
	return conf.Height
}

// Step is one scripted result of Next: a frame, or an error when Err is set.
type Step struct {
	Frame videosource.Frame
	Err   error
}

// Grabber replays a fixed script of steps and then reports end of stream.
type Grabber struct {
	mu       sync.Mutex
	steps    []Step
	pos      int
	started  bool
	closed   bool
	startErr error

	nextCalls int
}

// NewGrabber returns a grabber that yields the given frames in order.
func NewGrabber(frames ...videosource.Frame) *Grabber {
	steps := make([]Step, 0, len(frames))
	for _, f := range frames {
		steps = append(steps, Step{Frame: f})
	}
	return NewScriptedGrabber(steps...)
}

// NewScriptedGrabber returns a grabber that replays steps in order.
func NewScriptedGrabber(steps ...Step) *Grabber {
	return &Grabber{steps: steps}
}

// NewSyntheticGrabber returns a grabber yielding n generated RGB frames of the given size.
func NewSyntheticGrabber(n, width, height int) *Grabber {
	frames := make([]videosource.Frame, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, SyntheticFrame(uint64(i), width, height))
	}
	return NewGrabber(frames...)
}

// FailStart makes Start return err.
func (g *Grabber) FailStart(err error) *Grabber {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startErr = err
	return g
}

// Start opens the fake source.
func (g *Grabber) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.startErr != nil {
		return videosource.NewStartError(Model, g.startErr)
	}
	if g.closed {
		return videosource.NewStartError(Model, errors.New("grabber closed"))
	}
	g.started = true
	return nil
}

// Next returns the next scripted step.
func (g *Grabber) Next(ctx context.Context) (videosource.Frame, error) {
	if err := ctx.Err(); err != nil {
		return videosource.Frame{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextCalls++
	if !g.started || g.closed {
		return videosource.Frame{}, errors.New("fake grabber is not running")
	}
	if g.pos >= len(g.steps) {
		return videosource.Frame{}, videosource.ErrEndOfStream
	}
	step := g.steps[g.pos]
	g.pos++
	return step.Frame, step.Err
}

// Close stops the grabber. Subsequent Next calls fail.
func (g *Grabber) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// NextCalls returns how many times Next was called.
func (g *Grabber) NextCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextCalls
}

// Closed reports whether Close was called.
func (g *Grabber) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// SyntheticFrame draws a horizontal gradient with a dark square that moves with seq, so
// consecutive frames differ and simple detectors have something to find.
func SyntheticFrame(seq uint64, width, height int) videosource.Frame {
	data := make([]byte, width*height*3)
	side := height / 4
	if side < 1 {
		side = 1
	}
	span := width - side
	if span < 1 {
		span = 1
	}
	x0 := int(seq*4) % span
	y0 := (height - side) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			if x >= x0 && x < x0+side && y >= y0 && y < y0+side {
				data[i], data[i+1], data[i+2] = 16, 16, 16
				continue
			}
			v := byte(64 + x*160/width)
			data[i], data[i+1], data[i+2] = v, v, 200
		}
	}
	return videosource.Frame{
		Seq:       seq,
		Timestamp: time.Duration(seq) * frameDuration,
		Width:     width,
		Height:    height,
		Format:    videosource.PixelFormatRGB24,
		Data:      data,
	}
}
