// Package ffmpeg implements a grabber that decodes video by piping raw frames out of an ffmpeg
// process.
package ffmpeg

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/videosource"
)

// Model is the registry name of the ffmpeg grabber.
const Model = "ffmpeg"

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
		return NewGrabber(source, conf, logger)
	})
}

// Config are the attributes of the ffmpeg grabber.
type Config struct {
	// InputKWArgs are passed to ffmpeg and ffprobe before the input, e.g. {"f": "lavfi"}.
	InputKWArgs map[string]interface{} `json:"input_kw_args,omitempty"`
	// Width, Height and FrameRate skip probing when Width and Height are set.
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
}

// Grabber reads rgb24 frames from an ffmpeg subprocess.
type Grabber struct {
	source string
	conf   Config
	logger logging.Logger

	mu                      sync.Mutex
	started                 bool
	width, height           int
	frameDuration           time.Duration
	pipe                    *io.PipeReader
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup

	// readMu serializes Next; Close must not wait on it since a read can block on ffmpeg.
	readMu sync.Mutex
	seq    uint64
	done   atomic.Bool
}

// NewGrabber returns a grabber for source. Nothing runs until Start.
func NewGrabber(source string, conf Config, logger logging.Logger) (*Grabber, error) {
	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}
	return &Grabber{source: source, conf: conf, logger: logger}, nil
}

type probeResult struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
}

// parseRate parses ffprobe's "num/den" frame rates.
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func (g *Grabber) probe() (width, height int, fps float64, err error) {
	if g.conf.Width > 0 && g.conf.Height > 0 {
		return g.conf.Width, g.conf.Height, g.conf.FrameRate, nil
	}
	out, err := ffmpeg.Probe(g.source, g.conf.InputKWArgs)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "probe failed")
	}
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, 0, 0, errors.Wrap(err, "cannot parse probe output")
	}
	for _, s := range res.Streams {
		if s.CodecType != "video" {
			continue
		}
		fps = parseRate(s.AvgFrameRate)
		if fps == 0 {
			fps = parseRate(s.RFrameRate)
		}
		return s.Width, s.Height, fps, nil
	}
	return 0, 0, 0, errors.New("no video stream found")
}

// Start probes the source and launches ffmpeg.
func (g *Grabber) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return videosource.NewStartError(g.source, errors.New("already started"))
	}
	width, height, fps, err := g.probe()
	if err != nil {
		return videosource.NewStartError(g.source, err)
	}
	if width <= 0 || height <= 0 {
		return videosource.NewStartError(g.source, errors.Errorf("invalid video size %dx%d", width, height))
	}
	g.width, g.height = width, height
	if fps > 0 {
		g.frameDuration = time.Duration(float64(time.Second) / fps)
	}
	g.logger.Debugw("starting ffmpeg", "source", g.source, "width", width, "height", height, "fps", fps)

	cancelableCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	in, out := io.Pipe()
	g.pipe = in
	g.started = true

	g.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		stream := ffmpeg.Input(g.source, g.conf.InputKWArgs).
			Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "rgb24"})
		stream.Context = cancelableCtx
		err := stream.WithOutput(out).Run()
		if err != nil && cancelableCtx.Err() == nil {
			g.logger.Warnw("ffmpeg exited with error", "source", g.source, "error", err)
		}
		// a nil error shows up as io.EOF on the reading side
		out.CloseWithError(err)
	}, g.activeBackgroundWorkers.Done)
	return nil
}

// Next reads exactly one frame from the pipe.
func (g *Grabber) Next(ctx context.Context) (videosource.Frame, error) {
	if err := ctx.Err(); err != nil {
		return videosource.Frame{}, err
	}
	g.mu.Lock()
	started, pipe := g.started, g.pipe
	width, height, frameDuration := g.width, g.height, g.frameDuration
	g.mu.Unlock()
	if !started {
		return videosource.Frame{}, errors.New("ffmpeg grabber not started")
	}

	g.readMu.Lock()
	defer g.readMu.Unlock()
	if g.done.Load() {
		return videosource.Frame{}, videosource.ErrEndOfStream
	}
	data := make([]byte, width*height*videosource.PixelFormatRGB24.BytesPerPixel())
	_, err := io.ReadFull(pipe, data)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
		g.done.Store(true)
		return videosource.Frame{}, videosource.ErrEndOfStream
	default:
		// a truncated last frame or a dead process; either way nothing more will come
		g.done.Store(true)
		return videosource.Frame{}, errors.Wrapf(err, "reading frame %d", g.seq)
	}
	frame := videosource.Frame{
		Seq:       g.seq,
		Timestamp: time.Duration(g.seq) * frameDuration,
		Width:     width,
		Height:    height,
		Format:    videosource.PixelFormatRGB24,
		Data:      data,
	}
	g.seq++
	return frame, nil
}

// Close kills ffmpeg and waits for it to exit.
func (g *Grabber) Close(ctx context.Context) error {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return nil
	}
	g.done.Store(true)
	g.cancel()
	// unblock ffmpeg if it is waiting on a full pipe
	err := g.pipe.Close()
	g.mu.Unlock()
	g.activeBackgroundWorkers.Wait()
	return err
}
