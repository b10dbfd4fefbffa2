package opencv

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/videosource"
)

// VideoGrabber decodes a file or stream URL with cv::VideoCapture.
type VideoGrabber struct {
	source string
	logger logging.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
	fps     float64
	seq     uint64
	done    bool
}

// NewVideoGrabber returns a grabber for source. Nothing is opened until Start.
func NewVideoGrabber(source string, logger logging.Logger) *VideoGrabber {
	return &VideoGrabber{source: source, logger: logger}
}

// Start opens the capture.
func (g *VideoGrabber) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.capture != nil {
		return videosource.NewStartError(g.source, errors.New("already started"))
	}
	capture, err := gocv.VideoCaptureFile(g.source)
	if err != nil {
		return videosource.NewStartError(g.source, err)
	}
	if !capture.IsOpened() {
		//nolint:errcheck
		capture.Close()
		return videosource.NewStartError(g.source, errors.New("capture did not open"))
	}
	g.capture = capture
	g.mat = gocv.NewMat()
	g.fps = capture.Get(gocv.VideoCaptureFPS)
	g.logger.Debugw("video opened",
		"source", g.source,
		"fps", g.fps,
		"frames", int64(capture.Get(gocv.VideoCaptureFrameCount)),
		"width", int64(capture.Get(gocv.VideoCaptureFrameWidth)),
		"height", int64(capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	return nil
}

// Next reads the next frame. A failed read means the end of the file.
func (g *VideoGrabber) Next(ctx context.Context) (videosource.Frame, error) {
	if err := ctx.Err(); err != nil {
		return videosource.Frame{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.capture == nil {
		return videosource.Frame{}, errors.New("opencv grabber not started")
	}
	if g.done || !g.capture.Read(&g.mat) {
		g.done = true
		return videosource.Frame{}, videosource.ErrEndOfStream
	}
	seq := g.seq
	g.seq++
	if g.mat.Empty() {
		return videosource.Frame{Seq: seq}, nil
	}

	format := videosource.PixelFormatBGR24
	switch g.mat.Channels() {
	case 3:
	case 1:
		format = videosource.PixelFormatGray8
	default:
		return videosource.Frame{}, errors.Errorf("frame %d has %d channels", seq, g.mat.Channels())
	}
	var ts time.Duration
	if g.fps > 0 {
		ts = time.Duration(float64(seq) / g.fps * float64(time.Second))
	}
	return videosource.Frame{
		Seq:       seq,
		Timestamp: ts,
		Width:     g.mat.Cols(),
		Height:    g.mat.Rows(),
		Format:    format,
		Data:      g.mat.ToBytes(),
	}, nil
}

// Close releases the capture.
func (g *VideoGrabber) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.capture == nil {
		return nil
	}
	g.done = true
	err := g.capture.Close()
	if matErr := g.mat.Close(); err == nil {
		err = matErr
	}
	g.capture = nil
	return err
}
