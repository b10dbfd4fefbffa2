package videoplayer

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/videoplayer/display"
	"go.viam.com/videoplayer/display/headless"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/videosource"
)

// frameRecognizer displays every well formed frame as is and records what it saw.
type frameRecognizer struct {
	mu   sync.Mutex
	seqs []uint64
}

func (r *frameRecognizer) Recognize(ctx context.Context, frame videosource.Frame) (image.Image, bool) {
	r.mu.Lock()
	r.seqs = append(r.seqs, frame.Seq)
	r.mu.Unlock()
	img := rimage.FrameToImage(frame)
	if img == nil {
		return nil, false
	}
	return img, true
}

func (r *frameRecognizer) Seen() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seqs...)
}

func newTestSink(t *testing.T) (*display.Sink, *headless.Surface) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	surface := headless.NewSurface("test", logger)
	sink, err := display.NewSink(surface, 1, logger)
	test.That(t, err, test.ShouldBeNil)
	return sink, surface
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("playback did not finish")
	}
}

// advanceUntil moves the mock clock forward in small steps until cond holds.
func advanceUntil(t *testing.T, mock *clock.Mock, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never held")
		}
		mock.Add(10 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)
	return path
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, f.Close(), test.ShouldBeNil)
	}()
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
	return path
}
