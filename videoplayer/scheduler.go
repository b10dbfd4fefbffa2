package videoplayer

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/utils"
	"go.viam.com/videoplayer/videosource"
)

// A Presenter shows recognition results and reports whether img was actually presented.
// display.Sink is one.
type Presenter interface {
	Show(ctx context.Context, img image.Image) bool
}

// SchedulerConfig controls the acquisition loop.
type SchedulerConfig struct {
	// FrameInterval is how long the loop waits before pulling the first frame. Without
	// Throttle it is not applied again and frames are pulled as fast as they decode. Zero means
	// config.DefaultFrameInterval.
	FrameInterval time.Duration
	// Throttle starts grabs no closer together than FrameInterval.
	Throttle bool
	// MaxConsecutiveGrabErrors ends playback after that many failed grabs in a row. Zero
	// never gives up.
	MaxConsecutiveGrabErrors int
}

// Stats counts what the loop has done so far.
type Stats struct {
	// Frames is the number of frames pulled and dispatched.
	Frames uint64
	// Displayed is the number of frames whose image was presented.
	Displayed uint64
	// Skipped is the number of dispatched frames that produced nothing.
	Skipped uint64
	// Dropped is the number of images the presenter did not present.
	Dropped uint64
	// GrabErrors is the number of failed grabs.
	GrabErrors uint64
}

// Scheduler pulls frames from a grabber one at a time, dispatches them and presents the results,
// on a single background goroutine, until the stream ends.
type Scheduler struct {
	grabber    videosource.Grabber
	dispatcher *Dispatcher
	presenter  Presenter
	conf       SchedulerConfig
	clock      clock.Clock
	logger     logging.Logger

	startOnce sync.Once
	workers   utils.StoppableWorkers
	done      chan struct{}
	err       error

	frames     atomic.Uint64
	displayed  atomic.Uint64
	skipped    atomic.Uint64
	dropped    atomic.Uint64
	grabErrors atomic.Uint64
}

// NewScheduler returns a dormant scheduler. The grabber is owned by the scheduler from here on
// and is closed when the loop exits. A nil clk uses the wall clock.
func NewScheduler(
	grabber videosource.Grabber,
	dispatcher *Dispatcher,
	presenter Presenter,
	conf SchedulerConfig,
	clk clock.Clock,
	logger logging.Logger,
) (*Scheduler, error) {
	if grabber == nil || dispatcher == nil || presenter == nil {
		return nil, errors.New("scheduler requires a grabber, a dispatcher and a presenter")
	}
	if conf.FrameInterval < 0 {
		return nil, errors.Errorf("frame interval must not be negative, got %v", conf.FrameInterval)
	}
	if conf.FrameInterval == 0 {
		conf.FrameInterval = config.DefaultFrameInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		grabber:    grabber,
		dispatcher: dispatcher,
		presenter:  presenter,
		conf:       conf,
		clock:      clk,
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

// Start launches the loop and returns immediately. Calling it again does nothing.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.workers = utils.NewStoppableWorkers(s.run)
	})
}

// Done is closed once the loop has exited, for whatever reason.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err returns why the loop ended early: a grabber start failure or too many grab errors. It is
// nil at end of stream or after Stop, and only meaningful once Done is closed.
func (s *Scheduler) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stop cancels the loop and waits for it to exit. Safe to call at any time.
func (s *Scheduler) Stop() {
	s.startOnce.Do(func() {
		// never started; nothing will close done otherwise
		close(s.done)
		s.closeGrabber()
	})
	if s.workers != nil {
		s.workers.Stop()
	}
	<-s.done
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Frames:     s.frames.Load(),
		Displayed:  s.displayed.Load(),
		Skipped:    s.skipped.Load(),
		Dropped:    s.dropped.Load(),
		GrabErrors: s.grabErrors.Load(),
	}
}

func (s *Scheduler) closeGrabber() {
	// the loop context may already be cancelled; closing must still run
	if err := s.grabber.Close(context.Background()); err != nil {
		s.logger.Warnw("error closing grabber", "error", err)
	}
}

// sleep waits d on the scheduler's clock. It returns false if ctx ended first.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := s.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	defer s.closeGrabber()

	if err := s.grabber.Start(ctx); err != nil {
		s.err = err
		s.logger.Errorw("cannot start grabber, playback will not proceed", "error", err)
		return
	}
	if !s.sleep(ctx, s.conf.FrameInterval) {
		return
	}
	s.logger.Debugw("playback started", "mode", s.dispatcher.Mode(), "throttle", s.conf.Throttle)

	var limiter *rate.Limiter
	if s.conf.Throttle {
		limiter = rate.NewLimiter(rate.Every(s.conf.FrameInterval), 1)
	}
	consecutiveErrors := 0
	for {
		if ctx.Err() != nil {
			s.logger.Debugw("playback stopped", "stats", s.Stats())
			return
		}
		if limiter != nil {
			now := s.clock.Now()
			if !s.sleep(ctx, limiter.ReserveN(now, 1).DelayFrom(now)) {
				s.logger.Debugw("playback stopped", "stats", s.Stats())
				return
			}
		}
		frame, err := s.grabber.Next(ctx)
		if err != nil {
			if errors.Is(err, videosource.ErrEndOfStream) {
				s.logger.Infow("end of stream", "stats", s.Stats())
				return
			}
			if ctx.Err() != nil {
				continue
			}
			s.grabErrors.Inc()
			consecutiveErrors++
			s.logger.Warnw("failed to grab frame, skipping", "error", err, "consecutive", consecutiveErrors)
			if limit := s.conf.MaxConsecutiveGrabErrors; limit > 0 && consecutiveErrors >= limit {
				s.err = errors.Wrapf(err, "giving up after %d consecutive grab errors", consecutiveErrors)
				s.logger.Errorw("too many grab errors, playback will stop", "error", s.err)
				return
			}
		} else {
			consecutiveErrors = 0
			s.process(ctx, frame)
		}
	}
}

func (s *Scheduler) process(ctx context.Context, frame videosource.Frame) {
	s.frames.Inc()
	img, ok := s.dispatcher.Dispatch(ctx, frame)
	if !ok {
		s.skipped.Inc()
		return
	}
	if !s.presenter.Show(ctx, img) {
		s.dropped.Inc()
		return
	}
	s.displayed.Inc()
}
