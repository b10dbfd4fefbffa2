// Package videoplayer plays a video while running every decoded frame through one of two
// recognition strategies and showing the annotated result.
//
// A Session ties the pieces together: a Scheduler pulls frames from a videosource.Grabber on a
// background goroutine, a Dispatcher hands each one to the cascade or the template recognizer,
// and a display.Sink presents whatever comes back.
package videoplayer

import (
	"context"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/videoplayer/display"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/utils"
	"go.viam.com/videoplayer/videosource"
	"go.viam.com/videoplayer/vision/cascade"
	"go.viam.com/videoplayer/vision/templatematch"
)

// SessionConfig describes one playback. It is copied when the session is built and never
// changes afterwards.
type SessionConfig struct {
	// Title names the display window.
	Title string
	// VideoPath is the video source. It must exist on disk.
	VideoPath string

	// ReferencePath is the image to look for in template mode. It must exist on disk.
	ReferencePath string
	// Method is handed to the matcher as is in template mode.
	Method templatematch.MatchMethod

	// Cascade controls how detections are drawn in cascade mode.
	Cascade cascade.Options
	// Scale resizes results before display. 0 and 1 keep the frame size.
	Scale    float64
	Playback SchedulerConfig
	// StatsInterval logs the playback counters this often while playing. Zero disables it.
	StatsInterval time.Duration
}

// A GrabberFactory opens a grabber over the video at source.
type GrabberFactory func(ctx context.Context, source string) (videosource.Grabber, error)

// Dependencies are the external collaborators of a session. The session borrows the classifier,
// the matcher and the surface; it owns the grabber it creates.
type Dependencies struct {
	NewGrabber GrabberFactory
	// Classifier is required in cascade mode.
	Classifier cascade.Classifier
	// Matcher is required in template mode.
	Matcher templatematch.Matcher
	Surface display.Surface
	// Clock drives the scheduler's delays; nil uses the wall clock.
	Clock  clock.Clock
	Logger logging.Logger
}

// Session is one running playback.
type Session struct {
	id        string
	conf      SessionConfig
	mode      Mode
	reference image.Image
	sink      *display.Sink
	scheduler *Scheduler
	reporter  gocron.Scheduler
	logger    logging.Logger
}

// NewCascadeSession checks that the video exists, then starts playing it with cascade detection.
// A missing video is reported as a *utils.FileNotFoundError and nothing is started.
func NewCascadeSession(ctx context.Context, conf SessionConfig, deps Dependencies) (*Session, error) {
	if err := utils.CheckFileExists("video source", conf.VideoPath); err != nil {
		return nil, err
	}
	if deps.Classifier == nil {
		return nil, errors.New("cascade session requires a classifier")
	}
	return newSession(ctx, CascadeDetection, conf, nil, deps)
}

// NewTemplateSession checks that both the reference image and the video exist, loads the
// reference image, then starts playing the video with template matching. A missing file is
// reported as a *utils.FileNotFoundError and nothing is started.
func NewTemplateSession(ctx context.Context, conf SessionConfig, deps Dependencies) (*Session, error) {
	if err := utils.CheckFileExists("reference image", conf.ReferencePath); err != nil {
		return nil, err
	}
	if err := utils.CheckFileExists("video source", conf.VideoPath); err != nil {
		return nil, err
	}
	if deps.Matcher == nil {
		return nil, errors.New("template session requires a matcher")
	}
	reference, err := rimage.ReadImageFromFile(conf.ReferencePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load reference image")
	}
	return newSession(ctx, TemplateMatch, conf, reference, deps)
}

func newSession(
	ctx context.Context,
	mode Mode,
	conf SessionConfig,
	reference image.Image,
	deps Dependencies,
) (*Session, error) {
	if deps.NewGrabber == nil || deps.Surface == nil {
		return nil, errors.New("session requires a grabber factory and a surface")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Global()
	}
	id := uuid.NewString()
	logger = logger.WithFields("session", id)
	s := &Session{
		id:        id,
		conf:      conf,
		mode:      mode,
		reference: reference,
		logger:    logger,
	}

	var cascadeRec, templateRec Recognizer
	switch mode {
	case TemplateMatch:
		rec, err := templatematch.NewRecognizer(deps.Matcher, reference, conf.Method, logger.Sublogger("template"))
		if err != nil {
			return nil, err
		}
		templateRec = rec
	default:
		rec, err := cascade.NewRecognizer(deps.Classifier, conf.Cascade, logger.Sublogger("cascade"))
		if err != nil {
			return nil, err
		}
		cascadeRec = rec
	}
	dispatcher, err := NewDispatcher(mode, cascadeRec, templateRec)
	if err != nil {
		return nil, err
	}
	s.sink, err = display.NewSink(deps.Surface, conf.Scale, logger.Sublogger("display"))
	if err != nil {
		return nil, err
	}
	grabber, err := deps.NewGrabber(ctx, conf.VideoPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create grabber for %q", conf.VideoPath)
	}
	s.scheduler, err = NewScheduler(grabber, dispatcher, s.sink, conf.Playback, deps.Clock, logger.Sublogger("scheduler"))
	if err != nil {
		if closeErr := grabber.Close(ctx); closeErr != nil {
			logger.Warnw("error closing grabber", "error", closeErr)
		}
		return nil, err
	}

	if conf.StatsInterval > 0 {
		if err := s.startReporter(conf.StatsInterval); err != nil {
			s.scheduler.Stop()
			return nil, err
		}
	}

	logger.Infow("starting playback", "title", conf.Title, "mode", mode, "video", conf.VideoPath)
	s.scheduler.Start()
	return s, nil
}

// startReporter schedules logStats every interval until the session is closed.
func (s *Session) startReporter(interval time.Duration) error {
	reporter, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "cannot create stats reporter")
	}
	if _, err := reporter.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.logStats),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return multierr.Combine(errors.Wrap(err, "cannot schedule stats reporting"), reporter.Shutdown())
	}
	reporter.Start()
	s.reporter = reporter
	return nil
}

func (s *Session) logStats() {
	select {
	case <-s.scheduler.Done():
		// counters no longer move
		return
	default:
	}
	s.logger.Infow("playback stats", "stats", s.scheduler.Stats(), "presented", s.sink.Presented())
}

// ID uniquely identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the recognition mode chosen at construction.
func (s *Session) Mode() Mode {
	return s.mode
}

// Config returns a copy of the session's configuration.
func (s *Session) Config() SessionConfig {
	return s.conf
}

// Reference returns the loaded reference image in template mode and nil otherwise.
func (s *Session) Reference() image.Image {
	return s.reference
}

// Done is closed when playback has ended.
func (s *Session) Done() <-chan struct{} {
	return s.scheduler.Done()
}

// Wait blocks until playback ends or ctx is done. It returns the reason playback ended early,
// if any.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.scheduler.Done():
		return s.scheduler.Err()
	}
}

// Stats returns the playback counters.
func (s *Session) Stats() Stats {
	return s.scheduler.Stats()
}

// Presented returns how many images reached the display surface.
func (s *Session) Presented() uint64 {
	return s.sink.Presented()
}

// Close stops playback and waits for the loop to exit. The borrowed collaborators stay open.
func (s *Session) Close(ctx context.Context) error {
	s.scheduler.Stop()
	var err error
	if s.reporter != nil {
		err = s.reporter.Shutdown()
	}
	s.logger.Infow("session closed", "stats", s.scheduler.Stats())
	return err
}
