package videoplayer

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/display"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/utils"
	"go.viam.com/videoplayer/videosource"
	"go.viam.com/videoplayer/vision/cascade"
	"go.viam.com/videoplayer/vision/templatematch"
)

// Player builds a Session from a config file's contents using the registered backends, and owns
// the classifier, matcher and surface it creates for it.
type Player struct {
	session    *Session
	classifier cascade.Classifier
	matcher    templatematch.Matcher
	surface    display.Surface
	logger     logging.Logger
}

// PlayerOption customizes Open.
type PlayerOption func(*playerOptions)

type playerOptions struct {
	clock clock.Clock
}

// WithClock drives the scheduler with clk instead of the wall clock.
func WithClock(clk clock.Clock) PlayerOption {
	return func(o *playerOptions) {
		o.clock = clk
	}
}

// Open creates the backends named by cfg and starts playback. cfg must already have defaults
// applied and be valid, as config.Read leaves it.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...PlayerOption) (_ *Player, err error) {
	var options playerOptions
	for _, opt := range opts {
		opt(&options)
	}
	if cfg.LogLevel != nil {
		logger.SetLevel(*cfg.LogLevel)
	}

	mode, known := ModeFromString(cfg.Mode)
	if !known {
		logger.Warnw("unknown mode, using cascade detection", "mode", cfg.Mode)
	}

	p := &Player{logger: logger}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, p.closeBackends(ctx))
		}
	}()

	surfaceReg, err := registry.LookupSurface(cfg.Display.Surface)
	if err != nil {
		return nil, err
	}
	p.surface, err = surfaceReg.Constructor(ctx, cfg.Title, cfg.Display.Attributes, logger.Sublogger("surface"))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create %q surface", cfg.Display.Surface)
	}

	grabberReg, err := registry.LookupGrabber(cfg.Video.Backend)
	if err != nil {
		return nil, err
	}
	grabberLogger := logger.Sublogger("grabber")
	newGrabber := func(ctx context.Context, source string) (videosource.Grabber, error) {
		return grabberReg.Constructor(ctx, source, cfg.Video.Attributes, grabberLogger)
	}

	conf := SessionConfig{
		Title:         cfg.Title,
		VideoPath:     cfg.Video.Path,
		ReferencePath: cfg.Template.ImagePath,
		Method:        templatematch.MatchMethod(cfg.Template.Method),
		Scale:         cfg.Display.Scale,
		Playback: SchedulerConfig{
			FrameInterval:            time.Duration(cfg.Playback.FrameInterval),
			Throttle:                 cfg.Playback.Throttle,
			MaxConsecutiveGrabErrors: cfg.Playback.MaxConsecutiveGrabErrors,
		},
		StatsInterval: time.Duration(cfg.Playback.StatsInterval),
	}
	deps := Dependencies{
		NewGrabber: newGrabber,
		Surface:    p.surface,
		Clock:      options.clock,
		Logger:     logger,
	}

	switch mode {
	case TemplateMatch:
		matcherReg, err := registry.LookupMatcher(cfg.Template.Matcher)
		if err != nil {
			return nil, err
		}
		p.matcher, err = matcherReg.Constructor(ctx, cfg.Template.Attributes, logger.Sublogger("matcher"))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot create %q matcher", cfg.Template.Matcher)
		}
		deps.Matcher = p.matcher
		p.session, err = NewTemplateSession(ctx, conf, deps)
		if err != nil {
			return nil, err
		}
	default:
		c, err := rimage.NewColorFromHex(cfg.Cascade.Color)
		if err != nil {
			return nil, err
		}
		conf.Cascade = cascade.Options{Color: c, LineWidth: cfg.Cascade.LineWidth, Label: cfg.Cascade.Label}
		classifierReg, err := registry.LookupClassifier(cfg.Cascade.Classifier)
		if err != nil {
			return nil, err
		}
		p.classifier, err = classifierReg.Constructor(ctx, cfg.Cascade.Path, cfg.Cascade.Attributes, logger.Sublogger("classifier"))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot load %q classifier", cfg.Cascade.Classifier)
		}
		deps.Classifier = p.classifier
		p.session, err = NewCascadeSession(ctx, conf, deps)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Session returns the running session.
func (p *Player) Session() *Session {
	return p.session
}

// Wait blocks until playback ends or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	return p.session.Wait(ctx)
}

// Close stops playback and releases every backend the player created.
func (p *Player) Close(ctx context.Context) error {
	var err error
	if p.session != nil {
		err = p.session.Close(ctx)
	}
	return multierr.Combine(err, p.closeBackends(ctx))
}

func (p *Player) closeBackends(ctx context.Context) error {
	var err error
	if p.classifier != nil {
		err = multierr.Combine(err, utils.TryClose(ctx, p.classifier))
	}
	if p.matcher != nil {
		err = multierr.Combine(err, utils.TryClose(ctx, p.matcher))
	}
	if p.surface != nil {
		err = multierr.Combine(err, p.surface.Close())
	}
	p.classifier, p.matcher, p.surface = nil, nil, nil
	return err
}
