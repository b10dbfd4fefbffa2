package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/videoplayer"
)

const (
	// Flags.
	flagConfig     = "config"
	flagDebug      = "debug"
	flagLogFile    = "log-file"
	flagTitle      = "title"
	flagMode       = "mode"
	flagVideo      = "video"
	flagBackend    = "backend"
	flagClassifier = "classifier"
	flagDetector   = "detector"
	flagTemplate   = "template"
	flagMethod     = "method"
	flagMatcher    = "matcher"
	flagSurface    = "surface"
	flagScale      = "scale"
	flagInterval   = "frame-interval"
	flagThrottle   = "throttle"
	flagStats      = "stats-interval"
)

func newApp(out, errOut io.Writer) *cli.App {
	var (
		logger  logging.Logger
		logFile *logging.FileAppender
	)

	app := &cli.App{
		Name:  "videoplayer",
		Usage: "play a video while detecting objects or matching a template in every frame",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotating it as it grows",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("videoplayer")
			} else {
				logger = logging.NewLogger("videoplayer")
			}
			if path := c.String(flagLogFile); path != "" {
				logFile = logging.NewFileAppender(path)
				logger.AddAppender(logFile)
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return logFile.Close()
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "play a video",
				UsageText: "videoplayer run [--config FILE] [--mode cascade|template] --video FILE [--classifier FILE | --template FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`; other flags override it",
					},
					&cli.StringFlag{Name: flagTitle, Usage: "window title"},
					&cli.StringFlag{Name: flagMode, Usage: "recognition mode: cascade or template"},
					&cli.StringFlag{Name: flagVideo, Usage: "video `FILE` to play"},
					&cli.StringFlag{Name: flagBackend, Usage: "video decoder backend"},
					&cli.StringFlag{Name: flagClassifier, Usage: "cascade classifier model `FILE`"},
					&cli.StringFlag{Name: flagDetector, Usage: "cascade classifier backend"},
					&cli.StringFlag{Name: flagTemplate, Usage: "reference image `FILE` for template mode"},
					&cli.IntFlag{Name: flagMethod, Usage: "template matching method, passed to the matcher"},
					&cli.StringFlag{Name: flagMatcher, Usage: "template matcher backend"},
					&cli.StringFlag{Name: flagSurface, Usage: "display surface backend"},
					&cli.Float64Flag{Name: flagScale, Usage: "resize results by this factor before display"},
					&cli.DurationFlag{Name: flagInterval, Usage: "delay before the first frame, and the pace when throttled"},
					&cli.BoolFlag{Name: flagThrottle, Usage: "pace playback to the frame interval"},
					&cli.DurationFlag{Name: flagStats, Usage: "log playback counters this often"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := configFromFlags(c)
					if err != nil {
						return err
					}
					return runPlayer(c.Context, cfg, logger)
				},
			},
			{
				Name:  "backends",
				Usage: "list the registered backends",
				Action: func(c *cli.Context) error {
					printBackends(c.App.Writer)
					return nil
				},
			},
		},
	}
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// configFromFlags reads --config when given and applies every explicitly set flag over it.
func configFromFlags(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = read
	}

	setString := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	setString(flagTitle, &cfg.Title)
	setString(flagMode, &cfg.Mode)
	setString(flagVideo, &cfg.Video.Path)
	setString(flagBackend, &cfg.Video.Backend)
	setString(flagClassifier, &cfg.Cascade.Path)
	setString(flagDetector, &cfg.Cascade.Classifier)
	setString(flagTemplate, &cfg.Template.ImagePath)
	setString(flagMatcher, &cfg.Template.Matcher)
	setString(flagSurface, &cfg.Display.Surface)
	if c.IsSet(flagMethod) {
		cfg.Template.Method = c.Int(flagMethod)
	}
	if c.IsSet(flagScale) {
		cfg.Display.Scale = c.Float64(flagScale)
	}
	if c.IsSet(flagInterval) {
		cfg.Playback.FrameInterval = config.Duration(c.Duration(flagInterval))
	}
	if c.IsSet(flagThrottle) {
		cfg.Playback.Throttle = c.Bool(flagThrottle)
	}
	if c.IsSet(flagStats) {
		cfg.Playback.StatsInterval = config.Duration(c.Duration(flagStats))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// runPlayer plays until the video ends or the process is interrupted.
func runPlayer(ctx context.Context, cfg *config.Config, logger logging.Logger) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := videoplayer.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := p.Close(closeCtx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	err = p.Wait(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted, stopping playback")
		return nil
	}
	stats := p.Session().Stats()
	logger.Infow("playback finished",
		"frames", stats.Frames,
		"displayed", stats.Displayed,
		"skipped", stats.Skipped,
		"dropped", stats.Dropped,
		"grab_errors", stats.GrabErrors,
	)
	return err
}

func printBackends(w io.Writer) {
	list := func(kind string, names []string) {
		fmt.Fprintf(w, "%s:\n", kind)
		for _, name := range names {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	list("grabbers", sortedKeys(registry.RegisteredGrabbers()))
	list("classifiers", sortedKeys(registry.RegisteredClassifiers()))
	list("matchers", sortedKeys(registry.RegisteredMatchers()))
	list("surfaces", sortedKeys(registry.RegisteredSurfaces()))
}

func sortedKeys[T any](m map[string]T) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
