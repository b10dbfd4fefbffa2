// Package config defines the player's JSON configuration and how it is read and validated.
package config

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/utils"
)

// Mode names accepted in the "mode" field. Anything else falls back to ModeCascade.
const (
	ModeCascade  = "cascade"
	ModeTemplate = "template"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultVideoBackend     = "ffmpeg"
	DefaultClassifier       = "opencv"
	DefaultMatcher          = "opencv"
	DefaultSurface          = "opencv"
	DefaultFrameInterval    = 33 * time.Millisecond
	DefaultAnnotationColor  = "#ff0000"
	DefaultAnnotationWidth  = 2.0
	DefaultTemplateMethod   = 0
	DefaultDisplayScale     = 1.0
	defaultTitleWhenMissing = "videoplayer"
)

// Config describes one playback session.
type Config struct {
	Title    string         `json:"title"`
	Mode     string         `json:"mode"`
	LogLevel *logging.Level `json:"log_level,omitempty"`

	Video    VideoConfig    `json:"video"`
	Cascade  CascadeConfig  `json:"cascade"`
	Template TemplateConfig `json:"template"`
	Display  DisplayConfig  `json:"display"`
	Playback PlaybackConfig `json:"playback"`
}

// VideoConfig selects the video source and the grabber backend decoding it.
type VideoConfig struct {
	Path       string       `json:"path"`
	Backend    string       `json:"backend"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// CascadeConfig configures cascade detection mode.
type CascadeConfig struct {
	// Classifier is the registered classifier backend name.
	Classifier string       `json:"classifier"`
	Path       string       `json:"path"`
	Color      string       `json:"color"`
	LineWidth  float64      `json:"line_width"`
	Label      bool         `json:"label"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// TemplateConfig configures template matching mode.
type TemplateConfig struct {
	ImagePath string `json:"image_path"`
	// Method is handed to the matcher untouched; its meaning belongs to the matcher.
	Method     int          `json:"method"`
	Matcher    string       `json:"matcher"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// DisplayConfig selects the display surface.
type DisplayConfig struct {
	Surface    string       `json:"surface"`
	Scale      float64      `json:"scale"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// PlaybackConfig controls the acquisition loop cadence.
type PlaybackConfig struct {
	// FrameInterval is the nominal cadence. Without Throttle it is only the delay before the
	// first frame is grabbed.
	FrameInterval Duration `json:"frame_interval"`
	// Throttle paces every iteration to FrameInterval instead of running at decode rate.
	Throttle bool `json:"throttle"`
	// MaxConsecutiveGrabErrors ends playback after that many failed grabs in a row. 0 means never.
	MaxConsecutiveGrabErrors int `json:"max_consecutive_grab_errors"`
	// StatsInterval logs the playback counters periodically. 0 disables it.
	StatsInterval Duration `json:"stats_interval,omitempty"`
}

// Duration is a time.Duration that reads and writes as a string such as "33ms".
type Duration time.Duration

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", value)
		}
		*d = Duration(parsed)
	default:
		return errors.Errorf("invalid duration %v", v)
	}
	return nil
}

// IsTemplateMode reports whether the mode selects template matching. Every other value, including
// unknown ones, selects cascade detection.
func (c *Config) IsTemplateMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), ModeTemplate)
}

// ApplyDefaults fills in every unset optional field.
func (c *Config) ApplyDefaults() {
	if c.Title == "" {
		c.Title = defaultTitleWhenMissing
	}
	if c.Mode == "" {
		c.Mode = ModeCascade
	}
	if c.Video.Backend == "" {
		c.Video.Backend = DefaultVideoBackend
	}
	if c.Cascade.Classifier == "" {
		c.Cascade.Classifier = DefaultClassifier
	}
	if c.Cascade.Color == "" {
		c.Cascade.Color = DefaultAnnotationColor
	}
	if c.Cascade.LineWidth == 0 {
		c.Cascade.LineWidth = DefaultAnnotationWidth
	}
	if c.Template.Matcher == "" {
		c.Template.Matcher = DefaultMatcher
	}
	if c.Display.Surface == "" {
		c.Display.Surface = DefaultSurface
	}
	if c.Display.Scale == 0 {
		c.Display.Scale = DefaultDisplayScale
	}
	if c.Playback.FrameInterval == 0 {
		c.Playback.FrameInterval = Duration(DefaultFrameInterval)
	}
}

// Validate returns every problem with the config combined into one error. It does not check
// that files exist; that is left to session construction.
func (c *Config) Validate() error {
	var errs error
	if c.Video.Path == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("video", "path"))
	}
	if c.IsTemplateMode() {
		if c.Template.ImagePath == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("template", "image_path"))
		}
	} else {
		if c.Cascade.Path == "" && (c.Cascade.Classifier == "" || c.Cascade.Classifier == DefaultClassifier) {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("cascade", "path"))
		}
		if c.Cascade.LineWidth < 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError("cascade",
				errors.Errorf("line_width must not be negative, got %v", c.Cascade.LineWidth)))
		}
		if c.Cascade.Color != "" {
			if _, err := rimage.NewColorFromHex(c.Cascade.Color); err != nil {
				errs = multierr.Append(errs, utils.NewConfigValidationError("cascade", err))
			}
		}
	}
	if c.Display.Scale < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("display",
			errors.Errorf("scale must not be negative, got %v", c.Display.Scale)))
	}
	if c.Playback.FrameInterval < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("playback",
			errors.Errorf("frame_interval must not be negative, got %v", time.Duration(c.Playback.FrameInterval))))
	}
	if c.Playback.StatsInterval < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("playback",
			errors.Errorf("stats_interval must not be negative, got %v", time.Duration(c.Playback.StatsInterval))))
	}
	if c.Playback.MaxConsecutiveGrabErrors < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("playback",
			errors.Errorf("max_consecutive_grab_errors must not be negative, got %d", c.Playback.MaxConsecutiveGrabErrors)))
	}
	return errs
}
