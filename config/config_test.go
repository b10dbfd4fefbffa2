package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/videoplayer/logging"
)

const sampleConfig = `{
	"title": "lobby camera",
	"mode": "template",
	"log_level": "debug",
	"video": {"path": "${VIDEO_DIR}/lobby.mp4", "backend": "fake", "attributes": {"frames": 12}},
	"template": {"image_path": "/data/badge.png", "method": 5, "matcher": "brute"},
	"display": {"surface": "headless", "scale": 0.5},
	"playback": {"frame_interval": "40ms", "throttle": true, "max_consecutive_grab_errors": 3}
}`

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "player.json")
	test.That(t, os.WriteFile(path, []byte(sampleConfig), 0o600), test.ShouldBeNil)
	t.Setenv("VIDEO_DIR", "/videos")

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Title, test.ShouldEqual, "lobby camera")
	test.That(t, cfg.IsTemplateMode(), test.ShouldBeTrue)
	test.That(t, *cfg.LogLevel, test.ShouldEqual, logging.DEBUG)
	test.That(t, cfg.Video.Path, test.ShouldEqual, "/videos/lobby.mp4")
	test.That(t, cfg.Video.Backend, test.ShouldEqual, "fake")
	test.That(t, cfg.Video.Attributes["frames"], test.ShouldEqual, 12.0)
	test.That(t, cfg.Template.Method, test.ShouldEqual, 5)
	test.That(t, cfg.Template.Matcher, test.ShouldEqual, "brute")
	test.That(t, cfg.Display.Scale, test.ShouldEqual, 0.5)
	test.That(t, time.Duration(cfg.Playback.FrameInterval), test.ShouldEqual, 40*time.Millisecond)
	test.That(t, cfg.Playback.Throttle, test.ShouldBeTrue)
	test.That(t, cfg.Playback.MaxConsecutiveGrabErrors, test.ShouldEqual, 3)
	// untouched sections still get their defaults
	test.That(t, cfg.Cascade.Classifier, test.ShouldEqual, DefaultClassifier)

	_, err = Read(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read config")
}

func TestFromReader(t *testing.T) {
	t.Run("minimal cascade", func(t *testing.T) {
		cfg, err := FromReader("min", strings.NewReader(`{"video": {"path": "a.mp4"}, "cascade": {"path": "faces.xml"}}`))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.IsTemplateMode(), test.ShouldBeFalse)
		test.That(t, cfg.Mode, test.ShouldEqual, ModeCascade)
		test.That(t, cfg.Title, test.ShouldEqual, "videoplayer")
		test.That(t, cfg.Video.Backend, test.ShouldEqual, DefaultVideoBackend)
		test.That(t, cfg.Display.Surface, test.ShouldEqual, DefaultSurface)
		test.That(t, cfg.Display.Scale, test.ShouldEqual, DefaultDisplayScale)
		test.That(t, cfg.Cascade.Color, test.ShouldEqual, DefaultAnnotationColor)
		test.That(t, cfg.Cascade.LineWidth, test.ShouldEqual, DefaultAnnotationWidth)
		test.That(t, time.Duration(cfg.Playback.FrameInterval), test.ShouldEqual, DefaultFrameInterval)
		test.That(t, cfg.LogLevel, test.ShouldBeNil)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := FromReader("typo", strings.NewReader(`{"video": {"path": "a.mp4"}, "vidoe": {}}`))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "typo")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := FromReader("bad", strings.NewReader(`{"mode": "cascade"}`))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `"path" is required`)
	})
}

func TestIsTemplateMode(t *testing.T) {
	for mode, expected := range map[string]bool{
		"template":   true,
		" Template ": true,
		"TEMPLATE":   true,
		"cascade":    false,
		"":           false,
		"sideways":   false,
	} {
		cfg := Config{Mode: mode}
		test.That(t, cfg.IsTemplateMode(), test.ShouldEqual, expected)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Video:   VideoConfig{Path: "a.mp4"},
			Cascade: CascadeConfig{Path: "faces.xml"},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	cfg := valid()
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	// a non default classifier may not need a model file
	cfg = valid()
	cfg.Cascade.Path = ""
	cfg.Cascade.Classifier = "simple"
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	cfg = valid()
	cfg.Mode = ModeTemplate
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "image_path")

	cfg = Config{}
	cfg.Video.Path = ""
	cfg.Cascade.LineWidth = -1
	cfg.Cascade.Color = "red"
	cfg.Display.Scale = -2
	cfg.Playback.FrameInterval = Duration(-time.Second)
	cfg.Playback.MaxConsecutiveGrabErrors = -1
	cfg.Playback.StatsInterval = Duration(-time.Second)
	err = cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	// every problem is reported at once
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 8)
	for _, snippet := range []string{
		"video", "cascade", "line_width", "scale", "frame_interval", "max_consecutive_grab_errors", "stats_interval",
	} {
		test.That(t, err.Error(), test.ShouldContainSubstring, snippet)
	}
}

func TestDuration(t *testing.T) {
	var d Duration
	test.That(t, json.Unmarshal([]byte(`"1.5s"`), &d), test.ShouldBeNil)
	test.That(t, time.Duration(d), test.ShouldEqual, 1500*time.Millisecond)
	test.That(t, json.Unmarshal([]byte(`1000`), &d), test.ShouldBeNil)
	test.That(t, time.Duration(d), test.ShouldEqual, time.Microsecond)

	test.That(t, json.Unmarshal([]byte(`"soon"`), &d), test.ShouldNotBeNil)
	test.That(t, json.Unmarshal([]byte(`true`), &d), test.ShouldNotBeNil)

	out, err := json.Marshal(Duration(33 * time.Millisecond))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"33ms"`)
}

func TestTransformAttributeMapToStruct(t *testing.T) {
	type attrs struct {
		Frames int    `json:"frames"`
		Name   string `json:"name,omitempty"`
	}
	out, err := TransformAttributeMapToStruct[attrs](AttributeMap{"frames": 3.0, "name": "x"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, attrs{Frames: 3, Name: "x"})

	ptr, err := TransformAttributeMapToStruct[*attrs](AttributeMap{"frames": "4"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ptr.Frames, test.ShouldEqual, 4)

	_, err = TransformAttributeMapToStruct[attrs](AttributeMap{"frame": 3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "frame")

	empty, err := TransformAttributeMapToStruct[attrs](nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldResemble, attrs{})
}
