package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

func TestBackends(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out, &out)
	test.That(t, app.Run([]string{"videoplayer", "backends"}), test.ShouldBeNil)
	for _, name := range []string{"grabbers:", "fake", "ffmpeg", "simple", "brute", "headless", "opencv"} {
		test.That(t, out.String(), test.ShouldContainSubstring, name)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	test.That(t, os.WriteFile(video, []byte("x"), 0o600), test.ShouldBeNil)

	var out bytes.Buffer
	app := newApp(&out, &out)
	err := app.Run([]string{
		"videoplayer", "run",
		"--video", video,
		"--backend", "fake",
		"--detector", "simple",
		"--surface", "headless",
		"--frame-interval", "1ms",
	})
	test.That(t, err, test.ShouldBeNil)
}

func TestRunErrors(t *testing.T) {
	var out bytes.Buffer

	err := newApp(&out, &out).Run([]string{"videoplayer", "run", "--detector", "simple"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid configuration")

	err = newApp(&out, &out).Run([]string{
		"videoplayer", "run",
		"--video", filepath.Join(t.TempDir(), "missing.mp4"),
		"--backend", "fake",
		"--detector", "simple",
		"--surface", "headless",
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "does not exist")

	err = newApp(&out, &out).Run([]string{"videoplayer", "run", "--config", "/no/such/config.json"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	test.That(t, os.WriteFile(video, []byte("x"), 0o600), test.ShouldBeNil)
	cfgPath := filepath.Join(dir, "player.json")
	test.That(t, os.WriteFile(cfgPath, []byte(`{
		"title": "from file",
		"video": {"path": "`+video+`", "backend": "fake", "attributes": {"frames": 2}},
		"cascade": {"classifier": "simple"},
		"display": {"surface": "nope"}
	}`), 0o600), test.ShouldBeNil)

	var out bytes.Buffer
	err := newApp(&out, &out).Run([]string{
		"videoplayer", "run",
		"--config", cfgPath,
		"--surface", "headless",
		"--frame-interval", "1ms",
	})
	test.That(t, err, test.ShouldBeNil)
}

func TestRunWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	test.That(t, os.WriteFile(video, []byte("x"), 0o600), test.ShouldBeNil)
	logPath := filepath.Join(dir, "logs", "player.log")

	var out bytes.Buffer
	err := newApp(&out, &out).Run([]string{
		"videoplayer", "--log-file", logPath, "run",
		"--video", video,
		"--backend", "fake",
		"--detector", "simple",
		"--surface", "headless",
		"--frame-interval", "1ms",
	})
	test.That(t, err, test.ShouldBeNil)

	contents, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "playback finished")
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]int{"opencv": 1, "brute": 2, "fake": 3})
	test.That(t, cmp.Equal(keys, []string{"brute", "fake", "opencv"}), test.ShouldBeTrue)
}
