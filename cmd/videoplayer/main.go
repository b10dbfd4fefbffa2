// Package main is the videoplayer command. It plays a video and runs every frame through cascade
// detection or template matching, showing the annotated result in a window.
package main

import (
	"fmt"
	"os"

	// registers all backends.
	_ "go.viam.com/videoplayer/display/headless"
	_ "go.viam.com/videoplayer/videosource/fake"
	_ "go.viam.com/videoplayer/videosource/ffmpeg"
	_ "go.viam.com/videoplayer/vision/cascade/simple"
	_ "go.viam.com/videoplayer/vision/opencv"
	_ "go.viam.com/videoplayer/vision/templatematch/brute"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
