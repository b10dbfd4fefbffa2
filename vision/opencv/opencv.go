// Package opencv provides the OpenCV backed implementations of the player's external
// collaborators: a Haar/LBP cascade classifier, a template matcher, a video file grabber and a
// window surface. All of them register under the name "opencv".
package opencv

import (
	"context"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/display"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/videosource"
	"go.viam.com/videoplayer/vision/cascade"
	"go.viam.com/videoplayer/vision/templatematch"
)

// Model is the registry name of every backend in this package.
const Model = "opencv"

func init() {
	registry.RegisterClassifier(Model, func(
		ctx context.Context,
		path string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (cascade.Classifier, error) {
		return NewCascadeClassifier(path)
	})
	registry.RegisterMatcher(Model, func(
		ctx context.Context,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (templatematch.Matcher, error) {
		conf, err := config.TransformAttributeMapToStruct[MatcherConfig](attrs)
		if err != nil {
			return nil, err
		}
		return NewTemplateMatcher(conf)
	})
	registry.RegisterGrabber(Model, func(
		ctx context.Context,
		source string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (videosource.Grabber, error) {
		return NewVideoGrabber(source, logger), nil
	})
	registry.RegisterSurface(Model, func(
		ctx context.Context,
		title string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (display.Surface, error) {
		return NewWindow(title), nil
	})
}
