// Package templatematch implements recognition by locating a reference image in each frame with
// an external template matcher.
package templatematch

import (
	"context"
	"fmt"
	"image"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/videosource"
)

// MatchMethod selects the similarity metric. The values follow OpenCV's TM_* constants but are
// passed through untouched; which values are valid is up to the Matcher.
type MatchMethod int

// The OpenCV template matching methods.
const (
	SqDiff MatchMethod = iota
	SqDiffNormed
	CCorr
	CCorrNormed
	CCoeff
	CCoeffNormed
)

func (m MatchMethod) String() string {
	switch m {
	case SqDiff:
		return "sqdiff"
	case SqDiffNormed:
		return "sqdiff_normed"
	case CCorr:
		return "ccorr"
	case CCorrNormed:
		return "ccorr_normed"
	case CCoeff:
		return "ccoeff"
	case CCoeffNormed:
		return "ccoeff_normed"
	default:
		return fmt.Sprintf("MatchMethod(%d)", int(m))
	}
}

// BestIsMinimum reports whether the best match is the lowest score, as with the squared
// difference methods.
func (m MatchMethod) BestIsMinimum() bool {
	return m == SqDiff || m == SqDiffNormed
}

// Matcher finds template within search and returns search annotated with the match.
type Matcher interface {
	Match(ctx context.Context, search, template image.Image, method MatchMethod) (image.Image, error)
}

// MatcherFunc adapts a function to a Matcher.
type MatcherFunc func(ctx context.Context, search, template image.Image, method MatchMethod) (image.Image, error)

// Match calls f.
func (f MatcherFunc) Match(ctx context.Context, search, template image.Image, method MatchMethod) (image.Image, error) {
	return f(ctx, search, template, method)
}

// Recognizer hands every frame to a Matcher together with a fixed reference image.
type Recognizer struct {
	matcher   Matcher
	reference image.Image
	method    MatchMethod
	logger    logging.Logger
}

// NewRecognizer returns a Recognizer matching reference with method. The matcher is borrowed;
// reference must not be modified afterwards.
func NewRecognizer(matcher Matcher, reference image.Image, method MatchMethod, logger logging.Logger) (*Recognizer, error) {
	if matcher == nil {
		return nil, errors.New("template recognizer requires a matcher")
	}
	if reference == nil || reference.Bounds().Empty() {
		return nil, errors.New("template recognizer requires a non empty reference image")
	}
	return &Recognizer{matcher: matcher, reference: reference, method: method, logger: logger}, nil
}

// Method returns the configured match method.
func (r *Recognizer) Method() MatchMethod {
	return r.method
}

// Recognize returns whatever the matcher produces for frame, unmodified. It returns false when the
// frame cannot be converted, the matcher fails or returns nothing.
func (r *Recognizer) Recognize(ctx context.Context, frame videosource.Frame) (image.Image, bool) {
	ctx, span := trace.StartSpan(ctx, "vision::templatematch::Recognize")
	defer span.End()

	search := rimage.FrameToImage(frame)
	if search == nil {
		return nil, false
	}
	out, err := r.matcher.Match(ctx, search, r.reference, r.method)
	if err != nil {
		r.logger.Warnw("template matcher failed, skipping frame", "frame", frame.Seq, "method", r.method, "error", err)
		return nil, false
	}
	if out == nil || out.Bounds().Empty() {
		return nil, false
	}
	return out, true
}
