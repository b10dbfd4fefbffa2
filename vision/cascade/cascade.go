// Package cascade implements recognition with a cascade classifier: each frame is normalized to an
// equalized grayscale image, handed to the classifier, and the returned boxes are drawn on a color
// copy of the frame.
package cascade

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opencensus.io/trace"

	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/videosource"
)

// Classifier finds objects in an equalized grayscale image. Implementations must be safe to call
// repeatedly with the same image and should return the same boxes each time.
type Classifier interface {
	Detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error)
}

// ClassifierFunc adapts a function to a Classifier.
type ClassifierFunc func(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error)

// Detect calls f.
func (f ClassifierFunc) Detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error) {
	return f(ctx, gray)
}

// Options control how detections are drawn.
type Options struct {
	Color     color.Color
	LineWidth float64
	// Label writes the number of detections in the top left corner.
	Label bool
}

const (
	defaultLineWidth = 2
	labelSize        = 14
)

// Recognizer runs a Classifier against frames and annotates the results.
type Recognizer struct {
	classifier Classifier
	opts       Options
	logger     logging.Logger
}

// NewRecognizer returns a Recognizer using classifier. The classifier is borrowed, not owned.
func NewRecognizer(classifier Classifier, opts Options, logger logging.Logger) (*Recognizer, error) {
	if classifier == nil {
		return nil, errors.New("cascade recognizer requires a classifier")
	}
	if opts.Color == nil {
		opts.Color = rimage.Red
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = defaultLineWidth
	}
	return &Recognizer{classifier: classifier, opts: opts, logger: logger}, nil
}

// working holds the per frame buffers.
type working struct {
	color *image.RGBA
	gray  *image.Gray
}

// prepare converts the frame into an encoded raster and back, then derives the color and the
// equalized grayscale working copies. It returns false when any conversion yields nothing.
func prepare(frame videosource.Frame) (working, bool) {
	img := rimage.FrameToImage(frame)
	if img == nil {
		return working{}, false
	}
	encoded := rimage.EncodeJPEG(img)
	if encoded == nil {
		return working{}, false
	}
	decoded := rimage.DecodeImage(encoded)
	if decoded == nil || !rimage.SameImgSize(decoded, img) {
		return working{}, false
	}
	return working{
		color: rimage.CloneRGBA(decoded),
		gray:  rimage.EqualizeHist(rimage.MakeGray(decoded)),
	}, true
}

// Recognize annotates frame with the classifier's detections. It returns false, and nothing is
// to be displayed, when the frame cannot be converted or the classifier fails.
func (r *Recognizer) Recognize(ctx context.Context, frame videosource.Frame) (image.Image, bool) {
	ctx, span := trace.StartSpan(ctx, "vision::cascade::Recognize")
	defer span.End()

	w, ok := prepare(frame)
	if !ok {
		return nil, false
	}
	rects, err := r.detect(ctx, w.gray)
	if err != nil {
		r.logger.Warnw("classifier failed, skipping frame", "frame", frame.Seq, "error", err)
		return nil, false
	}
	r.annotate(w.color, rects)
	return w.color, true
}

// Detect returns the boxes the classifier finds in frame, clipped to the frame and without
// duplicates. ok is false when the frame cannot be converted.
func (r *Recognizer) Detect(ctx context.Context, frame videosource.Frame) (rects []image.Rectangle, ok bool, err error) {
	w, ok := prepare(frame)
	if !ok {
		return nil, false, nil
	}
	rects, err = r.detect(ctx, w.gray)
	return rects, true, err
}

func (r *Recognizer) detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error) {
	raw, err := r.classifier.Detect(ctx, gray)
	if err != nil {
		return nil, err
	}
	bounds := gray.Bounds()
	clipped := lo.FilterMap(raw, func(rect image.Rectangle, _ int) (image.Rectangle, bool) {
		c := rimage.ClipRectangle(rect, bounds)
		return c, !c.Empty()
	})
	return lo.Uniq(clipped), nil
}

// annotate draws every rectangle onto img in place.
func (r *Recognizer) annotate(img *image.RGBA, rects []image.Rectangle) {
	if len(rects) == 0 && !r.opts.Label {
		return
	}
	dc := gg.NewContextForRGBA(img)
	for _, rect := range rects {
		rimage.DrawRectangleEmpty(dc, rect, r.opts.Color, r.opts.LineWidth)
	}
	if r.opts.Label {
		rimage.DrawString(dc, fmt.Sprintf("%d detections", len(rects)), image.Pt(4, 4), r.opts.Color, labelSize)
	}
}
