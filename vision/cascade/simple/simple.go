// Package simple implements a classifier that needs no model file: it returns the bounding
// boxes of connected dark regions. It is useful for local testing and on machines without
// OpenCV.
package simple

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/vision/cascade"
)

// Model is the registry name of the simple classifier.
const Model = "simple"

const (
	defaultThreshold = 32
	defaultMinArea   = 16
)

func init() {
	registry.RegisterClassifier(Model, func(
		ctx context.Context,
		path string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (cascade.Classifier, error) {
		conf, err := config.TransformAttributeMapToStruct[Config](attrs)
		if err != nil {
			return nil, err
		}
		return NewClassifier(conf)
	})
}

// Config are the attributes of the simple classifier.
type Config struct {
	// Threshold is the gray level below which a pixel is considered dark, 1 to 256.
	Threshold int `json:"threshold,omitempty"`
	// MinArea drops boxes with fewer pixels.
	MinArea int `json:"min_area,omitempty"`
}

// Classifier finds connected components of pixels darker than a threshold.
type Classifier struct {
	threshold int
	minArea   int
}

// NewClassifier returns a Classifier. Zero values in conf select the defaults.
func NewClassifier(conf Config) (*Classifier, error) {
	if conf.Threshold < 0 || conf.Threshold > 256 {
		return nil, errors.Errorf("threshold must be between 0 and 256, got %d", conf.Threshold)
	}
	if conf.MinArea < 0 {
		return nil, errors.Errorf("min_area must not be negative, got %d", conf.MinArea)
	}
	c := &Classifier{threshold: conf.Threshold, minArea: conf.MinArea}
	if c.threshold == 0 {
		c.threshold = defaultThreshold
	}
	if c.minArea == 0 {
		c.minArea = defaultMinArea
	}
	return c, nil
}

// Detect returns one box per 4-connected dark region, in scan order.
func (c *Classifier) Detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	seen := make([]bool, width*height)
	dark := func(x, y int) bool {
		return int(gray.Pix[y*gray.Stride+x]) < c.threshold
	}

	var rects []image.Rectangle
	queue := make([]image.Point, 0, 64)
	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			idx := y*width + x
			if seen[idx] {
				continue
			}
			seen[idx] = true
			if !dark(x, y) {
				continue
			}
			x0, y0, x1, y1 := x, y, x, y
			area := 0
			queue = append(queue[:0], image.Pt(x, y))
			for len(queue) != 0 {
				pt := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				area++
				x0, y0 = min(x0, pt.X), min(y0, pt.Y)
				x1, y1 = max(x1, pt.X), max(y1, pt.Y)
				for _, n := range [4]image.Point{{pt.X, pt.Y - 1}, {pt.X, pt.Y + 1}, {pt.X - 1, pt.Y}, {pt.X + 1, pt.Y}} {
					if n.X < 0 || n.Y < 0 || n.X >= width || n.Y >= height {
						continue
					}
					nIdx := n.Y*width + n.X
					if seen[nIdx] {
						continue
					}
					seen[nIdx] = true
					if dark(n.X, n.Y) {
						queue = append(queue, n)
					}
				}
			}
			if area < c.minArea {
				continue
			}
			rects = append(rects, image.Rect(x0, y0, x1+1, y1+1).Add(bounds.Min))
		}
	}
	return rects, nil
}
