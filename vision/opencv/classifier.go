package opencv

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// CascadeClassifier wraps an OpenCV cascade loaded from an XML model.
type CascadeClassifier struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	closed     bool
}

// NewCascadeClassifier loads the model at path.
func NewCascadeClassifier(path string) (*CascadeClassifier, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		//nolint:errcheck
		classifier.Close()
		return nil, errors.Errorf("cannot load cascade classifier from %q", path)
	}
	return &CascadeClassifier{classifier: classifier}, nil
}

// Detect runs DetectMultiScale with OpenCV's default parameters.
func (c *CascadeClassifier) Detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error) {
	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("classifier is closed")
	}
	return c.classifier.DetectMultiScale(mat), nil
}

// Close releases the model.
func (c *CascadeClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.classifier.Close()
}
