package opencv

import (
	"context"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/vision/templatematch"
)

// MatcherConfig are the attributes of the OpenCV template matcher.
type MatcherConfig struct {
	Color     string `json:"color,omitempty"`
	LineWidth int    `json:"line_width,omitempty"`
}

// TemplateMatcher locates the template with cv::matchTemplate and outlines the best match.
type TemplateMatcher struct {
	color     color.RGBA
	lineWidth int
}

// NewTemplateMatcher returns a TemplateMatcher.
func NewTemplateMatcher(conf MatcherConfig) (*TemplateMatcher, error) {
	m := &TemplateMatcher{color: rimage.Red, lineWidth: conf.LineWidth}
	if conf.Color != "" {
		c, err := rimage.NewColorFromHex(conf.Color)
		if err != nil {
			return nil, err
		}
		m.color = c
	}
	if m.lineWidth <= 0 {
		m.lineWidth = 2
	}
	return m, nil
}

// Match returns search with a rectangle the size of template drawn at the best location. The
// best location is the minimum for the squared difference methods and the maximum otherwise.
func (m *TemplateMatcher) Match(
	ctx context.Context,
	search, template image.Image,
	method templatematch.MatchMethod,
) (image.Image, error) {
	if method < templatematch.SqDiff || method > templatematch.CCoeffNormed {
		return nil, errors.Errorf("unsupported match method %d", int(method))
	}
	searchMat, err := gocv.ImageToMatRGB(search)
	if err != nil {
		return nil, err
	}
	defer searchMat.Close()
	templateMat, err := gocv.ImageToMatRGB(template)
	if err != nil {
		return nil, err
	}
	defer templateMat.Close()
	if templateMat.Cols() > searchMat.Cols() || templateMat.Rows() > searchMat.Rows() {
		return nil, errors.Errorf("template %dx%d is larger than image %dx%d",
			templateMat.Cols(), templateMat.Rows(), searchMat.Cols(), searchMat.Rows())
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(searchMat, templateMat, &result, gocv.TemplateMatchMode(method), mask)
	_, _, minLoc, maxLoc := gocv.MinMaxLoc(result)
	loc := maxLoc
	if method.BestIsMinimum() {
		loc = minLoc
	}

	match := image.Rectangle{Min: loc, Max: loc.Add(image.Pt(templateMat.Cols(), templateMat.Rows()))}
	gocv.Rectangle(&searchMat, match, m.color, m.lineWidth)
	return searchMat.ToImage()
}
