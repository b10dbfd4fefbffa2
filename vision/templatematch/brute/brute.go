// Package brute implements template matching in pure Go by scoring every placement of the
// template on the grayscale search image. It follows OpenCV's matchTemplate formulas and is
// meant for small images and machines without OpenCV.
package brute

import (
	"context"
	"image"
	"math"
	"runtime"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/registry"
	"go.viam.com/videoplayer/rimage"
	"go.viam.com/videoplayer/vision/templatematch"
)

// Model is the registry name of the brute force matcher.
const Model = "brute"

func init() {
	registry.RegisterMatcher(Model, func(
		ctx context.Context,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (templatematch.Matcher, error) {
		conf, err := config.TransformAttributeMapToStruct[Config](attrs)
		if err != nil {
			return nil, err
		}
		return NewMatcher(conf)
	})
}

// Config are the attributes of the brute force matcher.
type Config struct {
	Color     string  `json:"color,omitempty"`
	LineWidth float64 `json:"line_width,omitempty"`
}

// Matcher scores every placement and outlines the best one.
type Matcher struct {
	opts Config
	draw func(dc *gg.Context, r image.Rectangle)
}

// NewMatcher returns a Matcher drawing with the configured color, red by default.
func NewMatcher(conf Config) (*Matcher, error) {
	c := rimage.Red
	if conf.Color != "" {
		var err error
		if c, err = rimage.NewColorFromHex(conf.Color); err != nil {
			return nil, err
		}
	}
	if conf.LineWidth <= 0 {
		conf.LineWidth = 2
	}
	m := &Matcher{opts: conf}
	m.draw = func(dc *gg.Context, r image.Rectangle) {
		rimage.DrawRectangleEmpty(dc, r, c, conf.LineWidth)
	}
	return m, nil
}

// Match returns a copy of search with the best placement of template outlined.
func (m *Matcher) Match(
	ctx context.Context,
	search, template image.Image,
	method templatematch.MatchMethod,
) (image.Image, error) {
	loc, _, err := Locate(ctx, rimage.MakeGray(search), rimage.MakeGray(template), method)
	if err != nil {
		return nil, err
	}
	out := rimage.CloneRGBA(search)
	tb := template.Bounds()
	m.draw(gg.NewContextForRGBA(out), image.Rectangle{Min: loc, Max: loc.Add(image.Pt(tb.Dx(), tb.Dy()))})
	return out, nil
}

// Locate returns the top left corner of the best placement of template in search and its score.
// Both images must have their origin at (0, 0).
func Locate(ctx context.Context, search, template *image.Gray, method templatematch.MatchMethod) (image.Point, float64, error) {
	sw, sh := search.Bounds().Dx(), search.Bounds().Dy()
	tw, th := template.Bounds().Dx(), template.Bounds().Dy()
	if tw == 0 || th == 0 {
		return image.Point{}, 0, errors.New("template is empty")
	}
	if tw > sw || th > sh {
		return image.Point{}, 0, errors.Errorf("template %dx%d is larger than image %dx%d", tw, th, sw, sh)
	}
	if method < templatematch.SqDiff || method > templatematch.CCoeffNormed {
		return image.Point{}, 0, errors.Errorf("unsupported match method %d", int(method))
	}

	n := float64(tw * th)
	var tSum, tSq float64
	for y := 0; y < th; y++ {
		for _, v := range template.Pix[y*template.Stride : y*template.Stride+tw] {
			tSum += float64(v)
			tSq += float64(v) * float64(v)
		}
	}
	tMean := tSum / n
	tVar := tSq - tSum*tMean

	minimize := method.BestIsMinimum()
	better := func(v, than float64) bool {
		if minimize {
			return v < than
		}
		return v > than
	}
	worst := math.Inf(-1)
	if minimize {
		worst = math.Inf(1)
	}

	// rows are scored independently; the reduction below walks them in order so ties resolve to
	// the first placement in row major order.
	rows := sh - th + 1
	rowBest := make([]float64, rows)
	rowX := make([]int, rows)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < rows; y++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			best, bestX := worst, 0
			for x := 0; x <= sw-tw; x++ {
				var iSum, iSq, cross float64
				for ty := 0; ty < th; ty++ {
					srow := search.Pix[(y+ty)*search.Stride+x : (y+ty)*search.Stride+x+tw]
					trow := template.Pix[ty*template.Stride : ty*template.Stride+tw]
					for i, sv := range srow {
						s, t := float64(sv), float64(trow[i])
						iSum += s
						iSq += s * s
						cross += s * t
					}
				}
				if v := score(method, n, tSum, tSq, tVar, iSum, iSq, cross); better(v, best) {
					best, bestX = v, x
				}
			}
			rowBest[y], rowX[y] = best, bestX
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return image.Point{}, 0, err
	}

	best := worst
	var bestLoc image.Point
	for y, v := range rowBest {
		if better(v, best) {
			best = v
			bestLoc = image.Pt(rowX[y], y)
		}
	}
	return bestLoc, best, nil
}

func score(method templatematch.MatchMethod, n, tSum, tSq, tVar, iSum, iSq, cross float64) float64 {
	switch method {
	case templatematch.SqDiff:
		return tSq - 2*cross + iSq
	case templatematch.SqDiffNormed:
		return normed(tSq-2*cross+iSq, tSq*iSq, 1)
	case templatematch.CCorr:
		return cross
	case templatematch.CCorrNormed:
		return normed(cross, tSq*iSq, 0)
	case templatematch.CCoeff:
		return cross - tSum*iSum/n
	case templatematch.CCoeffNormed:
		iVar := iSq - iSum*iSum/n
		return normed(cross-tSum*iSum/n, tVar*iVar, 0)
	default:
		return 0
	}
}

// normed divides by sqrt(denom), returning fallback when the denominator vanishes.
func normed(num, denom, fallback float64) float64 {
	if denom <= math.SmallestNonzeroFloat64 {
		if num == 0 {
			return 0
		}
		return fallback
	}
	return num / math.Sqrt(denom)
}
