package opencv

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Window is a display.Surface backed by a HighGUI window.
type Window struct {
	mu     sync.Mutex
	window *gocv.Window
}

// NewWindow opens a window titled title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Resize sets the window to width by height.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.window.ResizeWindow(width, height)
}

// Present shows img and pumps the GUI event loop once.
func (w *Window) Present(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.window.IMShow(mat)
	w.window.WaitKey(1)
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.window.Close()
}
