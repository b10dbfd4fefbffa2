package videoplayer

import (
	"fmt"
	"strings"

	"go.viam.com/videoplayer/config"
)

// Mode selects the recognition strategy of a session. It is fixed at construction.
type Mode int

const (
	// CascadeDetection finds objects with a cascade classifier. It is the zero value and the
	// fallback for anything unrecognized.
	CascadeDetection Mode = iota
	// TemplateMatch locates a reference image in every frame.
	TemplateMatch
)

func (m Mode) String() string {
	switch m {
	case CascadeDetection:
		return "cascade"
	case TemplateMatch:
		return "template"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeFromString parses a mode name. Unknown names, including the empty string, select
// CascadeDetection; ok reports whether the name was recognized.
func ModeFromString(name string) (mode Mode, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.ModeTemplate:
		return TemplateMatch, true
	case config.ModeCascade:
		return CascadeDetection, true
	default:
		return CascadeDetection, false
	}
}
