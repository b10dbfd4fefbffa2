// Package registry operates the global registry of player backends: grabbers, classifiers,
// matchers and display surfaces. Backends register themselves from an init function and the
// player looks them up by the name used in the config.
package registry

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"

	"go.viam.com/videoplayer/config"
	"go.viam.com/videoplayer/display"
	"go.viam.com/videoplayer/logging"
	"go.viam.com/videoplayer/videosource"
	"go.viam.com/videoplayer/vision/cascade"
	"go.viam.com/videoplayer/vision/templatematch"
)

type (
	// A GrabberConstructor opens a grabber over the video at source.
	GrabberConstructor func(
		ctx context.Context,
		source string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (videosource.Grabber, error)

	// A ClassifierConstructor loads the classifier model stored at path.
	ClassifierConstructor func(
		ctx context.Context,
		path string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (cascade.Classifier, error)

	// A MatcherConstructor creates a template matcher.
	MatcherConstructor func(ctx context.Context, attrs config.AttributeMap, logger logging.Logger) (templatematch.Matcher, error)

	// A SurfaceConstructor creates a display surface with the given window title.
	SurfaceConstructor func(
		ctx context.Context,
		title string,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (display.Surface, error)
)

// RegDebugInfo represents some runtime information about the registration used
// for debugging purposes.
type RegDebugInfo struct {
	RegistrarLoc string
}

// Grabber stores a grabber constructor (mandatory).
type Grabber struct {
	RegDebugInfo
	Constructor GrabberConstructor
}

// Classifier stores a classifier constructor (mandatory).
type Classifier struct {
	RegDebugInfo
	Constructor ClassifierConstructor
}

// Matcher stores a matcher constructor (mandatory).
type Matcher struct {
	RegDebugInfo
	Constructor MatcherConstructor
}

// Surface stores a surface constructor (mandatory).
type Surface struct {
	RegDebugInfo
	Constructor SurfaceConstructor
}

// all registries.
var (
	registryMu         sync.RWMutex
	grabberRegistry    = map[string]Grabber{}
	classifierRegistry = map[string]Classifier{}
	matcherRegistry    = map[string]Matcher{}
	surfaceRegistry    = map[string]Surface{}
)

func getCallerName() string {
	pc, _, line, ok := runtime.Caller(2)
	details := runtime.FuncForPC(pc)
	if ok && details != nil {
		return fmt.Sprintf("%s:%d", details.Name(), line)
	}
	return "unknown"
}

// RegisterGrabber registers a grabber backend under name.
func RegisterGrabber(name string, constructor GrabberConstructor) {
	reg := Grabber{RegDebugInfo{getCallerName()}, constructor}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := grabberRegistry[name]; old {
		panic(errors.Errorf("trying to register two grabbers with the same name: %s", name))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for grabber: %s", name))
	}
	grabberRegistry[name] = reg
}

// RegisterClassifier registers a classifier backend under name.
func RegisterClassifier(name string, constructor ClassifierConstructor) {
	reg := Classifier{RegDebugInfo{getCallerName()}, constructor}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := classifierRegistry[name]; old {
		panic(errors.Errorf("trying to register two classifiers with the same name: %s", name))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for classifier: %s", name))
	}
	classifierRegistry[name] = reg
}

// RegisterMatcher registers a template matcher backend under name.
func RegisterMatcher(name string, constructor MatcherConstructor) {
	reg := Matcher{RegDebugInfo{getCallerName()}, constructor}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := matcherRegistry[name]; old {
		panic(errors.Errorf("trying to register two matchers with the same name: %s", name))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for matcher: %s", name))
	}
	matcherRegistry[name] = reg
}

// RegisterSurface registers a display surface backend under name.
func RegisterSurface(name string, constructor SurfaceConstructor) {
	reg := Surface{RegDebugInfo{getCallerName()}, constructor}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := surfaceRegistry[name]; old {
		panic(errors.Errorf("trying to register two surfaces with the same name: %s", name))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for surface: %s", name))
	}
	surfaceRegistry[name] = reg
}

// unknownBackendError is returned by the Lookup functions. The message lists what is
// registered since a missing blank import is the usual cause.
func unknownBackendError(kind, name string, registered []string) error {
	return errors.Errorf("no %s backend registered as %q (registered: %v)", kind, name, registered)
}

// LookupGrabber looks up a grabber registration by name.
func LookupGrabber(name string) (*Grabber, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := grabberRegistry[name]; ok {
		return &reg, nil
	}
	return nil, unknownBackendError("grabber", name, names(grabberRegistry))
}

// LookupClassifier looks up a classifier registration by name.
func LookupClassifier(name string) (*Classifier, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := classifierRegistry[name]; ok {
		return &reg, nil
	}
	return nil, unknownBackendError("classifier", name, names(classifierRegistry))
}

// LookupMatcher looks up a matcher registration by name.
func LookupMatcher(name string) (*Matcher, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := matcherRegistry[name]; ok {
		return &reg, nil
	}
	return nil, unknownBackendError("matcher", name, names(matcherRegistry))
}

// LookupSurface looks up a surface registration by name.
func LookupSurface(name string) (*Surface, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := surfaceRegistry[name]; ok {
		return &reg, nil
	}
	return nil, unknownBackendError("surface", name, names(surfaceRegistry))
}

// RegisteredGrabbers returns a copy of the registered grabbers.
func RegisteredGrabbers() map[string]Grabber {
	registryMu.RLock()
	defer registryMu.RUnlock()
	copied, err := copystructure.Copy(grabberRegistry)
	if err != nil {
		panic(err)
	}
	return copied.(map[string]Grabber)
}

// RegisteredClassifiers returns a copy of the registered classifiers.
func RegisteredClassifiers() map[string]Classifier {
	registryMu.RLock()
	defer registryMu.RUnlock()
	copied, err := copystructure.Copy(classifierRegistry)
	if err != nil {
		panic(err)
	}
	return copied.(map[string]Classifier)
}

// RegisteredMatchers returns a copy of the registered matchers.
func RegisteredMatchers() map[string]Matcher {
	registryMu.RLock()
	defer registryMu.RUnlock()
	copied, err := copystructure.Copy(matcherRegistry)
	if err != nil {
		panic(err)
	}
	return copied.(map[string]Matcher)
}

// RegisteredSurfaces returns a copy of the registered surfaces.
func RegisteredSurfaces() map[string]Surface {
	registryMu.RLock()
	defer registryMu.RUnlock()
	copied, err := copystructure.Copy(surfaceRegistry)
	if err != nil {
		panic(err)
	}
	return copied.(map[string]Surface)
}

func names[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
