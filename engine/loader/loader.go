package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// Poster runs a function on the thread that owns the scene graph. engine.Engine satisfies it.
type Poster interface {
	Post(fn func())
}

// loader is the implementation of the Loader interface.
type loader struct {
	logger  *zap.Logger
	poster  Poster
	workers int
	pool    worker.DynamicWorkerPool
	taskID  atomic.Int64
	backend loaderBackend
}

// Loader decodes assets on a worker pool and hands the results to callbacks on the poster's
// thread. Every load returns a Handle that settles after its callback has run.
type Loader interface {
	// LoadModel decodes a glTF 2.0 model (.gltf or .glb) into a detached subgraph.
	//
	// Parameters:
	//   - path: the model file
	//   - onLoad: called with the model root on success
	//
	// Returns:
	//   - *Handle: settles after onLoad, or with the decode error
	LoadModel(path string, onLoad func(scene.Node)) *Handle

	// LoadSkybox decodes the six faces px, nx, py, ny, pz, nz found in dir as .png, .jpg,
	// .jpeg or .webp files.
	//
	// Parameters:
	//   - dir: the directory holding the faces
	//   - onLoad: called with the cube texture on success
	//
	// Returns:
	//   - *Handle: settles after onLoad, or with the first face error
	LoadSkybox(dir string, onLoad func(*scene.CubeTexture)) *Handle

	// LoadEnvironment decodes a Radiance RGBE panorama and projects it into diffuse
	// spherical-harmonic lighting.
	//
	// Parameters:
	//   - path: the .hdr file
	//   - onLoad: called with the environment on success
	//
	// Returns:
	//   - *Handle: settles after onLoad, or with the decode error
	LoadEnvironment(path string, onLoad func(*scene.Environment)) *Handle
}

var _ Loader = &loader{}

// NewLoader creates a Loader with its worker pool.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:  logger.Log,
		workers: max(runtime.NumCPU()-1, 1),
		backend: newGLTFLoaderBackend(),
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, 64, 1*time.Second)
	return l
}

func (l *loader) LoadModel(path string, onLoad func(scene.Node)) *Handle {
	return submit(l, path, func() (scene.Node, error) {
		backend, err := l.resolveBackend(path)
		if err != nil {
			return nil, err
		}
		return backend.Load(path)
	}, onLoad)
}

func (l *loader) LoadSkybox(dir string, onLoad func(*scene.CubeTexture)) *Handle {
	return submit(l, dir, func() (*scene.CubeTexture, error) {
		return loadCubeFaces(dir)
	}, onLoad)
}

func (l *loader) LoadEnvironment(path string, onLoad func(*scene.Environment)) *Handle {
	return submit(l, path, func() (*scene.Environment, error) {
		return loadEnvironment(path)
	}, onLoad)
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}

var errCallbackPanicked = errors.New("load callback panicked")

// post runs fn on the poster's thread, or inline without a poster.
func (l *loader) post(fn func()) {
	if l.poster == nil {
		fn()
		return
	}
	l.poster.Post(fn)
}

// submit queues decode on the pool. The handle settles on the poster's thread after onLoad.
func submit[T any](l *loader, name string, decode func() (T, error), onLoad func(T)) *Handle {
	h := newHandle(name)
	id := int(l.taskID.Add(1))
	l.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			start := time.Now()
			v, err := safeDecode(decode)
			if err != nil {
				l.logger.Error("asset load failed", zap.String("asset", name), zap.Error(err))
			} else {
				l.logger.Debug("asset decoded", zap.String("asset", name), zap.Duration("took", time.Since(start)))
			}
			l.post(func() {
				result := err
				defer func() {
					if rec := recover(); rec != nil {
						result = fmt.Errorf("%w: %v", errCallbackPanicked, rec)
						l.logger.Error("asset callback panicked", zap.String("asset", name), zap.Error(result))
					}
					h.settle(result)
				}()
				if err == nil && onLoad != nil {
					onLoad(v)
				}
			})
			return nil, err
		},
	})
	return h
}

func safeDecode[T any](decode func() (T, error)) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decoder panicked: %v", rec)
		}
	}()
	return decode()
}
