package loader

import (
	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithPoster sets where completion callbacks run. Without a poster callbacks run on the
// worker goroutine.
//
// Parameters:
//   - p: the poster, usually the engine
//
// Returns:
//   - LoaderBuilderOption: a function that applies the poster option to a loader
func WithPoster(p Poster) LoaderBuilderOption {
	return func(l *loader) {
		l.poster = p
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(log *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = log
	}
}

// WithWorkers sets the maximum number of concurrent decode workers.
//
// Parameters:
//   - n: worker count, at least 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.workers = n
		}
	}
}
