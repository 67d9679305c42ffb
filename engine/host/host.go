package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
)

// ErrSurfaceNotFound is returned when no drawing surface is registered under the requested id.
var ErrSurfaceNotFound = errors.New("drawing surface not found")

// Host owns the drawing surfaces of the process, keyed by a fixed id, and the fallback "body"
// that replaces them when startup fails.
type Host interface {
	// Register makes a surface available under id, replacing any previous one.
	//
	// Parameters:
	//   - id: the surface identifier
	//   - surface: the window to register
	Register(id string, surface window.Window)

	// Surface looks up a registered surface.
	//
	// Parameters:
	//   - id: the surface identifier
	//
	// Returns:
	//   - window.Window: the registered surface
	//   - error: ErrSurfaceNotFound (wrapped with the id) if nothing is registered under id
	Surface(id string) (window.Window, error)

	// ReplaceBody closes every registered surface and presents text in their place.
	//
	// Parameters:
	//   - text: the notice to present
	ReplaceBody(text string)

	// Body returns the text set by the last ReplaceBody, or "" if the surfaces are intact.
	Body() string

	// Close closes every registered surface.
	//
	// Returns:
	//   - error: the joined errors of the surfaces that failed to close
	Close() error
}

type host struct {
	mu       sync.Mutex
	surfaces map[string]window.Window
	body     string
	out      io.Writer
	logger   *zap.Logger
}

var _ Host = &host{}

// HostBuilderOption is a functional option for configuring a Host.
type HostBuilderOption func(*host)

// WithOutput sets where replaced body text is written. Defaults to stderr.
func WithOutput(w io.Writer) HostBuilderOption {
	return func(h *host) {
		h.out = w
	}
}

// WithLogger sets the logger that records body replacements.
func WithLogger(l *zap.Logger) HostBuilderOption {
	return func(h *host) {
		h.logger = l
	}
}

// NewHost creates an empty Host.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Host: the new host
func NewHost(options ...HostBuilderOption) Host {
	h := &host{
		surfaces: make(map[string]window.Window),
		out:      os.Stderr,
		logger:   logger.Log,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *host) Register(id string, surface window.Window) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.surfaces[id] = surface
}

func (h *host) Surface(id string) (window.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.surfaces[id]
	if !ok || s == nil {
		return nil, fmt.Errorf("surface %q: %w", id, ErrSurfaceNotFound)
	}
	return s, nil
}

func (h *host) ReplaceBody(text string) {
	if err := h.Close(); err != nil {
		h.logger.Warn("closing surfaces", zap.Error(err))
	}

	h.mu.Lock()
	h.body = text
	h.mu.Unlock()

	h.logger.Error("viewer stopped", zap.String("notice", text))
	if h.out != nil {
		fmt.Fprintln(h.out, text)
	}
}

func (h *host) Body() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.body
}

func (h *host) Close() error {
	h.mu.Lock()
	surfaces := h.surfaces
	h.surfaces = make(map[string]window.Window)
	h.mu.Unlock()

	var errs []error
	for id, s := range surfaces {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("surface %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
