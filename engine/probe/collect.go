package probe

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"
)

// UserAgentEnv overrides the synthesized user agent, which lets a desktop build be profiled as a
// handheld device.
const UserAgentEnv = "OXY_USER_AGENT"

// collector holds the signal sources used by Collect. Every source is replaceable so tests and
// alternative hosts can inject their own values.
type collector struct {
	numCPU    func() int
	memoryGB  func() float64
	userAgent func() string
	screen    func() (width, height int, pixelRatio float64)
}

// CollectorOption is a functional option for configuring signal collection.
type CollectorOption func(*collector)

// WithNumCPU replaces the logical processor source.
//
// Parameters:
//   - fn: returns the logical processor count
//
// Returns:
//   - CollectorOption: option function to apply
func WithNumCPU(fn func() int) CollectorOption {
	return func(c *collector) {
		c.numCPU = fn
	}
}

// WithMemory replaces the installed memory source.
//
// Parameters:
//   - fn: returns installed memory in GiB, or 0 when unknown
//
// Returns:
//   - CollectorOption: option function to apply
func WithMemory(fn func() float64) CollectorOption {
	return func(c *collector) {
		c.memoryGB = fn
	}
}

// WithUserAgent replaces the user agent source.
//
// Parameters:
//   - fn: returns the user agent string
//
// Returns:
//   - CollectorOption: option function to apply
func WithUserAgent(fn func() string) CollectorOption {
	return func(c *collector) {
		c.userAgent = fn
	}
}

// WithScreen sets the screen size and pixel ratio source, usually backed by the window's monitor.
//
// Parameters:
//   - fn: returns the monitor size in pixels and the content scale
//
// Returns:
//   - CollectorOption: option function to apply
func WithScreen(fn func() (width, height int, pixelRatio float64)) CollectorOption {
	return func(c *collector) {
		c.screen = fn
	}
}

// Collect gathers device signals from the runtime and the configured sources.
//
// Parameters:
//   - options: functional options overriding individual sources
//
// Returns:
//   - Signals: the collected signals
func Collect(options ...CollectorOption) Signals {
	c := &collector{
		numCPU:    runtime.NumCPU,
		memoryGB:  SystemMemoryGB,
		userAgent: DefaultUserAgent,
		screen:    func() (int, int, float64) { return 0, 0, 1 },
	}
	for _, opt := range options {
		opt(c)
	}

	w, h, ratio := c.screen()
	return Signals{
		LogicalProcessors: c.numCPU(),
		MemoryGB:          c.memoryGB(),
		UserAgent:         c.userAgent(),
		ScreenWidth:       w,
		ScreenHeight:      h,
		PixelRatio:        ratio,
	}
}

// DefaultUserAgent returns OXY_USER_AGENT when set, otherwise a user agent built from GOOS/GOARCH.
func DefaultUserAgent() string {
	if ua := os.Getenv(UserAgentEnv); ua != "" {
		return ua
	}
	return fmt.Sprintf("oxy-viewer/1 (%s; %s)", runtime.GOOS, runtime.GOARCH)
}

// virtualMemory is the gopsutil memory source.
var virtualMemory = mem.VirtualMemory

// SystemMemoryGB reports total installed memory in GiB, or 0 (unknown) when the platform query
// fails.
func SystemMemoryGB() float64 {
	vm, err := virtualMemory()
	if err != nil || vm == nil {
		return 0
	}
	return float64(vm.Total) / (1 << 30)
}
