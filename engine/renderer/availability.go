package renderer

import (
	"context"

	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUAvailable reports whether wgpu-native can hand out an adapter on this machine. It creates
// and releases a throwaway instance, so it does not need a surface.
//
// Parameters:
//   - ctx: bounds the adapter request; a done context reports unavailable
//
// Returns:
//   - bool: true if an adapter was obtained before ctx ended
func WGPUAvailable(ctx context.Context) bool {
	return awaitAvailability(ctx, requestAdapter)
}

// awaitAvailability runs check on its own goroutine so a driver that never answers cannot hold
// startup past ctx. A panicking check reports unavailable.
func awaitAvailability(ctx context.Context, check func() bool) bool {
	if ctx.Err() != nil {
		return false
	}
	result := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				result <- false
			}
		}()
		result <- check()
	}()
	select {
	case ok := <-result:
		return ok
	case <-ctx.Done():
		return false
	}
}

func requestAdapter() bool {
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil || adapter == nil {
		return false
	}
	adapter.Release()
	return true
}
