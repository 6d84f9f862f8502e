package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/vulkan"
)

func resizeEvent(width, height uint32) core.EventContext {
	return core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: width, WindowHeight: height},
	}
}

func TestOnResizedWithoutBackend(t *testing.T) {
	e := &Engine{width: 800, height: 600}

	assert.True(t, e.onResized(resizeEvent(1024, 768)))
	assert.Equal(t, uint32(1024), e.width)
	assert.Equal(t, uint32(768), e.height)
	assert.False(t, e.isSuspended)
}

func TestOnResizedIgnoresSameSize(t *testing.T) {
	backend := vulkan.New(nil, nil, metadata.RendererBackendConfig{})
	e := &Engine{width: 800, height: 600, backend: backend}

	assert.False(t, e.onResized(resizeEvent(800, 600)))
	assert.False(t, backend.ResizePending())
}

func TestOnResizedWrongData(t *testing.T) {
	e := &Engine{width: 800, height: 600}

	handled := e.onResized(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: "800x600"})
	assert.False(t, handled)
	assert.Equal(t, uint32(800), e.width)
}

func TestOnResizedMinimizeAndRestore(t *testing.T) {
	backend := vulkan.New(nil, nil, metadata.RendererBackendConfig{})
	e := &Engine{width: 800, height: 600, backend: backend}

	// Minimizing suspends without touching the swapchain.
	assert.True(t, e.onResized(resizeEvent(0, 0)))
	assert.True(t, e.isSuspended)
	assert.False(t, backend.ResizePending())

	assert.False(t, e.onResized(resizeEvent(0, 0)))
	assert.True(t, e.isSuspended)

	assert.True(t, e.onResized(resizeEvent(800, 600)))
	assert.False(t, e.isSuspended)
	assert.True(t, backend.ResizePending())
	assert.Equal(t, uint32(800), e.width)
	assert.Equal(t, uint32(600), e.height)
}

func TestOnResizedZeroHeightSuspends(t *testing.T) {
	e := &Engine{width: 800, height: 600}

	assert.True(t, e.onResized(resizeEvent(800, 0)))
	assert.True(t, e.isSuspended)
}

func TestRecordFrameUsesWallTime(t *testing.T) {
	require.NoError(t, core.MetricsInitialize())
	e := &Engine{}

	// 31.25 ms between frames, regardless of how short the draw was.
	logged := 0
	for i := 0; i < 31; i++ {
		if e.recordFrame(0.03125) {
			logged++
		}
	}
	assert.Zero(t, logged)

	assert.True(t, e.recordFrame(0.03125))
	fps, ms := core.MetricsFrame()
	assert.Equal(t, 32.0, fps)
	assert.Equal(t, 31.25, ms)
	assert.Zero(t, e.statsTime)
}

func TestRecordFrameLogsOncePerSecond(t *testing.T) {
	require.NoError(t, core.MetricsInitialize())
	e := &Engine{}

	logged := 0
	for i := 0; i < 40; i++ {
		if e.recordFrame(0.125) {
			logged++
		}
	}
	// 40 frames of 125 ms are five seconds.
	assert.Equal(t, 5, logged)
	fps, _ := core.MetricsFrame()
	assert.Equal(t, 8.0, fps)
}

func TestOnEventQuitStops(t *testing.T) {
	e := &Engine{}
	e.isRunning.Store(true)

	assert.False(t, e.onEvent(core.EventContext{Type: core.EVENT_CODE_RESIZED}))
	assert.True(t, e.isRunning.Load())

	assert.True(t, e.onEvent(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT}))
	assert.False(t, e.isRunning.Load())
}
