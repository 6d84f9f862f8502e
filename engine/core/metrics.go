package core

import (
	"sync"

	"github.com/spaghettifunk/hellotriangle/engine/containers"
)

const AVG_COUNT int = 30

type MetricsState struct {
	frameTimes         *containers.RingQueue[float64]
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

var metricsMu sync.Mutex
var metricsState *MetricsState = nil

// MetricsInitialize resets the frame metrics.
func MetricsInitialize() error {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsState = &MetricsState{
		frameTimes: containers.NewRingQueue[float64](AVG_COUNT),
	}
	return nil
}

// MetricsUpdate records one frame. frameElapsedTime is the wall time in seconds
// since the previous frame, frame limiting sleep included.
func MetricsUpdate(frameElapsedTime float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsState == nil {
		return
	}

	// Calculate frame ms average over the last AVG_COUNT frames.
	frameMS := frameElapsedTime * 1000.0
	metricsState.frameTimes.Push(frameMS)
	var sum float64
	metricsState.frameTimes.Each(func(ms float64) { sum += ms })
	metricsState.MSavg = sum / float64(metricsState.frameTimes.Len())

	// Calculate Frames per second.
	metricsState.Frames++
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS >= 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}
}

// MetricsFrame returns the frames per second and the average frame time in ms.
func MetricsFrame() (float64, float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsState == nil {
		return 0, 0
	}
	return metricsState.FPS, metricsState.MSavg
}
