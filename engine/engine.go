package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/spaghettifunk/hellotriangle/engine/assets"
	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/math"
	"github.com/spaghettifunk/hellotriangle/engine/platform"
	"github.com/spaghettifunk/hellotriangle/engine/renderer"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	config       *ApplicationConfig
	currentStage Stage
	isRunning    atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	backend      *vulkan.VulkanRenderer
	renderer     *renderer.Renderer
	view         *vulkan.VulkanView
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64
	statsTime    float64

	listeners map[core.EventCode]uint64
}

func New(config *ApplicationConfig) (*Engine, error) {
	if config == nil {
		config = DefaultApplicationConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config:       config,
		currentStage: EngineStageBooting,
		clock:        core.NewClock(),
		width:        config.StartWidth,
		height:       config.StartHeight,
		lastTime:     0,
		listeners:    make(map[core.EventCode]uint64),
	}

	core.LogSetLevel(config.LogLevel)
	core.LogSetFields("session", uuid.NewString())

	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	e.platform = p

	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	e.assetManager = am

	e.currentStage = EngineStageBootComplete
	return e, nil
}

// Initialize opens the window, brings up the GPU and builds the triangle
// renderer. Any error leaves the engine in a state Shutdown can clean up.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	e.listeners[core.EVENT_CODE_APPLICATION_QUIT] = core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	e.listeners[core.EVENT_CODE_RESIZED] = core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	if err := e.platform.Startup(e.config.Name,
		e.config.StartPosX,
		e.config.StartPosY,
		e.config.StartWidth,
		e.config.StartHeight); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	if err := e.assetManager.Initialize(e.config.AssetsDir); err != nil {
		return err
	}

	e.backend = vulkan.New(e.platform, e.assetManager, e.config.backendConfig())
	if err := e.backend.Initialize(e.width, e.height); err != nil {
		return fmt.Errorf("failed to initialize vulkan: %w", err)
	}

	r, err := renderer.New(e.backend, renderer.DefaultConfig())
	if err != nil {
		return err
	}
	e.renderer = r
	e.view = e.backend.NewView(math.NewVec4FromArray(e.config.Renderer.ClearColor))

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64 = 1.0 / float64(e.config.TargetFPS)

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}

		if e.isSuspended {
			e.platform.Sleep(uint64(targetFrameSeconds * 1000))
			// Time spent minimized is not a frame.
			e.clock.Update()
			e.lastTime = e.clock.Elapsed()
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = currentTime - e.lastTime
		var frameStartTime float64 = e.platform.GetAbsoluteTime()

		e.renderer.Draw(e.view)

		// Figure out how long the frame took and, if below
		var frameEndTime float64 = e.platform.GetAbsoluteTime()
		var frameElapsedTime float64 = frameEndTime - frameStartTime
		e.recordFrame(delta)

		var remainingSeconds float64 = targetFrameSeconds - frameElapsedTime
		if remainingSeconds > 0 && e.config.LimitFrames {
			// If there is time left, give it back to the OS.
			remainingMS := uint64(remainingSeconds * 1000)
			if remainingMS > 1 {
				e.platform.Sleep(remainingMS - 1)
			}
		}

		// Update last time
		e.lastTime = currentTime
	}

	e.clock.Stop()
	return nil
}

// recordFrame feeds the wall time since the previous frame to the metrics and
// logs the frame statistics once per second. Reports whether it logged.
func (e *Engine) recordFrame(delta float64) bool {
	core.MetricsUpdate(delta)
	e.statsTime += delta
	if e.statsTime < 1.0 {
		return false
	}
	fps, ms := core.MetricsFrame()
	var stats renderer.Stats
	if e.renderer != nil {
		stats = e.renderer.Stats()
	}
	core.LogDebug("%.0f fps, %.3f ms/frame (submitted %d, skipped %d, dropped %d, present failed %d)",
		fps, ms, stats.Submitted, stats.Skipped, stats.Dropped, stats.PresentFailed)
	e.statsTime -= 1.0
	return true
}

// Stop asks the frame loop to return. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown waits for the GPU and tears everything down in reverse order of
// creation. Safe on a partially initialized engine.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	for code, handle := range e.listeners {
		core.EventUnregister(code, handle)
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}

	if e.backend != nil {
		e.backend.WaitIdle()
		if e.renderer != nil {
			e.renderer.Destroy()
			e.renderer = nil
		}
		if err := e.backend.Shutdown(); err != nil {
			return err
		}
		e.backend = nil
	}
	if e.assetManager != nil {
		if err := e.assetManager.Shutdown(); err != nil {
			return err
		}
	}
	if e.platform != nil && e.platform.Window != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	core.LogInfo("Engine shut down.")
	e.currentStage = EngineStageUninitialized
	return nil
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if e.backend != nil {
		e.backend.Resized(width, height)
	}
	if e.renderer != nil && e.view != nil {
		e.renderer.DrawableSizeWillChange(e.view, width, height)
	}
	return true
}
