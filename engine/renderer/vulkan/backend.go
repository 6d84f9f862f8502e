package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/hellotriangle/engine/assets"
	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/math"
	"github.com/spaghettifunk/hellotriangle/engine/platform"
	"github.com/spaghettifunk/hellotriangle/engine/renderer"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// VulkanRenderer owns the Vulkan instance, the device and the swapchain and
// implements renderer.Device on top of them.
type VulkanRenderer struct {
	platform                *platform.Platform
	assets                  *assets.AssetManager
	config                  metadata.RendererBackendConfig
	FrameNumber             uint64
	context                 *VulkanContext
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	library *VulkanShaderLibrary
	view    *VulkanView
}

var _ renderer.Device = (*VulkanRenderer)(nil)

func New(p *platform.Platform, am *assets.AssetManager, config metadata.RendererBackendConfig) *VulkanRenderer {
	if config.MaxFramesInFlight == 0 {
		config.MaxFramesInFlight = metadata.DefaultMaxFramesInFlight
	}
	if config.ColorPixelFormat == metadata.PixelFormatInvalid {
		config.ColorPixelFormat = metadata.PixelFormatBGRA8Unorm
	}
	return &VulkanRenderer{
		platform: p,
		assets:   am,
		config:   config,
		context: &VulkanContext{
			Allocator:         nil,
			MaxFramesInFlight: config.MaxFramesInFlight,
		},
	}
}

// Initialize brings up everything needed to present to the platform window.
// On failure the caller must still call Shutdown.
func (vr *VulkanRenderer) Initialize(width, height uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w", err)
	}

	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	if err := vr.createInstance(); err != nil {
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.config.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		if err := vr.createDebugger(); err != nil {
			return err
		}
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.CreateWindowSurface(vr.context.Instance)
	if err != nil {
		return fmt.Errorf("failed to create platform surface: %w", err)
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	format, err := pixelFormatToVulkan(vr.config.ColorPixelFormat)
	if err != nil {
		return err
	}
	sc, err := SwapchainCreate(vr.context, format, width, height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc
	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height

	rp, err := RenderpassCreate(vr.context, sc.ImageFormat.Format)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	if err := sc.RegenerateFramebuffers(vr.context, rp); err != nil {
		return err
	}

	if err := vr.createSyncObjects(); err != nil {
		return err
	}
	vr.context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

// Shutdown destroys everything Initialize created, in reverse order. Objects
// handed out through renderer.Device must be destroyed first.
func (vr *VulkanRenderer) Shutdown() error {
	context := vr.context
	vr.WaitIdle()
	vr.view = nil
	vr.library = nil

	if context.Device != nil && context.Device.LogicalDevice != nil {
		vr.destroySyncObjects()

		if context.Swapchain != nil {
			context.Swapchain.Destroy(context)
			context.Swapchain = nil
		}
		if context.MainRenderpass != nil {
			context.MainRenderpass.Destroy(context)
			context.MainRenderpass = nil
		}
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(context)
	context.Device = nil

	if context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}

	if context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}

	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
	return nil
}

// WaitIdle blocks until the GPU has finished all submitted work.
func (vr *VulkanRenderer) WaitIdle() {
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	}
}

// Resized records the new framebuffer size. The swapchain is rebuilt when
// the next drawable is requested.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	// Update the "framebuffer size generation", a counter which indicates when the
	// framebuffer size has been updated.
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++

	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
}

// ResizePending reports whether the swapchain is older than the last Resized.
func (vr *VulkanRenderer) ResizePending() bool {
	return vr.context.ResizePending()
}

// NewView returns the view presenting to the platform window. Every render
// pass it describes clears to clearColor.
func (vr *VulkanRenderer) NewView(clearColor math.Vec4) *VulkanView {
	vr.view = &VulkanView{backend: vr, clearColor: clearColor}
	return vr.view
}

func (vr *VulkanRenderer) Name() string {
	if vr.context.Device == nil {
		return "no device"
	}
	return vr.context.Device.Name
}

func (vr *VulkanRenderer) NewCommandQueue() (renderer.CommandQueue, error) {
	q, err := NewCommandQueue(vr)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (vr *VulkanRenderer) NewBuffer(data []byte) (renderer.Buffer, error) {
	b, err := NewVertexBuffer(vr.context, data)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (vr *VulkanRenderer) NewDefaultLibrary() (renderer.ShaderLibrary, error) {
	lib, err := NewShaderLibrary(vr.context, vr.assets, DefaultLibraryManifest)
	if err != nil {
		return nil, err
	}
	vr.library = lib
	return lib, nil
}

// NewRenderPipelineState resolves the descriptor's functions in the default
// library and builds the pipeline against the main render pass.
func (vr *VulkanRenderer) NewRenderPipelineState(descriptor *metadata.RenderPipelineDescriptor) (renderer.RenderPipelineState, error) {
	if descriptor.Label == "" {
		descriptor.Label = "pipeline-" + uuid.NewString()
	}
	state, err := NewRenderPipelineState(vr.context, vr.library, descriptor)
	if err != nil {
		return nil, err
	}
	core.LogDebug("Render pipeline state %q created.", descriptor.Label)
	return state, nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)), // negative viewport heights
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.ApplicationName),
		PEngineName:        VulkanSafeString("Hello Triangle"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := vr.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var requiredValidationLayerNames []string
	if vr.config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)

		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{validationLayerName}
		if err := checkValidationLayers(requiredValidationLayerNames); err != nil {
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	for _, e := range requiredExtensions {
		core.LogDebug("Required extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if err := resultError("vkCreateInstance", vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance)); err != nil {
		return err
	}
	return vk.InitInstance(vr.context.Instance)
}

func checkValidationLayers(required []string) error {
	var availableLayerCount uint32
	if err := resultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil)); err != nil {
		return err
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if err := resultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers)); err != nil {
		return err
	}

	available := make(map[string]struct{}, availableLayerCount)
	for _, layer := range availableLayers {
		layer.Deref()
		available[vk.ToString(layer.LayerName[:])] = struct{}{}
	}
	for _, name := range required {
		core.LogInfo("Searching for layer: %s...", name)
		if _, ok := available[name]; !ok {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
	}
	return nil
}

func (vr *VulkanRenderer) createDebugger() error {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := resultError("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, vr.context.Allocator, &dbg)); err != nil {
		return err
	}
	vr.context.debugMessenger = dbg
	return nil
}

func (vr *VulkanRenderer) createSyncObjects() error {
	context := vr.context
	n := context.MaxFramesInFlight
	context.ImageAvailableSemaphores = make([]vk.Semaphore, n)
	context.QueueCompleteSemaphores = make([]vk.Semaphore, n)
	context.InFlightFences = make([]*VulkanFence, n)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := uint32(0); i < n; i++ {
		if err := resultError("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &context.ImageAvailableSemaphores[i])); err != nil {
			return err
		}
		if err := resultError("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &context.QueueCompleteSemaphores[i])); err != nil {
			return err
		}

		// Create the fence in a signaled state, indicating that the first frame has already been "rendered".
		// This will prevent the application from waiting indefinitely for the first frame to render since it
		// cannot be rendered until a frame is "rendered" before it.
		f, err := NewFence(context, true)
		if err != nil {
			return err
		}
		context.InFlightFences[i] = f
	}
	return nil
}

func (vr *VulkanRenderer) destroySyncObjects() {
	context := vr.context
	for i := range context.ImageAvailableSemaphores {
		if context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, context.ImageAvailableSemaphores[i], context.Allocator)
		}
		if context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, context.QueueCompleteSemaphores[i], context.Allocator)
		}
		if context.InFlightFences[i] != nil {
			context.InFlightFences[i].Destroy(context)
		}
	}
	context.ImageAvailableSemaphores = nil
	context.QueueCompleteSemaphores = nil
	context.InFlightFences = nil
	context.ImagesInFlight = nil
}

// replaceFence swaps the in-flight fence of frame for a new signaled one.
func (vr *VulkanRenderer) replaceFence(frame uint32) error {
	context := vr.context
	old := context.InFlightFences[frame]
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	f, err := NewFence(context, true)
	if err != nil {
		return err
	}
	for i := range context.ImagesInFlight {
		if context.ImagesInFlight[i] == old {
			context.ImagesInFlight[i] = nil
		}
	}
	old.Destroy(context)
	context.InFlightFences[frame] = f
	return nil
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	context := vr.context

	// If already being recreated, do not try again.
	if context.RecreatingSwapchain {
		return core.ErrSwapchainBooting
	}

	// Detect if the window is too small to be drawn to
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		return fmt.Errorf("window is < 1 in a dimension: %w", core.ErrSwapchainBooting)
	}

	context.RecreatingSwapchain = true
	defer func() { context.RecreatingSwapchain = false }()

	// Wait for any operations to complete.
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return err
	}
	context.Device.SwapchainSupport = support

	var sc *VulkanSwapchain
	if context.Swapchain == nil {
		sc, err = SwapchainCreate(context, context.MainRenderpass.Format, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight)
	} else {
		sc, err = context.Swapchain.Recreate(context, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight)
	}
	if err != nil {
		context.Swapchain = nil
		return err
	}
	context.Swapchain = sc

	if err := sc.RegenerateFramebuffers(context, context.MainRenderpass); err != nil {
		return err
	}
	context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)

	// Sync the framebuffer size with the swapchain.
	context.FramebufferWidth = sc.Extent.Width
	context.FramebufferHeight = sc.Extent.Height
	context.FramebufferSizeLastGeneration = context.FramebufferSizeGeneration
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
