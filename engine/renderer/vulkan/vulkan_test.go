package vulkan

import (
	"errors"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/math"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

func graphics() vk.QueueFlags { return vk.QueueFlags(vk.QueueGraphicsBit) }
func compute() vk.QueueFlags  { return vk.QueueFlags(vk.QueueComputeBit) }

func TestSelectQueueFamilies(t *testing.T) {
	tests := []struct {
		name        string
		flags       []vk.QueueFlags
		present     []bool
		graphicsIdx int32
		presentIdx  int32
	}{
		{"shared family", []vk.QueueFlags{graphics()}, []bool{true}, 0, 0},
		{"prefers shared over first graphics", []vk.QueueFlags{graphics(), graphics() | compute()}, []bool{false, true}, 1, 1},
		{"split families", []vk.QueueFlags{graphics(), compute()}, []bool{false, true}, 0, 1},
		{"no present", []vk.QueueFlags{graphics()}, []bool{false}, 0, -1},
		{"no graphics", []vk.QueueFlags{compute()}, []bool{true}, -1, 0},
		{"empty", nil, nil, -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := selectQueueFamilies(tt.flags, tt.present)
			assert.Equal(t, tt.graphicsIdx, info.GraphicsFamilyIndex)
			assert.Equal(t, tt.presentIdx, info.PresentFamilyIndex)
			assert.Equal(t, tt.graphicsIdx >= 0 && tt.presentIdx >= 0, info.IsComplete())
		})
	}
}

func TestDeviceTypeScore(t *testing.T) {
	assert.Greater(t, deviceTypeScore(vk.PhysicalDeviceTypeDiscreteGpu), deviceTypeScore(vk.PhysicalDeviceTypeIntegratedGpu))
	assert.Greater(t, deviceTypeScore(vk.PhysicalDeviceTypeIntegratedGpu), deviceTypeScore(vk.PhysicalDeviceTypeVirtualGpu))
	assert.Greater(t, deviceTypeScore(vk.PhysicalDeviceTypeVirtualGpu), deviceTypeScore(vk.PhysicalDeviceTypeCpu))
	assert.Greater(t, deviceTypeScore(vk.PhysicalDeviceTypeCpu), deviceTypeScore(vk.PhysicalDeviceTypeOther))
	assert.Equal(t, "Discrete", deviceTypeString(vk.PhysicalDeviceTypeDiscreteGpu))
	assert.Equal(t, "Unknown", deviceTypeString(vk.PhysicalDeviceTypeOther))
}

func TestChooseSurfaceFormat(t *testing.T) {
	linear := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpace(1000104001)}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	f, err := chooseSurfaceFormat([]vk.SurfaceFormat{rgba, other, linear}, vk.FormatB8g8r8a8Unorm)
	require.NoError(t, err)
	assert.Equal(t, linear, f)

	f, err = chooseSurfaceFormat([]vk.SurfaceFormat{rgba, other}, vk.FormatB8g8r8a8Unorm)
	require.NoError(t, err)
	assert.Equal(t, other, f)

	_, err = chooseSurfaceFormat([]vk.SurfaceFormat{rgba}, vk.FormatB8g8r8a8Unorm)
	assert.ErrorIs(t, err, core.ErrUnsupportedPixelFormat)
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil))
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(caps, 1024, 768))

	caps.CurrentExtent = vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, chooseExtent(caps, 1024, 768))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 1}, chooseExtent(caps, 9000, 0))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2}))
	assert.Equal(t, uint32(2), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
	assert.Equal(t, uint32(4), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 8}))
}

func TestPixelFormatToVulkan(t *testing.T) {
	f, err := pixelFormatToVulkan(metadata.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, f)

	_, err = pixelFormatToVulkan(metadata.PixelFormatInvalid)
	assert.ErrorIs(t, err, core.ErrUnsupportedPixelFormat)
}

func TestVertexAttributes(t *testing.T) {
	attributes, err := vertexAttributes(metadata.TriangleVertexDescriptor())
	require.NoError(t, err)
	require.Len(t, attributes, 1)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attributes[0].Format)
	assert.Equal(t, uint32(0), attributes[0].Location)
	assert.Equal(t, uint32(0), attributes[0].Offset)

	overrun := metadata.TriangleVertexDescriptor()
	overrun.Attributes[0].Offset = 4
	_, err = vertexAttributes(overrun)
	assert.ErrorContains(t, err, "overruns")

	invalid := metadata.TriangleVertexDescriptor()
	invalid.Attributes[0].Format = metadata.VertexFormatInvalid
	_, err = vertexAttributes(invalid)
	assert.Error(t, err)
}

func TestPrimitiveTopologyAndCullMode(t *testing.T) {
	topology, err := primitiveTopology(metadata.PrimitiveTypeTriangle)
	require.NoError(t, err)
	assert.Equal(t, vk.PrimitiveTopologyTriangleList, topology)
	_, err = primitiveTopology(metadata.PrimitiveType(7))
	assert.ErrorContains(t, err, "PrimitiveType(7)")

	assert.Equal(t, vk.CullModeFlags(vk.CullModeNone), cullModeFlags(metadata.FaceCullModeNone))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), cullModeFlags(metadata.FaceCullModeBack))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontAndBack), cullModeFlags(metadata.FaceCullModeFrontAndBack))
}

func TestResultHelpers(t *testing.T) {
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", VulkanResultString(vk.ErrorOutOfDate))
	assert.Equal(t, "VK_SUBOPTIMAL_KHR", VulkanResultString(vk.Suboptimal))
	assert.Equal(t, "VkResult(-12345)", VulkanResultString(vk.Result(-12345)))

	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorDeviceLost))

	assert.NoError(t, resultError("vkQueueSubmit", vk.Success))
	err := resultError("vkQueueSubmit", vk.ErrorDeviceLost)
	var vkErr *VulkanError
	require.True(t, errors.As(err, &vkErr))
	assert.Equal(t, vk.ErrorDeviceLost, vkErr.Result)
	assert.Equal(t, "vkQueueSubmit failed with VK_ERROR_DEVICE_LOST", err.Error())
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))

	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, []string{"a", "b\x00"}, in)
}

func TestLockPoolSerializesGroups(t *testing.T) {
	pool := NewVulkanLockPool()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(MemoryManagement, func() error { counter++; return nil })
		}()
		go func() {
			defer wg.Done()
			_ = pool.SafeQueueCall(0, func() error { return nil })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	sentinel := errors.New("boom")
	assert.ErrorIs(t, pool.SafeCall(PipelineManagement, func() error { return sentinel }), sentinel)
	assert.ErrorIs(t, pool.SafeQueueCall(3, func() error { return sentinel }), sentinel)
}

func TestCommandBufferStateString(t *testing.T) {
	assert.Equal(t, "recording", COMMAND_BUFFER_STATE_RECORDING.String())
	assert.Equal(t, "in render pass", COMMAND_BUFFER_STATE_IN_RENDER_PASS.String())
	assert.Equal(t, "not allocated", COMMAND_BUFFER_STATE_NOT_ALLOCATED.String())
}

func TestNewRendererDefaults(t *testing.T) {
	vr := New(nil, nil, metadata.RendererBackendConfig{})
	assert.Equal(t, metadata.DefaultMaxFramesInFlight, vr.context.MaxFramesInFlight)
	assert.Equal(t, metadata.PixelFormatBGRA8Unorm, vr.config.ColorPixelFormat)
	assert.Equal(t, uint64(vk.MaxUint64), vr.acquireTimeoutNS())
	assert.Equal(t, "no device", vr.Name())

	vr = New(nil, nil, metadata.RendererBackendConfig{AcquireTimeoutMS: 5, MaxFramesInFlight: 3})
	assert.Equal(t, uint64(5_000_000), vr.acquireTimeoutNS())
	assert.Equal(t, uint32(3), vr.context.MaxFramesInFlight)
}

func TestResizedSchedulesRecreation(t *testing.T) {
	vr := New(nil, nil, metadata.RendererBackendConfig{})
	assert.False(t, vr.ResizePending())

	vr.Resized(640, 480)
	assert.True(t, vr.ResizePending())
	assert.Equal(t, uint32(640), vr.cachedFramebufferWidth)
	assert.Equal(t, uint32(480), vr.cachedFramebufferHeight)
}

func TestRecreateSwapchainBooting(t *testing.T) {
	vr := New(nil, nil, metadata.RendererBackendConfig{})

	vr.context.RecreatingSwapchain = true
	assert.ErrorIs(t, vr.recreateSwapchain(), core.ErrSwapchainBooting)

	// Minimized windows have no area to draw to.
	vr.context.RecreatingSwapchain = false
	vr.Resized(0, 480)
	assert.ErrorIs(t, vr.recreateSwapchain(), core.ErrSwapchainBooting)
	assert.False(t, vr.context.RecreatingSwapchain)
}

func TestViewWithoutDrawable(t *testing.T) {
	vr := New(nil, nil, metadata.RendererBackendConfig{})
	view := vr.NewView(math.Vec4{X: 0, Y: 0, Z: 0, W: 1})

	// No swapchain yet and no area: the frame is skipped, not failed.
	vr.Resized(0, 0)
	d, ok := view.CurrentDrawable()
	assert.False(t, ok)
	assert.Nil(t, d)

	_, ok = view.CurrentRenderPassDescriptor()
	assert.False(t, ok)
	assert.Equal(t, metadata.PixelFormatBGRA8Unorm, view.ColorPixelFormat())
}

func TestRenderPassDescriptorTargetsDrawable(t *testing.T) {
	vr := New(nil, nil, metadata.RendererBackendConfig{})
	clear := math.Vec4{X: 0.5, Y: 0, Z: 0, W: 1}
	view := vr.NewView(clear)
	drawable := &VulkanDrawable{ImageIndex: 1, width: 800, height: 600}
	view.drawable = drawable

	d, ok := view.CurrentDrawable()
	require.True(t, ok)
	assert.Same(t, drawable, d)

	desc, ok := view.CurrentRenderPassDescriptor()
	require.True(t, ok)
	assert.Same(t, drawable, desc.ColorAttachment.Target)
	assert.Equal(t, clear, desc.ColorAttachment.ClearColor)
	assert.Equal(t, uint32(800), desc.Width)
	assert.Equal(t, uint32(600), desc.Height)

	view.release(&VulkanDrawable{})
	assert.NotNil(t, view.drawable)
	view.release(drawable)
	assert.Nil(t, view.drawable)
}
