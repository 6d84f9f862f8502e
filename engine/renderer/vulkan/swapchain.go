package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/math"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// chooseSurfaceFormat returns the surface format with the wanted pixel
// format. There is no fallback.
func chooseSurfaceFormat(formats []vk.SurfaceFormat, want vk.Format) (vk.SurfaceFormat, error) {
	for _, format := range formats {
		if format.Format == want && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format, nil
		}
	}
	for _, format := range formats {
		if format.Format == want {
			return format, nil
		}
	}
	return vk.SurfaceFormat{}, fmt.Errorf("surface does not support format %d: %w", want, core.ErrUnsupportedPixelFormat)
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	// FIFO is always available.
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent unless the window manager
// lets the application pick, and clamps to what the GPU allows.
func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != vk.MaxUint32 {
		return capabilities.CurrentExtent
	}
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  math.Clamp(width, min.Width, max.Width),
		Height: math.Clamp(height, min.Height, max.Height),
	}
}

func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func SwapchainCreate(context *VulkanContext, format vk.Format, width, height uint32) (*VulkanSwapchain, error) {
	return createSwapchain(context, format, width, height, vk.NullSwapchain)
}

// Recreate builds a replacement swapchain for the new size from the support
// info cached on the device and destroys vs. Framebuffers are not carried over.
func (vs *VulkanSwapchain) Recreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	sc, err := createSwapchain(context, vs.ImageFormat.Format, width, height, vs.Handle)
	vs.Destroy(context)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = nil

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for i := range vs.Views {
		if vs.Views[i] != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

// AcquireNextImageIndex returns the next presentable image. ok is false when
// no image is available within timeoutNS or the swapchain is out of date; in
// the latter case a resize is flagged so the swapchain gets rebuilt.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, bool, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)

	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, true, nil
	case vk.ErrorOutOfDate:
		context.FramebufferSizeGeneration++
		return 0, false, nil
	case vk.Timeout, vk.NotReady:
		return 0, false, nil
	default:
		return 0, false, resultError("vkAcquireNextImageKHR", result)
	}
}

// Present returns the image to the swapchain once renderCompleteSemaphore
// is signaled.
func (vs *VulkanSwapchain) Present(context *VulkanContext, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	var result vk.Result
	_ = lockPool.SafeQueueCall(context.Device.PresentQueueIndex, func() error {
		result = vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
		return nil
	})

	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		// Swapchain is out of date, suboptimal or a framebuffer resize has occurred. Trigger swapchain recreation.
		context.FramebufferSizeGeneration++
		return nil
	default:
		return resultError("vkQueuePresentKHR", result)
	}
}

// RegenerateFramebuffers builds one framebuffer per swapchain image for renderpass.
func (vs *VulkanSwapchain) RegenerateFramebuffers(context *VulkanContext, renderpass *VulkanRenderpass) error {
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = make([]*VulkanFramebuffer, vs.ImageCount)
	for i := range vs.Views {
		fb, err := FramebufferCreate(context, renderpass, vs.Extent.Width, vs.Extent.Height, []vk.ImageView{vs.Views[i]})
		if err != nil {
			return err
		}
		vs.Framebuffers[i] = fb
	}
	return nil
}

func createSwapchain(context *VulkanContext, format vk.Format, width, height uint32, old vk.Swapchain) (*VulkanSwapchain, error) {
	support := context.Device.SwapchainSupport
	swapchain := &VulkanSwapchain{}

	surfaceFormat, err := chooseSurfaceFormat(support.Formats, format)
	if err != nil {
		return nil, err
	}
	swapchain.ImageFormat = surfaceFormat
	swapchain.Extent = chooseExtent(support.Capabilities, width, height)
	presentMode := choosePresentMode(support.PresentModes)
	imageCount := chooseImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if err := lockPool.SafeCall(SwapchainManagement, func() error {
		return resultError("vkCreateSwapchainKHR", vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchain.Handle))
	}); err != nil {
		return nil, err
	}

	// Images
	if err := resultError("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil)); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if err := resultError("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images)); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}

	// Views
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	for i := range swapchain.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   surfaceFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if err := resultError("vkCreateImageView", vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.Views[i])); err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount)
	return swapchain, nil
}
