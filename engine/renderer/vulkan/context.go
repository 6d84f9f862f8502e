package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Current generation of framebuffer size. If it does not match FramebufferSizeLastGeneration,
	// the swapchain has to be recreated before the next image is acquired.
	FramebufferSizeGeneration uint64
	// The generation of the framebuffer when it was last created.
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore

	MaxFramesInFlight uint32
	InFlightFences    []*VulkanFence

	// Holds pointers to fences which exist and are owned elsewhere.
	ImagesInFlight []*VulkanFence

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// every bit of propertyFlags, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	return -1
}

// ResizePending reports whether the framebuffer changed size since the
// swapchain was last built.
func (vc *VulkanContext) ResizePending() bool {
	return vc.FramebufferSizeGeneration != vc.FramebufferSizeLastGeneration
}
