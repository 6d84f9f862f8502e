package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/hellotriangle/engine/core"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   *VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
	Name       string
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

// VulkanPhysicalDeviceQueueFamilyInfo holds queue family indices, -1 when the
// device has no family with that capability.
type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func (q VulkanPhysicalDeviceQueueFamilyInfo) IsComplete() bool {
	return q.GraphicsFamilyIndex >= 0 && q.PresentFamilyIndex >= 0
}

// selectQueueFamilies picks a graphics and a present family, preferring a
// single family that can do both.
func selectQueueFamilies(flags []vk.QueueFlags, present []bool) VulkanPhysicalDeviceQueueFamilyInfo {
	info := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	for i := range flags {
		graphics := flags[i]&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		if graphics && present[i] {
			info.GraphicsFamilyIndex = int32(i)
			info.PresentFamilyIndex = int32(i)
			return info
		}
		if graphics && info.GraphicsFamilyIndex < 0 {
			info.GraphicsFamilyIndex = int32(i)
		}
		if present[i] && info.PresentFamilyIndex < 0 {
			info.PresentFamilyIndex = int32(i)
		}
	}
	return info
}

// deviceTypeScore ranks device types; discrete GPUs win.
func deviceTypeScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 100
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 50
	case vk.PhysicalDeviceTypeCpu:
		return 10
	default:
		return 1
	}
}

func deviceTypeString(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "Unknown"
	}
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")

	// Do not create additional queues for shared indices.
	queueFamilies := map[uint32]struct{}{
		device.GraphicsQueueIndex: {},
		device.PresentQueueIndex:  {},
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, 0, len(queueFamilies))
	for familyIndex := range queueFamilies {
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: familyIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	available, err := deviceExtensions(device.PhysicalDevice)
	if err != nil {
		return err
	}
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if _, ok := available[portabilitySubsetExtensionName]; ok {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if err := resultError("vkCreateDevice", vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice)); err != nil {
		return err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &device.PresentQueue)
	core.LogInfo("Queues obtained.")

	// Command buffers are re-recorded every frame, so they must be individually resettable.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := resultError("vkCreateCommandPool", vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &device.GraphicsCommandPool)); err != nil {
		return err
	}
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}

	device.GraphicsQueue = nil
	device.PresentQueue = nil

	if device.GraphicsCommandPool != vk.NullCommandPool {
		core.LogDebug("Destroying command pools...")
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}

	if device.LogicalDevice != nil {
		core.LogDebug("Destroying logical device...")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = nil
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	supportInfo := &VulkanSwapchainSupportInfo{}

	// Surface capabilities
	if err := resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities)); err != nil {
		return nil, err
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if err := resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil)); err != nil {
		return nil, err
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if err := resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, formats)); err != nil {
			return nil, err
		}
		for _, format := range formats[:formatCount] {
			format.Deref()
			supportInfo.Formats = append(supportInfo.Formats, format)
		}
	}

	// Present modes
	var presentModeCount uint32
	if err := resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil)); err != nil {
		return nil, err
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if err := resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes)); err != nil {
			return nil, err
		}
		supportInfo.PresentModes = supportInfo.PresentModes[:presentModeCount]
	}
	return supportInfo, nil
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil)); err != nil {
		return err
	}
	if physicalDeviceCount == 0 {
		return errors.New("no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices)); err != nil {
		return err
	}

	requirements := &VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	var (
		best      *VulkanDevice
		bestScore int
	)
	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()
		name := vk.ToString(properties.DeviceName[:])

		queueInfo, support, ok := PhysicalDeviceMeetsRequirements(physicalDevice, context.Surface, &properties, requirements)
		if !ok {
			continue
		}
		if score := deviceTypeScore(properties.DeviceType); best == nil || score > bestScore {
			var memory vk.PhysicalDeviceMemoryProperties
			vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
			memory.Deref()

			best = &VulkanDevice{
				PhysicalDevice:     physicalDevice,
				SwapchainSupport:   support,
				GraphicsQueueIndex: uint32(queueInfo.GraphicsFamilyIndex),
				PresentQueueIndex:  uint32(queueInfo.PresentFamilyIndex),
				Properties:         properties,
				Memory:             memory,
				Name:               name,
			}
			bestScore = score
		}
	}

	if best == nil {
		return errors.New("no physical devices were found which meet the requirements")
	}

	properties := best.Properties
	core.LogInfo("Selected device: '%s'.", best.Name)
	core.LogInfo("GPU type is %s.", deviceTypeString(properties.DeviceType))
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)
	for j := uint32(0); j < best.Memory.MemoryHeapCount; j++ {
		heap := best.Memory.MemoryHeaps[j]
		heap.Deref()
		memorySizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}

	context.Device = best
	core.LogInfo("Physical device selected.")
	return nil
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, *VulkanSwapchainSupportInfo, bool) {
	name := vk.ToString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return VulkanPhysicalDeviceQueueFamilyInfo{}, nil, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	flags := make([]vk.QueueFlags, queueFamilyCount)
	present := make([]bool, queueFamilyCount)
	for i, family := range queueFamilies {
		family.Deref()
		flags[i] = family.QueueFlags

		var supportsPresent vk.Bool32
		if err := resultError("vkGetPhysicalDeviceSurfaceSupportKHR", vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent)); err != nil {
			core.LogWarn("error querying surface support for queue family %d: %s", i, err)
			continue
		}
		present[i] = supportsPresent.B()
	}
	queueInfo := selectQueueFamilies(flags, present)

	core.LogDebug("Graphics: %d | Present: %d | %s", queueInfo.GraphicsFamilyIndex, queueInfo.PresentFamilyIndex, name)
	if (requirements.Graphics && queueInfo.GraphicsFamilyIndex < 0) || (requirements.Present && queueInfo.PresentFamilyIndex < 0) {
		core.LogInfo("Device '%s' does not meet queue requirements, skipping.", name)
		return queueInfo, nil, false
	}

	if len(requirements.DeviceExtensionNames) > 0 {
		available, err := deviceExtensions(device)
		if err != nil {
			core.LogWarn("failed to enumerate extensions of '%s': %s", name, err)
			return queueInfo, nil, false
		}
		for _, required := range requirements.DeviceExtensionNames {
			if _, ok := available[required]; !ok {
				core.LogInfo("Required extension not found: '%s', skipping device.", required)
				return queueInfo, nil, false
			}
		}
	}

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil {
		core.LogWarn("failed to query swapchain support of '%s': %s", name, err)
		return queueInfo, nil, false
	}
	if len(support.Formats) < 1 || len(support.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queueInfo, nil, false
	}

	return queueInfo, support, true
}

func deviceExtensions(device vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if err := resultError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)); err != nil {
		return nil, err
	}
	extensions := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if err := resultError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &count, extensions)); err != nil {
			return nil, fmt.Errorf("failed to list device extensions: %w", err)
		}
	}
	out := make(map[string]struct{}, count)
	for _, extension := range extensions {
		extension.Deref()
		out[vk.ToString(extension.ExtensionName[:])] = struct{}{}
	}
	return out, nil
}
