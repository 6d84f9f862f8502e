package vulkan

import (
	"errors"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/hellotriangle/engine/renderer"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

// VulkanBuffer is a vertex buffer in host visible, coherent memory. It is
// written once on creation.
type VulkanBuffer struct {
	context *VulkanContext
	Handle  vk.Buffer
	Memory  vk.DeviceMemory
	length  int
}

var _ renderer.Buffer = (*VulkanBuffer)(nil)

func NewVertexBuffer(context *VulkanContext, data []byte) (*VulkanBuffer, error) {
	if len(data) == 0 {
		return nil, errors.New("vertex buffer needs data")
	}
	b := &VulkanBuffer{context: context, length: len(data)}
	if err := b.create(data); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *VulkanBuffer) create(data []byte) error {
	device := b.context.Device.LogicalDevice

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(len(data)),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := resultError("vkCreateBuffer", vk.CreateBuffer(device, &bufferInfo, b.context.Allocator, &b.Handle)); err != nil {
		return err
	}

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, b.Handle, &memRequirements)
	memRequirements.Deref()

	memoryIndex := b.context.FindMemoryIndex(memRequirements.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if memoryIndex < 0 {
		return errors.New("unable to find a host visible memory type for the vertex buffer")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(metadata.GetAligned(uint64(memRequirements.Size), uint64(memRequirements.Alignment))),
		MemoryTypeIndex: uint32(memoryIndex),
	}
	return lockPool.SafeCall(MemoryManagement, func() error {
		if err := resultError("vkAllocateMemory", vk.AllocateMemory(device, &allocInfo, b.context.Allocator, &b.Memory)); err != nil {
			return err
		}
		if err := resultError("vkBindBufferMemory", vk.BindBufferMemory(device, b.Handle, b.Memory, 0)); err != nil {
			return err
		}

		var pData unsafe.Pointer
		if err := resultError("vkMapMemory", vk.MapMemory(device, b.Memory, 0, vk.DeviceSize(len(data)), 0, &pData)); err != nil {
			return err
		}
		vk.Memcopy(pData, data)
		vk.UnmapMemory(device, b.Memory)
		return nil
	})
}

func (b *VulkanBuffer) Length() int {
	return b.length
}

// Contents maps the buffer and returns a copy of what the GPU sees.
func (b *VulkanBuffer) Contents() []byte {
	if b.Memory == vk.NullDeviceMemory {
		return nil
	}
	out := make([]byte, b.length)
	device := b.context.Device.LogicalDevice
	_ = lockPool.SafeCall(MemoryManagement, func() error {
		var pData unsafe.Pointer
		if err := resultError("vkMapMemory", vk.MapMemory(device, b.Memory, 0, vk.DeviceSize(b.length), 0, &pData)); err != nil {
			out = nil
			return err
		}
		copy(out, unsafe.Slice((*byte)(pData), b.length))
		vk.UnmapMemory(device, b.Memory)
		return nil
	})
	return out
}

func (b *VulkanBuffer) Destroy() {
	device := b.context.Device.LogicalDevice
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, b.context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.Memory, b.context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}
