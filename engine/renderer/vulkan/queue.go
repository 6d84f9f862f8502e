package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

// VulkanCommandQueue records into one primary command buffer per frame in
// flight and submits to the graphics queue.
type VulkanCommandQueue struct {
	backend *VulkanRenderer
	buffers []*VulkanCommandBuffer
}

var _ renderer.CommandQueue = (*VulkanCommandQueue)(nil)

func NewCommandQueue(backend *VulkanRenderer) (*VulkanCommandQueue, error) {
	context := backend.context
	q := &VulkanCommandQueue{
		backend: backend,
		buffers: make([]*VulkanCommandBuffer, context.MaxFramesInFlight),
	}
	for i := range q.buffers {
		cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
		if err != nil {
			q.Destroy()
			return nil, err
		}
		q.buffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return q, nil
}

// NewCommandBuffer starts recording the current frame slot. It waits for the
// GPU to finish the slot's previous submission.
func (q *VulkanCommandQueue) NewCommandBuffer() (renderer.CommandBuffer, error) {
	context := q.backend.context
	frame := context.CurrentFrame
	if !context.InFlightFences[frame].Wait(context, q.backend.acquireTimeoutNS()) {
		return nil, fmt.Errorf("frame %d is still in flight", frame)
	}

	cb := q.buffers[frame]
	if err := cb.Reset(); err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		return nil, err
	}
	return &VulkanFrameCommandBuffer{queue: q, buffer: cb, frame: frame}, nil
}

func (q *VulkanCommandQueue) Destroy() {
	context := q.backend.context
	if context.Device == nil || context.Device.LogicalDevice == nil {
		return
	}
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	for i, cb := range q.buffers {
		if cb != nil {
			cb.Free(context, context.Device.GraphicsCommandPool)
			q.buffers[i] = nil
		}
	}
}

// VulkanFrameCommandBuffer is the work of a single frame. It can be
// committed once.
type VulkanFrameCommandBuffer struct {
	queue     *VulkanCommandQueue
	buffer    *VulkanCommandBuffer
	frame     uint32
	drawable  *VulkanDrawable
	err       error
	committed bool
}

var _ renderer.CommandBuffer = (*VulkanFrameCommandBuffer)(nil)

// fail keeps the first recording error; Commit reports it.
func (f *VulkanFrameCommandBuffer) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *VulkanFrameCommandBuffer) NewRenderCommandEncoder(descriptor *metadata.RenderPassDescriptor) (renderer.RenderCommandEncoder, error) {
	if descriptor == nil {
		return nil, core.ErrNoRenderPassDescriptor
	}
	drawable, ok := descriptor.ColorAttachment.Target.(*VulkanDrawable)
	if !ok || drawable.presented {
		return nil, errors.New("render pass target is not a current drawable")
	}
	context := f.queue.backend.context
	swapchain := context.Swapchain
	if swapchain == nil || int(drawable.ImageIndex) >= len(swapchain.Framebuffers) {
		return nil, errors.New("render pass target does not belong to the swapchain")
	}

	extent := vk.Extent2D{Width: descriptor.Width, Height: descriptor.Height}

	// Flip Y so that +Y is up in normalized device coordinates.
	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}

	context.MainRenderpass.Begin(f.buffer, swapchain.Framebuffers[drawable.ImageIndex].Handle, extent, descriptor.ColorAttachment.ClearColor)
	vk.CmdSetViewport(f.buffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(f.buffer.Handle, 0, 1, []vk.Rect2D{scissor})

	return &VulkanRenderCommandEncoder{commandBuffer: f, renderpass: context.MainRenderpass}, nil
}

func (f *VulkanFrameCommandBuffer) Present(drawable renderer.Drawable) {
	d, ok := drawable.(*VulkanDrawable)
	if !ok || d == nil {
		f.fail(errors.New("drawable was not acquired from this view"))
		return
	}
	f.drawable = d
}

// Commit submits the recorded work and, when a drawable was presented,
// queues it for presentation. The frame slot advances even if presenting
// fails.
func (f *VulkanFrameCommandBuffer) Commit() error {
	if f.committed {
		return errors.New("command buffer already committed")
	}
	f.committed = true
	if f.err != nil {
		return f.err
	}

	backend := f.queue.backend
	context := backend.context
	if err := f.buffer.End(); err != nil {
		return err
	}

	fence := context.InFlightFences[f.frame]
	if err := fence.Reset(context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{f.buffer.Handle},
	}
	if f.drawable != nil {
		// Wait for the image to be available and signal when rendering completes.
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{context.ImageAvailableSemaphores[f.drawable.Frame]}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{context.QueueCompleteSemaphores[f.drawable.Frame]}
	}

	if err := lockPool.SafeQueueCall(context.Device.GraphicsQueueIndex, func() error {
		return resultError("vkQueueSubmit", vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle))
	}); err != nil {
		// The fence was reset and nothing will signal it, replace it.
		if rerr := backend.replaceFence(f.frame); rerr != nil {
			core.LogError("failed to replace in-flight fence: %s", rerr)
		}
		return err
	}
	f.buffer.UpdateSubmitted()

	var presentErr error
	if f.drawable != nil {
		f.drawable.presented = true
		if backend.view != nil {
			backend.view.release(f.drawable)
		}
		presentErr = context.Swapchain.Present(context, context.QueueCompleteSemaphores[f.drawable.Frame], f.drawable.ImageIndex)
	}

	// Increment (and loop) the index.
	context.CurrentFrame = (context.CurrentFrame + 1) % context.MaxFramesInFlight
	if presentErr != nil {
		return fmt.Errorf("%w: %w", core.ErrPresentFailed, presentErr)
	}
	return nil
}

// VulkanRenderCommandEncoder records draw commands inside the render pass
// begun by NewRenderCommandEncoder.
type VulkanRenderCommandEncoder struct {
	commandBuffer *VulkanFrameCommandBuffer
	renderpass    *VulkanRenderpass
	pipeline      *VulkanRenderPipelineState
	ended         bool
}

var _ renderer.RenderCommandEncoder = (*VulkanRenderCommandEncoder)(nil)

func (e *VulkanRenderCommandEncoder) SetRenderPipelineState(state renderer.RenderPipelineState) {
	s, ok := state.(*VulkanRenderPipelineState)
	if !ok || s.Pipeline == nil {
		e.commandBuffer.fail(errors.New("render pipeline state was not created by this device"))
		return
	}
	s.Pipeline.Bind(e.commandBuffer.buffer, vk.PipelineBindPointGraphics)
	e.pipeline = s
}

func (e *VulkanRenderCommandEncoder) SetVertexBuffer(buffer renderer.Buffer, offset, index int) {
	b, ok := buffer.(*VulkanBuffer)
	if !ok || b.Handle == vk.NullBuffer {
		e.commandBuffer.fail(errors.New("vertex buffer was not created by this device"))
		return
	}
	vk.CmdBindVertexBuffers(e.commandBuffer.buffer.Handle, uint32(index), 1, []vk.Buffer{b.Handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (e *VulkanRenderCommandEncoder) DrawPrimitives(primitive metadata.PrimitiveType, vertexStart, vertexCount int) {
	if e.pipeline == nil {
		e.commandBuffer.fail(errors.New("draw without a render pipeline state"))
		return
	}
	if primitive != e.pipeline.topology {
		e.commandBuffer.fail(fmt.Errorf("draw of %s with a %s pipeline", primitive, e.pipeline.topology))
		return
	}
	vk.CmdDraw(e.commandBuffer.buffer.Handle, uint32(vertexCount), 1, uint32(vertexStart), 0)
}

func (e *VulkanRenderCommandEncoder) EndEncoding() {
	if e.ended {
		return
	}
	e.renderpass.End(e.commandBuffer.buffer)
	e.ended = true
}
