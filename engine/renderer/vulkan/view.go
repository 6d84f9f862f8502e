package vulkan

import (
	"errors"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/math"
	"github.com/spaghettifunk/hellotriangle/engine/renderer"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

// VulkanDrawable is an acquired swapchain image. It stays current until the
// command buffer presenting it is committed.
type VulkanDrawable struct {
	ImageIndex uint32
	// Frame is the in-flight slot whose semaphores guard the image.
	Frame     uint32
	width     uint32
	height    uint32
	presented bool
}

var _ renderer.Drawable = (*VulkanDrawable)(nil)

func (d *VulkanDrawable) Width() uint32  { return d.width }
func (d *VulkanDrawable) Height() uint32 { return d.height }

// VulkanView hands out swapchain images to a renderer.ViewDelegate.
type VulkanView struct {
	backend    *VulkanRenderer
	clearColor math.Vec4
	drawable   *VulkanDrawable
}

var _ renderer.View = (*VulkanView)(nil)

// CurrentDrawable acquires the next swapchain image, or returns the one
// acquired earlier this frame. ok is false while the swapchain is being
// rebuilt, the window has no area, or no image became available in time.
func (v *VulkanView) CurrentDrawable() (renderer.Drawable, bool) {
	if v.drawable != nil {
		return v.drawable, true
	}
	d, err := v.backend.acquireDrawable()
	if err != nil {
		core.LogError("failed to acquire drawable: %s", err)
		return nil, false
	}
	if d == nil {
		return nil, false
	}
	v.drawable = d
	return d, true
}

// CurrentRenderPassDescriptor describes a pass that clears the current
// drawable. It is only available once a drawable was acquired.
func (v *VulkanView) CurrentRenderPassDescriptor() (*metadata.RenderPassDescriptor, bool) {
	if v.drawable == nil {
		return nil, false
	}
	return &metadata.RenderPassDescriptor{
		ColorAttachment: metadata.RenderPassColorAttachment{
			ClearColor: v.clearColor,
			Target:     v.drawable,
		},
		Width:  v.drawable.width,
		Height: v.drawable.height,
	}, true
}

func (v *VulkanView) ColorPixelFormat() metadata.PixelFormat {
	return v.backend.config.ColorPixelFormat
}

// release forgets d once it has been handed to the presentation engine.
func (v *VulkanView) release(d *VulkanDrawable) {
	if v.drawable == d {
		v.drawable = nil
	}
}

func (vr *VulkanRenderer) acquireDrawable() (*VulkanDrawable, error) {
	context := vr.context

	if context.RecreatingSwapchain {
		core.LogDebug("Recreating swapchain, booting.")
		return nil, nil
	}

	// A new swapchain is needed; the frame is skipped either way.
	if context.Swapchain == nil || vr.ResizePending() {
		err := vr.recreateSwapchain()
		if errors.Is(err, core.ErrSwapchainBooting) {
			core.LogDebug("%s", err)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		core.LogInfo("Resized, booting.")
		return nil, nil
	}

	if context.FramebufferWidth == 0 || context.FramebufferHeight == 0 {
		return nil, nil
	}

	timeout := vr.acquireTimeoutNS()
	frame := context.CurrentFrame

	// Wait for the execution of the current frame to complete. The fence being free will allow this one to move on.
	if !context.InFlightFences[frame].Wait(context, timeout) {
		return nil, nil
	}

	imageIndex, ok, err := context.Swapchain.AcquireNextImageIndex(context, timeout, context.ImageAvailableSemaphores[frame])
	if err != nil || !ok {
		return nil, err
	}

	// Make sure the previous frame is not using this image.
	if f := context.ImagesInFlight[imageIndex]; f != nil && f != context.InFlightFences[frame] {
		f.Wait(context, vk.MaxUint64)
	}
	context.ImagesInFlight[imageIndex] = context.InFlightFences[frame]
	context.ImageIndex = imageIndex
	vr.FrameNumber++

	return &VulkanDrawable{
		ImageIndex: imageIndex,
		Frame:      frame,
		width:      context.Swapchain.Extent.Width,
		height:     context.Swapchain.Extent.Height,
	}, nil
}

func (vr *VulkanRenderer) acquireTimeoutNS() uint64 {
	if vr.config.AcquireTimeoutMS == 0 {
		return vk.MaxUint64
	}
	return vr.config.AcquireTimeoutMS * 1_000_000
}
