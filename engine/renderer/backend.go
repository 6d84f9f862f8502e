package renderer

import "github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"

// Device is the GPU the renderer draws with. It creates every long-lived
// object the renderer owns.
type Device interface {
	Name() string
	NewCommandQueue() (CommandQueue, error)
	// NewBuffer uploads data once into GPU-visible memory.
	NewBuffer(data []byte) (Buffer, error)
	// NewDefaultLibrary loads the shader library bundled with the application.
	NewDefaultLibrary() (ShaderLibrary, error)
	NewRenderPipelineState(descriptor *metadata.RenderPipelineDescriptor) (RenderPipelineState, error)
}

// ShaderLibrary resolves compiled shader functions by name.
type ShaderLibrary interface {
	NewFunction(name string) (ShaderFunction, error)
	Destroy()
}

type ShaderFunction interface {
	Name() string
	Stage() metadata.ShaderStage
}

type Buffer interface {
	Length() int
	// Contents returns a copy of the bytes the buffer was created with.
	Contents() []byte
	Destroy()
}

type RenderPipelineState interface {
	Label() string
	PixelFormat() metadata.PixelFormat
	Destroy()
}

type CommandQueue interface {
	NewCommandBuffer() (CommandBuffer, error)
	Destroy()
}

// CommandBuffer records the work of one frame.
type CommandBuffer interface {
	NewRenderCommandEncoder(descriptor *metadata.RenderPassDescriptor) (RenderCommandEncoder, error)
	// Present schedules drawable to be shown once the buffer has executed.
	Present(drawable Drawable)
	// Commit submits the recorded work to the queue.
	Commit() error
}

type RenderCommandEncoder interface {
	SetRenderPipelineState(state RenderPipelineState)
	SetVertexBuffer(buffer Buffer, offset, index int)
	DrawPrimitives(primitive metadata.PrimitiveType, vertexStart, vertexCount int)
	EndEncoding()
}

// Drawable is a displayable image owned by a View for the current frame.
type Drawable interface {
	Width() uint32
	Height() uint32
}

// View is the host surface. Drawables and render pass descriptors it hands
// out are valid for the current frame only; ok is false when none is
// available right now.
type View interface {
	CurrentDrawable() (drawable Drawable, ok bool)
	CurrentRenderPassDescriptor() (descriptor *metadata.RenderPassDescriptor, ok bool)
	ColorPixelFormat() metadata.PixelFormat
}

// ViewDelegate is driven by the host frame loop.
type ViewDelegate interface {
	Draw(view View)
	DrawableSizeWillChange(view View, width, height uint32)
}
