package renderer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

type Config struct {
	// ColorPixelFormat is the fixed format the pipeline renders into.
	ColorPixelFormat metadata.PixelFormat
}

func DefaultConfig() Config {
	return Config{ColorPixelFormat: metadata.PixelFormatBGRA8Unorm}
}

// Stats counts what happened to every Draw callback.
// Stats counts frames by outcome. A frame whose work reached the GPU but
// whose present failed counts as Submitted and as PresentFailed.
type Stats struct {
	Submitted     uint64
	Skipped       uint64
	Dropped       uint64
	PresentFailed uint64
}

// Renderer draws the triangle. All of its GPU objects are created by New and
// never change afterwards.
type Renderer struct {
	device       Device
	queue        CommandQueue
	vertexBuffer Buffer
	library      ShaderLibrary
	pipeline     RenderPipelineState
	stats        Stats
}

var _ ViewDelegate = (*Renderer)(nil)

// New acquires the command queue, the vertex buffer, the shader pair and the
// render pipeline, in that order. When any step fails everything acquired so
// far is released and the error is returned.
func New(device Device, cfg Config) (*Renderer, error) {
	if device == nil {
		return nil, errors.New("renderer requires a device")
	}
	r := &Renderer{device: device}
	if err := r.setup(cfg); err != nil {
		r.Destroy()
		return nil, err
	}
	core.LogInfo("renderer ready on %s (pipeline %s, %s)", device.Name(), r.pipeline.Label(), r.pipeline.PixelFormat())
	return r, nil
}

func (r *Renderer) setup(cfg Config) (err error) {
	device := r.device

	if r.queue, err = device.NewCommandQueue(); err != nil {
		return fmt.Errorf("failed to create command queue: %w", err)
	}

	vertices := metadata.VertexBytes(metadata.TriangleVertices[:])
	if r.vertexBuffer, err = device.NewBuffer(vertices); err != nil {
		return fmt.Errorf("failed to create vertex buffer: %w", err)
	}

	if r.library, err = device.NewDefaultLibrary(); err != nil {
		return fmt.Errorf("failed to load default shader library: %w", err)
	}
	if err = r.checkFunction(metadata.VertexFunctionName, metadata.ShaderStageVertex); err != nil {
		return err
	}
	if err = r.checkFunction(metadata.FragmentFunctionName, metadata.ShaderStageFragment); err != nil {
		return err
	}

	descriptor := &metadata.RenderPipelineDescriptor{
		Label:            "triangle-" + uuid.NewString(),
		VertexFunction:   metadata.VertexFunctionName,
		FragmentFunction: metadata.FragmentFunctionName,
		ColorPixelFormat: cfg.ColorPixelFormat,
		Topology:         metadata.PrimitiveTypeTriangle,
		CullMode:         metadata.FaceCullModeNone,
		VertexDescriptor: metadata.TriangleVertexDescriptor(),
	}
	if r.pipeline, err = device.NewRenderPipelineState(descriptor); err != nil {
		return fmt.Errorf("failed to create render pipeline state: %w", err)
	}
	return nil
}

func (r *Renderer) checkFunction(name string, stage metadata.ShaderStage) error {
	fn, err := r.library.NewFunction(name)
	if err != nil {
		return fmt.Errorf("failed to find shader function %q: %w", name, err)
	}
	if fn.Stage() != stage {
		return fmt.Errorf("shader function %q is a %s function, expected %s: %w", name, fn.Stage(), stage, core.ErrShaderNotFound)
	}
	return nil
}

// Draw renders one frame into view. Frames without a drawable or render pass
// descriptor are skipped. Encoding or submission failures drop the frame.
func (r *Renderer) Draw(view View) {
	drawable, ok := view.CurrentDrawable()
	if !ok {
		r.stats.Skipped++
		core.LogWarn("skipping frame: %s", core.ErrNoDrawable)
		return
	}
	descriptor, ok := view.CurrentRenderPassDescriptor()
	if !ok || descriptor == nil {
		r.stats.Skipped++
		core.LogWarn("skipping frame: %s", core.ErrNoRenderPassDescriptor)
		return
	}

	err := r.encode(drawable, descriptor)
	if errors.Is(err, core.ErrPresentFailed) {
		r.stats.Submitted++
		r.stats.PresentFailed++
		core.LogWarn("%s", err)
		return
	}
	if err != nil {
		r.stats.Dropped++
		core.LogError("dropped frame: %s", err)
		return
	}
	r.stats.Submitted++
}

func (r *Renderer) encode(drawable Drawable, descriptor *metadata.RenderPassDescriptor) error {
	commandBuffer, err := r.queue.NewCommandBuffer()
	if err != nil {
		return fmt.Errorf("failed to create command buffer: %w", err)
	}
	encoder, err := commandBuffer.NewRenderCommandEncoder(descriptor)
	if err != nil {
		return fmt.Errorf("failed to create render command encoder: %w", err)
	}
	encoder.SetRenderPipelineState(r.pipeline)
	encoder.SetVertexBuffer(r.vertexBuffer, 0, 0)
	encoder.DrawPrimitives(metadata.PrimitiveTypeTriangle, 0, metadata.TriangleVertexCount)
	encoder.EndEncoding()

	commandBuffer.Present(drawable)
	if err := commandBuffer.Commit(); err != nil {
		return fmt.Errorf("failed to commit command buffer: %w", err)
	}
	return nil
}

func (r *Renderer) DrawableSizeWillChange(view View, width, height uint32) {
	core.LogDebug("drawable size will change to %dx%d", width, height)
}

func (r *Renderer) Stats() Stats {
	return r.stats
}

// VertexBuffer returns the buffer bound on every frame.
func (r *Renderer) VertexBuffer() Buffer {
	return r.vertexBuffer
}

// Destroy releases every object in reverse order of creation. Safe to call
// on a partially constructed renderer.
func (r *Renderer) Destroy() {
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.library != nil {
		r.library.Destroy()
		r.library = nil
	}
	if r.vertexBuffer != nil {
		r.vertexBuffer.Destroy()
		r.vertexBuffer = nil
	}
	if r.queue != nil {
		r.queue.Destroy()
		r.queue = nil
	}
}
