package metadata

import (
	"fmt"

	"github.com/spaghettifunk/hellotriangle/engine/math"
)

/** @brief The colour formats a view or pipeline can target. */
type PixelFormat int

const (
	/** @brief No format. Always invalid for a render target. */
	PixelFormatInvalid PixelFormat = iota
	/** @brief 8 bits per channel, blue-green-red-alpha order, unsigned normalized. */
	PixelFormatBGRA8Unorm
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatBGRA8Unorm:
		return "BGRA8Unorm"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
}

/** @brief How consecutive vertices are assembled into primitives. */
type PrimitiveType int

const (
	/** @brief Every three vertices form one independent triangle. */
	PrimitiveTypeTriangle PrimitiveType = iota
)

func (p PrimitiveType) String() string {
	switch p {
	case PrimitiveTypeTriangle:
		return "triangle"
	default:
		return fmt.Sprintf("PrimitiveType(%d)", int(p))
	}
}

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief The data format of a single vertex attribute. */
type VertexFormat int

const (
	VertexFormatInvalid VertexFormat = iota
	/** @brief Three 32-bit floats. */
	VertexFormatFloat3
)

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFormatFloat3:
		return 12
	default:
		return 0
	}
}

/** @brief A single attribute inside a vertex. */
type VertexAttribute struct {
	/** @brief The shader input location. */
	Location uint32
	Format   VertexFormat
	/** @brief Offset in bytes from the start of the vertex. */
	Offset uint32
}

/** @brief Describes the layout of the vertex buffer bound at index 0. */
type VertexDescriptor struct {
	/** @brief Distance in bytes between two consecutive vertices. */
	Stride     uint32
	Attributes []VertexAttribute
}

/**
 * @brief Everything needed to build a render pipeline: the two shader
 * functions, the colour format it renders into and the vertex layout.
 */
type RenderPipelineDescriptor struct {
	Label            string
	VertexFunction   string
	FragmentFunction string
	ColorPixelFormat PixelFormat
	Topology         PrimitiveType
	CullMode         FaceCullMode
	VertexDescriptor VertexDescriptor
}

/** @brief The single colour attachment of a render pass. */
type RenderPassColorAttachment struct {
	/** @brief The clear colour used for this attachment. */
	ClearColor math.Vec4
	/** @brief The backend-specific target (a framebuffer for Vulkan). */
	Target interface{}
}

/**
 * @brief Describes where the current frame renders to. Valid for one frame only.
 */
type RenderPassDescriptor struct {
	ColorAttachment RenderPassColorAttachment
	Width           uint32
	Height          uint32
}
