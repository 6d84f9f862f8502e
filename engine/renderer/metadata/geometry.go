package metadata

import (
	"encoding/binary"
	stdmath "math"

	"github.com/spaghettifunk/hellotriangle/engine/math"
)

// Names of the two functions in the default shader library.
const (
	VertexFunctionName   = "vertex_main"
	FragmentFunctionName = "fragment_main"
)

// TriangleVertices are the three corners of the triangle in normalized device
// coordinates: top, bottom left, bottom right.
var TriangleVertices = [3]math.Vec3{
	{X: 0, Y: 1, Z: 0},
	{X: -1, Y: -1, Z: 0},
	{X: 1, Y: -1, Z: 0},
}

// TriangleVertexCount is the number of vertices drawn every frame.
const TriangleVertexCount = len(TriangleVertices)

// VertexStride is the size of one packed Vec3 position.
const VertexStride uint32 = 3 * 4

// VertexBytes packs vertices as consecutive little-endian float32 triples.
func VertexBytes(vertices []math.Vec3) []byte {
	out := make([]byte, 0, len(vertices)*int(VertexStride))
	for _, v := range vertices {
		for _, f := range v.Elements() {
			out = binary.LittleEndian.AppendUint32(out, stdmath.Float32bits(f))
		}
	}
	return out
}

// TriangleVertexDescriptor describes the position-only layout of VertexBytes.
func TriangleVertexDescriptor() VertexDescriptor {
	return VertexDescriptor{
		Stride: VertexStride,
		Attributes: []VertexAttribute{
			{Location: 0, Format: VertexFormatFloat3, Offset: 0},
		},
	}
}
