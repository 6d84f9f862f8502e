package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(10), Clamp(uint32(4), 10, 20))
	assert.Equal(t, uint32(20), Clamp(uint32(99), 10, 20))
	assert.Equal(t, uint32(15), Clamp(uint32(15), 10, 20))
	assert.Equal(t, float32(-1), Clamp(float32(-3.5), -1, 1))
}

func TestElements(t *testing.T) {
	assert.Equal(t, [3]float32{0, 1, 0}, Vec3{0, 1, 0}.Elements())

	c := NewVec4FromArray([4]float32{0.25, 0.5, 0.75, 1})
	assert.Equal(t, Vec4{0.25, 0.5, 0.75, 1}, c)
	assert.Equal(t, [4]float32{0.25, 0.5, 0.75, 1}, c.Elements())
}
