package math

// Elements returns x, y and z in order.
func (v Vec3) Elements() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// NewVec4FromArray is used for colours read from configuration.
func NewVec4FromArray(a [4]float32) Vec4 {
	return Vec4{a[0], a[1], a[2], a[3]}
}

// Elements returns x, y, z and w in order.
func (v Vec4) Elements() [4]float32 {
	return [4]float32{v.X, v.Y, v.Z, v.W}
}
