package math

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector. Also used for RGBA colours.
type Vec4 struct {
	X, Y, Z, W float32
}
