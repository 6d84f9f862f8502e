package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown resource. */
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type (compiled SPIR-V shader code). */
	ResourceTypeBinary
	/** @brief Shader library manifest listing the shader functions. */
	ResourceTypeShaderLibrary
)

func (r ResourceType) String() string {
	switch r {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeShaderLibrary:
		return "shader-library"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
