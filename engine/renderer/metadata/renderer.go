package metadata

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief Enables the validation layers and the debug report callback. */
	Validation bool
	/** @brief How long to wait for a swapchain image, in milliseconds. */
	AcquireTimeoutMS uint64
	/** @brief Number of frames recorded ahead of the GPU. */
	MaxFramesInFlight uint32
	/** @brief The colour format of every drawable the view hands out. */
	ColorPixelFormat PixelFormat
}

// DefaultMaxFramesInFlight is the usual double buffering.
const DefaultMaxFramesInFlight uint32 = 2
