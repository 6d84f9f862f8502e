package core

import (
	"errors"
)

var (
	ErrSwapchainBooting       = errors.New("swapchain resized or recreated, booting")
	ErrNoDrawable             = errors.New("no drawable available")
	ErrNoRenderPassDescriptor = errors.New("no render pass descriptor available")
	ErrShaderNotFound         = errors.New("shader function not found")
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	ErrPresentFailed          = errors.New("frame submitted but present failed")
	ErrUnknown                = errors.New("unknown")
)
