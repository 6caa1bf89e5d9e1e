package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")

	// Non-fatal wait outcomes.
	ErrTimeout  = errors.New("wait timed out")
	ErrNotReady = errors.New("not ready")

	// Caller contract violations.
	ErrPrecondition = errors.New("precondition failed")

	// Native failures, matched from a vulkan result code.
	ErrNative               = errors.New("native call failed")
	ErrOutOfDate            = errors.New("surface out of date")
	ErrSurfaceLost          = errors.New("surface lost")
	ErrDeviceLost           = errors.New("device lost")
	ErrOutOfMemory          = errors.New("out of memory")
	ErrInitializationFailed = errors.New("initialization failed")
	ErrMissingCapability    = errors.New("capability not available on this device")

	ErrInvalidConfig = errors.New("invalid configuration")
)
