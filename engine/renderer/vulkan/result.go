package vulkan

import (
	"errors"
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
)

// FailurePolicy decides what a wrapper does when a native call fails or a
// caller breaks a precondition. Timeouts are never subject to it.
type FailurePolicy int

const (
	// FailAbort logs the failing operation at fatal level and terminates.
	FailAbort FailurePolicy = iota
	// FailPropagate returns the failure as an error.
	FailPropagate
)

func (p FailurePolicy) String() string {
	if p == FailPropagate {
		return "propagate"
	}
	return "abort"
}

// ParseFailurePolicy maps the configuration value onto a policy. The empty
// string selects FailAbort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return FailAbort, nil
	case "propagate":
		return FailPropagate, nil
	}
	return FailAbort, fmt.Errorf("%w: unknown failure policy %q", core.ErrInvalidConfig, s)
}

// ResultError is a native call that returned a failing vk.Result.
type ResultError struct {
	Op     string
	Result vk.Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, VulkanResultString(e.Result, false))
}

// Unwrap exposes the engine sentinel matching the result so callers can use
// errors.Is without knowing native result codes.
func (e *ResultError) Unwrap() error {
	switch e.Result {
	case vk.ErrorOutOfDate:
		return core.ErrOutOfDate
	case vk.ErrorDeviceLost:
		return core.ErrDeviceLost
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		return core.ErrOutOfMemory
	case vk.ErrorSurfaceLost:
		return core.ErrSurfaceLost
	case vk.ErrorInitializationFailed:
		return core.ErrInitializationFailed
	case vk.ErrorLayerNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorFeatureNotPresent:
		return core.ErrMissingCapability
	}
	return core.ErrNative
}

// abort is called for failures under FailAbort. core.LogFatal exits the
// process; tests swap it for a recorder.
var abort = func(err error) {
	core.LogFatal("%v", err)
}

type resultName struct {
	short    string
	extended string
}

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultNames = map[vk.Result]resultName{
	// Success codes
	vk.Success:                 {"VK_SUCCESS", "Command successfully completed"},
	vk.NotReady:                {"VK_NOT_READY", "A fence or query has not yet completed"},
	vk.Timeout:                 {"VK_TIMEOUT", "A wait operation has not completed in the specified time"},
	vk.EventSet:                {"VK_EVENT_SET", "An event is signaled"},
	vk.EventReset:              {"VK_EVENT_RESET", "An event is unsignaled"},
	vk.Incomplete:              {"VK_INCOMPLETE", "A return array was too small for the result"},
	vk.Suboptimal:              {"VK_SUBOPTIMAL_KHR", "A swapchain no longer matches the surface properties exactly, but can still be used to present to the surface successfully."},
	vk.ThreadIdle:              {"VK_THREAD_IDLE_KHR", "A deferred operation is not complete but there is currently no work for this thread to do at the time of this call."},
	vk.ThreadDone:              {"VK_THREAD_DONE_KHR", "A deferred operation is not complete but there is no work remaining to assign to additional threads."},
	vk.OperationDeferred:       {"VK_OPERATION_DEFERRED_KHR", "A deferred operation was requested and at least some of the work was deferred."},
	vk.OperationNotDeferred:    {"VK_OPERATION_NOT_DEFERRED_KHR", "A deferred operation was requested and no operations were deferred."},
	vk.PipelineCompileRequired: {"VK_PIPELINE_COMPILE_REQUIRED_EXT", "A requested pipeline creation would have required compilation, but the application requested compilation to not be performed."},

	// Error codes
	vk.ErrorOutOfHostMemory:             {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed."},
	vk.ErrorOutOfDeviceMemory:           {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed."},
	vk.ErrorInitializationFailed:        {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed for implementation-specific reasons."},
	vk.ErrorDeviceLost:                  {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost."},
	vk.ErrorMemoryMapFailed:             {"VK_ERROR_MEMORY_MAP_FAILED", "Mapping of a memory object has failed."},
	vk.ErrorLayerNotPresent:             {"VK_ERROR_LAYER_NOT_PRESENT", "A requested layer is not present or could not be loaded."},
	vk.ErrorExtensionNotPresent:         {"VK_ERROR_EXTENSION_NOT_PRESENT", "A requested extension is not supported."},
	vk.ErrorFeatureNotPresent:           {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported."},
	vk.ErrorIncompatibleDriver:          {"VK_ERROR_INCOMPATIBLE_DRIVER", "The requested version of Vulkan is not supported by the driver or is otherwise incompatible."},
	vk.ErrorTooManyObjects:              {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created."},
	vk.ErrorFormatNotSupported:          {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device."},
	vk.ErrorFragmentedPool:              {"VK_ERROR_FRAGMENTED_POOL", "A pool allocation has failed due to fragmentation of the pool's memory."},
	vk.ErrorSurfaceLost:                 {"VK_ERROR_SURFACE_LOST_KHR", "A surface is no longer available."},
	vk.ErrorNativeWindowInUse:           {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "The requested window is already in use by Vulkan or another API."},
	vk.ErrorOutOfDate:                   {"VK_ERROR_OUT_OF_DATE_KHR", "A surface has changed in such a way that it is no longer compatible with the swapchain."},
	vk.ErrorIncompatibleDisplay:         {"VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", "The display used by a swapchain does not use the same presentable image layout."},
	vk.ErrorInvalidShaderNv:             {"VK_ERROR_INVALID_SHADER_NV", "One or more shaders failed to compile or link."},
	vk.ErrorOutOfPoolMemory:             {"VK_ERROR_OUT_OF_POOL_MEMORY", "A pool memory allocation has failed."},
	vk.ErrorInvalidExternalHandle:       {"VK_ERROR_INVALID_EXTERNAL_HANDLE", "An external handle is not a valid handle of the specified type."},
	vk.ErrorFragmentation:               {"VK_ERROR_FRAGMENTATION", "A descriptor pool creation has failed due to fragmentation."},
	vk.ErrorInvalidDeviceAddress:        {"VK_ERROR_INVALID_DEVICE_ADDRESS_EXT", "A buffer creation failed because the requested address is not available."},
	vk.ErrorFullScreenExclusiveModeLost: {"VK_ERROR_FULL_SCREEN_EXCLUSIVE_MODE_LOST_EXT", "An operation on a swapchain failed as it did not have exclusive full-screen access."},
	vk.ErrorUnknown:                     {"VK_ERROR_UNKNOWN", "An unknown error has occurred."},
}

// VulkanResultString names a result, optionally followed by its description.
func VulkanResultString(result vk.Result, getExtended bool) string {
	name, ok := resultNames[result]
	if !ok {
		return fmt.Sprintf("VkResult(%d)", int32(result))
	}
	if !getExtended {
		return name.short
	}
	return name.short + " " + name.extended
}

// VulkanResultIsSuccess reports whether result is one of the non-error codes.
// Unknown codes follow the sign convention: negative values are errors.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= 0
}

// failer carries the failure policy down the ownership tree. Every wrapper
// reaches it through its parent chain.
type failer struct {
	policy FailurePolicy
}

// check turns a failing result into the policy's outcome. It returns nil
// for any non-error result.
func (f failer) check(op string, res vk.Result) error {
	if VulkanResultIsSuccess(res) {
		return nil
	}
	return f.fail(&ResultError{Op: op, Result: res})
}

// precondition reports a caller contract violation under the policy.
func (f failer) precondition(op, format string, args ...interface{}) error {
	return f.fail(fmt.Errorf("%s: %w: %s", op, core.ErrPrecondition, fmt.Sprintf(format, args...)))
}

func (f failer) fail(err error) error {
	if f.policy == FailAbort {
		abort(err)
		return err
	}
	core.LogError("%v", err)
	return err
}

// waited maps the outcome of a bounded wait. Timeouts and not-ready are
// returned as plain sentinels whatever the policy is.
func (f failer) waited(op string, res vk.Result) error {
	switch res {
	case vk.Timeout:
		return fmt.Errorf("%s: %w", op, core.ErrTimeout)
	case vk.NotReady:
		return fmt.Errorf("%s: %w", op, core.ErrNotReady)
	}
	return f.check(op, res)
}

// surfaceStatus is check for acquire and present: out of date is an
// expected outcome the caller recovers from by recreating the swapchain.
func (f failer) surfaceStatus(op string, res vk.Result) error {
	if res == vk.ErrorOutOfDate {
		return &ResultError{Op: op, Result: res}
	}
	return f.check(op, res)
}

// IsTimeout reports whether err is a non-fatal wait outcome.
func IsTimeout(err error) bool {
	return errors.Is(err, core.ErrTimeout) || errors.Is(err, core.ErrNotReady)
}
