package vulkan

import (
	vk "github.com/goki/vulkan"
)

var end = "\x00"
var endChar byte = '\x00'

// VulkanSafeString terminates s with a NUL byte, the form the native
// create-info structs expect for names.
func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

// VulkanSafeStrings returns NUL-terminated copies of list. The caller's slice
// is left untouched.
func VulkanSafeStrings(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// FindFirstZeroInByteArray returns the index of the first NUL byte, or the
// length of arr when there is none.
func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// cString reads a fixed-size native name field.
func cString(arr []byte) string {
	return string(arr[:FindFirstZeroInByteArray(arr)])
}

// enumerate runs the native two-call query: once for the count, then for
// the array. A vk.Incomplete answer means the set grew in between, so the
// query restarts.
func enumerate[T any](query func(count *uint32, out []T) vk.Result) ([]T, vk.Result) {
	for {
		var count uint32
		if res := query(&count, nil); !VulkanResultIsSuccess(res) {
			return nil, res
		}
		if count == 0 {
			return nil, vk.Success
		}
		out := make([]T, count)
		res := query(&count, out)
		if res == vk.Incomplete {
			continue
		}
		if !VulkanResultIsSuccess(res) {
			return nil, res
		}
		return out[:count], vk.Success
	}
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
