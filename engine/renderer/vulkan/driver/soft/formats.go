package soft

import (
	"encoding/binary"
	"math"

	vk "github.com/goki/vulkan"
)

func texelSize(f vk.Format) int {
	switch f {
	case vk.FormatR8Unorm, vk.FormatR8Uint, vk.FormatS8Uint:
		return 1
	case vk.FormatR16Sfloat, vk.FormatD16Unorm, vk.FormatR8g8Unorm:
		return 2
	case vk.FormatR32g32Sfloat, vk.FormatR16g16b16a16Sfloat:
		return 8
	case vk.FormatR32g32b32Sfloat:
		return 12
	case vk.FormatR32g32b32a32Sfloat:
		return 16
	default:
		// 8-bit RGBA/BGRA variants, D32, D24S8 and R32.
		return 4
	}
}

func unorm8(v float32) byte {
	return byte(math.Round(float64(min(max(v, 0), 1)) * 255))
}

// encodeColor packs an RGBA float color into one texel of format f.
func encodeColor(f vk.Format, c [4]float32) []byte {
	switch f {
	case vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb:
		return []byte{unorm8(c[2]), unorm8(c[1]), unorm8(c[0]), unorm8(c[3])}
	case vk.FormatR32g32b32a32Sfloat:
		out := make([]byte, 16)
		for i, v := range c {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out
	case vk.FormatR32Sfloat, vk.FormatD32Sfloat:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(c[0]))
		return out
	default:
		px := []byte{unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), unorm8(c[3])}
		return px[:min(texelSize(f), 4)]
	}
}

// rgba converts one texel of format f to 8-bit RGBA.
func rgba(f vk.Format, texel []byte) [4]byte {
	switch f {
	case vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb:
		return [4]byte{texel[2], texel[1], texel[0], texel[3]}
	case vk.FormatR32g32b32a32Sfloat:
		var out [4]byte
		for i := range out {
			out[i] = unorm8(math.Float32frombits(binary.LittleEndian.Uint32(texel[i*4:])))
		}
		return out
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Srgb, vk.FormatR8g8b8a8Uint:
		return [4]byte{texel[0], texel[1], texel[2], texel[3]}
	default:
		return [4]byte{texel[0], texel[0], texel[0], 255}
	}
}

func fill(dst, pattern []byte) {
	if len(pattern) == 0 {
		return
	}
	for i := 0; i+len(pattern) <= len(dst); i += len(pattern) {
		copy(dst[i:], pattern)
	}
}
