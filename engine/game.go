package engine

import (
	"github.com/spaghettifunk/vkbind/engine/renderer"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
)

// Game is the application driven by the engine loop. Every hook is optional.
type Game struct {
	Name       string
	State      interface{}
	ClearColor [4]float32

	FnInitialize   Initialize
	FnUpdate       Update
	FnRender       Render
	FnOnResize     OnResize
	FnShaderReload ShaderReload
	FnShutdown     Shutdown
}

type Initialize func(e *Engine) error
type Update func(deltaTime float64) error

// Render records the frame's draw commands. The command buffer is inside the
// presentation render pass with viewport and scissor set.
type Render func(f *renderer.Frame, cb *vulkan.VulkanCommandBuffer, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type ShaderReload func(name string) error
type Shutdown func() error
