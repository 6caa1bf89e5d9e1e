package testbed

import (
	"math"

	"github.com/spaghettifunk/vkbind/engine"
	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
)

// huePeriod is the number of seconds one full trip around the color wheel
// takes.
const huePeriod = 6.0

type gameState struct {
	engine  *engine.Engine
	elapsed float64
	paused  bool

	width  uint32
	height uint32
}

// NewTestGame returns a game that clears the swapchain to a slowly cycling
// color. Space pauses the cycle, P logs the frame metrics.
func NewTestGame() *engine.Game {
	state := &gameState{}
	g := &engine.Game{
		Name:       "vkbind testbed",
		State:      state,
		ClearColor: ClearColorAt(0),
	}
	g.FnInitialize = state.initialize
	g.FnUpdate = state.update
	g.FnRender = state.render
	g.FnOnResize = state.onResize
	g.FnShaderReload = state.shaderReload
	g.FnShutdown = state.shutdown
	return g
}

// ClearColorAt maps seconds since start to a fully saturated color.
func ClearColorAt(seconds float64) [4]float32 {
	h := math.Mod(seconds/huePeriod, 1) * 6
	x := float32(1 - math.Abs(math.Mod(h, 2)-1))
	var r, g, b float32
	switch int(h) {
	case 0:
		r, g, b = 1, x, 0
	case 1:
		r, g, b = x, 1, 0
	case 2:
		r, g, b = 0, 1, x
	case 3:
		r, g, b = 0, x, 1
	case 4:
		r, g, b = x, 0, 1
	default:
		r, g, b = 1, 0, x
	}
	return [4]float32{r, g, b, 1}
}

func (s *gameState) initialize(e *engine.Engine) error {
	core.LogDebug("testbed initialize")
	s.engine = e
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, s, s.onKey)
	if lib := e.Shaders(); lib != nil {
		core.LogInfo("shader library holds %d blobs", len(lib.Names()))
	}
	return nil
}

func (s *gameState) update(deltaTime float64) error {
	if s.paused {
		return nil
	}
	s.elapsed += deltaTime
	s.engine.Frames().SetClearColor(ClearColorAt(s.elapsed))
	return nil
}

func (s *gameState) render(f *renderer.Frame, cb *vulkan.VulkanCommandBuffer, deltaTime float64) error {
	// The clear happens in the render pass; the testbed draws nothing else.
	if f.Number%600 == 0 {
		m := s.engine.Frames().Metrics()
		core.LogDebug("frame %d image %d: %.1f fps", f.Number, f.ImageIndex, m.FPS())
	}
	return nil
}

func (s *gameState) onResize(width uint32, height uint32) error {
	s.width = width
	s.height = height
	return nil
}

func (s *gameState) shaderReload(name string) error {
	lib := s.engine.Shaders()
	module, err := lib.CreateModule(s.engine.Device(), name)
	if err != nil {
		return err
	}
	core.LogInfo("shader %s rebuilt (%d words)", name, module.Words)
	module.Destroy()
	return nil
}

func (s *gameState) shutdown() error {
	core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, s)
	return nil
}

func (s *gameState) onKey(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	switch core.KeyCode(data.Data.U16[0]) {
	case core.KEY_SPACE:
		s.paused = !s.paused
		return true
	case core.KEY_P:
		m := s.engine.Frames().Metrics()
		core.LogInfo("%dx%d: %.1f fps (%.2fms), %d frames, %d suboptimal, %d recreated",
			s.width, s.height, m.FPS(), m.FrameTime(), m.Frames(), m.Suboptimal(), m.Recreated())
		return true
	}
	return false
}
