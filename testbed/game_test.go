package testbed

import (
	"math"
	"testing"

	"github.com/spaghettifunk/vkbind/engine"
	"github.com/spaghettifunk/vkbind/engine/core"
)

func TestClearColorAt(t *testing.T) {
	tests := []struct {
		seconds float64
		want    [4]float32
	}{
		{0, [4]float32{1, 0, 0, 1}},
		{huePeriod / 3, [4]float32{0, 1, 0, 1}},
		{2 * huePeriod / 3, [4]float32{0, 0, 1, 1}},
		{huePeriod, [4]float32{1, 0, 0, 1}},
	}
	for _, tt := range tests {
		got := ClearColorAt(tt.seconds)
		for i := range got {
			if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
				t.Errorf("ClearColorAt(%v) = %v, want %v", tt.seconds, got, tt.want)
				break
			}
		}
	}
}

func TestTestGameRunsHeadless(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Application.Width = 16
	cfg.Application.Height = 16
	cfg.Vulkan.FailurePolicy = "propagate"
	cfg.Log.Level = "error"

	g := NewTestGame()
	e, err := engine.New(g, cfg, engine.Options{Headless: true, Frames: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	state := g.State.(*gameState)
	if state.width != 16 || state.height != 16 {
		t.Errorf("resize hook saw %dx%d", state.width, state.height)
	}

	var ctx core.EventContext
	ctx.Data.U16[0] = uint16(core.KEY_SPACE)
	if !core.EventFire(core.EVENT_CODE_KEY_PRESSED, nil, ctx) || !state.paused {
		t.Fatal("space did not pause the color cycle")
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.elapsed != 0 {
		t.Errorf("paused game advanced to %v", state.elapsed)
	}
	if e.Frames().FrameNumber() != 4 {
		t.Errorf("ran %d frames", e.Frames().FrameNumber())
	}
}
