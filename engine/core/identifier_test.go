package core

import "testing"

type fakeBuffer struct{}
type fakeImage struct{}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	b1 := r.Acquire(&fakeBuffer{})
	b2 := r.Acquire(&fakeBuffer{})
	img := r.Acquire(&fakeImage{})
	if b1 == b2 {
		t.Fatal("identifiers must be unique")
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d", r.Len())
	}
	summary := r.Summary()
	if len(summary) != 2 || summary[0] != "*core.fakeBuffer x2" || summary[1] != "*core.fakeImage x1" {
		t.Fatalf("Summary() = %v", summary)
	}
	if err := r.Release(img); err != nil {
		t.Fatal(err)
	}
	if err := r.Release(img); err == nil {
		t.Fatal("double release must fail")
	}
	live := r.Live()
	if len(live) != 2 {
		t.Fatalf("Live() = %v", live)
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	sampled := false
	for i := 0; i < 70; i++ {
		if m.Update(1.0 / 60.0) {
			sampled = true
		}
	}
	if !sampled {
		t.Fatal("expected an fps sample after more than one second of frames")
	}
	if m.FPS() < 59 || m.FPS() > 61 {
		t.Fatalf("FPS() = %v", m.FPS())
	}
	if ft := m.FrameTime(); ft < 16 || ft > 17 {
		t.Fatalf("FrameTime() = %v", ft)
	}
	if m.Frames() != 70 {
		t.Fatalf("Frames() = %d", m.Frames())
	}
}
