package main

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/vkbind/engine"
)

func TestRunWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "testbed.toml")
	if err := os.WriteFile(config, []byte(`
[application]
name = "testbed"
width = 24
height = 12

[log]
level = "error"

[vulkan]
failure_policy = "propagate"
`), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "frame.bmp")
	if err := run(config, out, engine.Options{Headless: true, Frames: 3}); err != nil {
		t.Fatalf("run: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 24 || b.Dy() != 12 {
		t.Errorf("snapshot is %v", b)
	}
}

func TestSnapshotNeedsHeadless(t *testing.T) {
	if err := writeSnapshot(&engine.Engine{}, "x.bmp"); err == nil {
		t.Error("writeSnapshot without a soft window succeeded")
	}
}
