package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[application]
name = "demo"

[swapchain]
image_count = 2
acquire_timeout = "250ms"
`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Application.Name != "demo" {
		t.Errorf("name = %q", cfg.Application.Name)
	}
	if cfg.Application.Width != 1280 || cfg.Application.Height != 720 {
		t.Errorf("default size lost: %dx%d", cfg.Application.Width, cfg.Application.Height)
	}
	if cfg.Swapchain.ImageCount != 2 {
		t.Errorf("image_count = %d", cfg.Swapchain.ImageCount)
	}
	d, err := cfg.Swapchain.Timeout()
	if err != nil || d != 250*time.Millisecond {
		t.Errorf("Timeout() = %v, %v", d, err)
	}
	if cfg.Vulkan.QueueFamily != AnyQueueFamily {
		t.Errorf("queue_family = %d", cfg.Vulkan.QueueFamily)
	}
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"policy":      "[vulkan]\nfailure_policy = \"retry\"\n",
		"presentmode": "[swapchain]\npresent_mode = \"vsync\"\n",
		"imagecount":  "[swapchain]\nimage_count = 0\n",
		"timeout":     "[swapchain]\nacquire_timeout = \"soon\"\n",
		"syntax":      "[swapchain\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vkbind.toml")
	doc := "[vulkan]\nvalidation = true\nlayers = [\"VK_LAYER_LUNARG_monitor\"]\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	layers := cfg.Vulkan.EnabledLayers()
	if len(layers) != 2 || layers[1] != ValidationLayerName {
		t.Fatalf("EnabledLayers() = %v", layers)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestForeverTimeout(t *testing.T) {
	for _, v := range []string{"", "forever"} {
		d, err := SwapchainConfig{AcquireTimeout: v}.Timeout()
		if err != nil || d != 0 {
			t.Errorf("%q: got %v, %v", v, d, err)
		}
	}
}
