package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

func TestReportSoftDriver(t *testing.T) {
	var out bytes.Buffer
	if err := report(&out, soft.New(soft.DefaultConfig()), true); err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{
		"soft",
		"VK_LAYER_KHRONOS_validation",
		"VK_KHR_surface",
		"vkbind software device",
		"graphics",
		"VK_KHR_swapchain",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report is missing %q:\n%s", want, out.String())
		}
	}
}
