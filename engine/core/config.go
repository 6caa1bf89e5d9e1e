package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ApplicationConfig struct {
	Name   string `toml:"name"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type VulkanConfig struct {
	// Validation enables VK_LAYER_KHRONOS_validation on top of Layers.
	Validation         bool     `toml:"validation"`
	Layers             []string `toml:"layers"`
	InstanceExtensions []string `toml:"instance_extensions"`
	DeviceExtensions   []string `toml:"device_extensions"`
	QueueFamily        int32    `toml:"queue_family"`
	FailurePolicy      string   `toml:"failure_policy"`
}

type SwapchainConfig struct {
	ImageCount     uint32 `toml:"image_count"`
	PresentMode    string `toml:"present_mode"`
	AcquireTimeout string `toml:"acquire_timeout"`
	Recreate       bool   `toml:"recreate"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Log         LogConfig         `toml:"log"`
	Vulkan      VulkanConfig      `toml:"vulkan"`
	Swapchain   SwapchainConfig   `toml:"swapchain"`
}

// A negative queue family means "pick the first graphics family that can present".
const AnyQueueFamily int32 = -1

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "vkbind",
			Width:  1280,
			Height: 720,
			PosX:   100,
			PosY:   100,
		},
		Log: LogConfig{Level: "info"},
		Vulkan: VulkanConfig{
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			QueueFamily:      AnyQueueFamily,
			FailurePolicy:    "abort",
		},
		Swapchain: SwapchainConfig{
			ImageCount:  3,
			PresentMode: "fifo",
			Recreate:    true,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML on top of DefaultConfig, so omitted keys keep
// their defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Application.Width, c.Application.Height)
	}
	if c.Swapchain.ImageCount == 0 {
		return fmt.Errorf("%w: swapchain image_count must be at least 1", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Vulkan.FailurePolicy) {
	case "", "abort", "propagate":
	default:
		return fmt.Errorf("%w: failure_policy %q", ErrInvalidConfig, c.Vulkan.FailurePolicy)
	}
	switch strings.ToLower(c.Swapchain.PresentMode) {
	case "", "fifo", "fifo_relaxed", "mailbox", "immediate":
	default:
		return fmt.Errorf("%w: present_mode %q", ErrInvalidConfig, c.Swapchain.PresentMode)
	}
	if _, err := c.Swapchain.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout converts acquire_timeout to a duration. Zero means wait forever.
func (s SwapchainConfig) Timeout() (time.Duration, error) {
	v := strings.TrimSpace(s.AcquireTimeout)
	if v == "" || v == "forever" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: acquire_timeout %q", ErrInvalidConfig, s.AcquireTimeout)
	}
	return d, nil
}

// EnabledLayers returns the configured layers with the validation layer
// appended when validation is on.
func (v VulkanConfig) EnabledLayers() []string {
	layers := append([]string(nil), v.Layers...)
	if v.Validation {
		for _, l := range layers {
			if l == ValidationLayerName {
				return layers
			}
		}
		layers = append(layers, ValidationLayerName)
	}
	return layers
}

const ValidationLayerName = "VK_LAYER_KHRONOS_validation"
