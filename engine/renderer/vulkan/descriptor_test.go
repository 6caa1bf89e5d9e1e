package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

func TestLayoutBindingWithoutSamplers(t *testing.T) {
	b := layoutBinding(DescriptorBinding{Binding: 1, Type: vk.DescriptorTypeCombinedImageSampler})
	if b.DescriptorCount != 1 || b.PImmutableSamplers != nil {
		t.Fatalf("binding = %+v", b)
	}
}

func TestDescriptorSetLifecycle(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	d := env.device

	sampler, err := d.CreateSampler(LinearSamplerConfig(1))
	if err != nil {
		t.Fatalf("CreateSampler: %v", err)
	}
	defer sampler.Destroy()

	_, err = d.CreateDescriptorSetLayout(DescriptorSetLayoutConfig{Bindings: []DescriptorBinding{
		{Binding: 0, Type: vk.DescriptorTypeUniformBuffer},
		{Binding: 0, Type: vk.DescriptorTypeStorageBuffer},
	}})
	if !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("duplicate binding: %v", err)
	}

	layout, err := d.CreateDescriptorSetLayout(DescriptorSetLayoutConfig{Bindings: []DescriptorBinding{
		{Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Stages: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
		{Binding: 1, Type: vk.DescriptorTypeCombinedImageSampler, Stages: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
		{Binding: 2, Type: vk.DescriptorTypeSampler, ImmutableSamplers: []*VulkanSampler{sampler}},
	}})
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout: %v", err)
	}
	defer layout.Destroy()
	if layout.Bindings[2].DescriptorCount != 1 {
		t.Fatalf("immutable sampler binding count %d", layout.Bindings[2].DescriptorCount)
	}

	if _, err := d.CreateDescriptorPool(DescriptorPoolConfig{}); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("pool with zero sets: %v", err)
	}
	pool, err := d.CreateDescriptorPool(DescriptorPoolConfig{
		MaxSets: 2,
		PoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 2},
			{Type: vk.DescriptorTypeSampler, DescriptorCount: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorPool: %v", err)
	}
	defer pool.Destroy()

	sets, err := pool.AllocateDescriptorSets(layout, layout)
	if err != nil {
		t.Fatalf("AllocateDescriptorSets: %v", err)
	}
	if len(sets) != 2 || pool.Allocated() != 2 || sets[0].Layout != layout {
		t.Fatalf("allocated %d sets, pool tracks %d", len(sets), pool.Allocated())
	}

	ubo, _ := env.hostBuffer(t, 256, vk.BufferUsageUniformBufferBit)
	err = d.UpdateDescriptorSets([]DescriptorWrite{{
		Set:     sets[0],
		Binding: 0,
		Type:    vk.DescriptorTypeUniformBuffer,
		Buffers: []DescriptorBuffer{{Buffer: ubo}},
	}}, []DescriptorCopy{{Src: sets[0], Dst: sets[1]}})
	if err != nil {
		t.Fatalf("UpdateDescriptorSets: %v", err)
	}
	for i, set := range sets {
		if got := env.drv.DescriptorWrites(set.Handle()); got[0] != vk.DescriptorTypeUniformBuffer {
			t.Errorf("set %d binding 0 holds %v", i, got)
		}
	}

	err = d.UpdateDescriptorSets([]DescriptorWrite{{Set: sets[0], Binding: 1, Type: vk.DescriptorTypeCombinedImageSampler}}, nil)
	if !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("image write without images: %v", err)
	}

	if err := sets[0].Free(); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("Free from a pool without FreeIndividual: %v", err)
	}
	if err := pool.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if pool.Allocated() != 0 || sets[0].Handle() != nil {
		t.Fatalf("sets survive pool reset")
	}
}

func TestDescriptorSetFreeIndividual(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	layout, err := env.device.CreateDescriptorSetLayout(DescriptorSetLayoutConfig{Bindings: []DescriptorBinding{
		{Binding: 0, Type: vk.DescriptorTypeStorageBuffer, Stages: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
	}})
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout: %v", err)
	}
	defer layout.Destroy()
	pool, err := env.device.CreateDescriptorPool(DescriptorPoolConfig{
		MaxSets:        1,
		PoolSizes:      []vk.DescriptorPoolSize{{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1}},
		FreeIndividual: true,
	})
	if err != nil {
		t.Fatalf("CreateDescriptorPool: %v", err)
	}
	defer pool.Destroy()
	sets, err := pool.AllocateDescriptorSets(layout)
	if err != nil {
		t.Fatalf("AllocateDescriptorSets: %v", err)
	}
	if _, err := pool.AllocateDescriptorSets(layout); !errors.Is(err, core.ErrOutOfMemory) {
		t.Fatalf("allocating past MaxSets: %v", err)
	}
	if err := sets[0].Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if pool.Allocated() != 0 {
		t.Fatalf("pool still tracks %d sets", pool.Allocated())
	}
	if _, err := pool.AllocateDescriptorSets(layout); err != nil {
		t.Fatalf("allocate after free: %v", err)
	}
}

func TestSamplerValidatesLod(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	cfg := LinearSamplerConfig(16)
	cfg.MinLod, cfg.MaxLod = 4, 1
	if _, err := env.device.CreateSampler(cfg); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("MinLod above MaxLod: %v", err)
	}
}
