package vulkan

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

func testShader(t *testing.T, d *VulkanDevice) *VulkanShaderModule {
	t.Helper()
	code := make([]byte, 16)
	binary.LittleEndian.PutUint32(code, SPIRVMagic)
	m, err := d.CreateShaderModule(code)
	if err != nil {
		t.Fatalf("CreateShaderModule: %v", err)
	}
	t.Cleanup(m.Destroy)
	return m
}

func TestRenderPassClearsAttachment(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	d := env.device
	const width, height = 8, 4

	img, mem, err := d.CreateAllocatedImage(ImageConfig{
		Format: vk.FormatR8g8b8a8Unorm,
		Width:  width,
		Height: height,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
	}, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		t.Fatalf("CreateAllocatedImage: %v", err)
	}
	defer mem.Destroy()
	defer img.Destroy()
	view, err := d.CreateImageView(ImageViewConfig{Image: img})
	if err != nil {
		t.Fatalf("CreateImageView: %v", err)
	}
	defer view.Destroy()

	pass, err := d.CreateRenderPass(PresentRenderPassConfig(vk.FormatR8g8b8a8Unorm, vk.FormatUndefined))
	if err != nil {
		t.Fatalf("CreateRenderPass: %v", err)
	}
	defer pass.Destroy()
	if _, err := d.CreateFramebuffer(FramebufferConfig{RenderPass: pass, Width: width, Height: height}); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("framebuffer without attachments: %v", err)
	}
	fb, err := d.CreateFramebuffer(FramebufferConfig{RenderPass: pass, Attachments: []*VulkanImageView{view}, Width: width, Height: height})
	if err != nil {
		t.Fatalf("CreateFramebuffer: %v", err)
	}
	defer fb.Destroy()

	layout, err := d.CreatePipelineLayout(PipelineLayoutConfig{})
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	defer layout.Destroy()
	module := testShader(t, d)
	stages := []ShaderStage{
		{Stage: vk.ShaderStageVertexBit, Module: module},
		{Stage: vk.ShaderStageFragmentBit, Module: module},
	}
	pipelines, err := d.CreateGraphicsPipelines(nil, DefaultGraphicsPipelineConfig(pass, layout, stages, vk.Extent2D{Width: width, Height: height}, 0, nil))
	if err != nil {
		t.Fatalf("CreateGraphicsPipelines: %v", err)
	}
	defer pipelines[0].Destroy()

	readback, readMem := env.hostBuffer(t, width*height*4, vk.BufferUsageTransferDstBit)
	pool := env.commandPool(t)
	cb, err := pool.AllocateAndBeginSingleUse()
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	err = cb.BeginRenderPass(RenderPassBeginConfig{
		RenderPass:  pass,
		Framebuffer: fb,
		ClearValues: []vk.ClearValue{ClearColor(1, 0, 0, 1)},
	})
	if err != nil {
		t.Fatalf("BeginRenderPass: %v", err)
	}
	if err := cb.CopyImageToBuffer(img, vk.ImageLayoutTransferSrcOptimal, readback); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("copy inside a render pass: %v", err)
	}
	if err := pipelines[0].Bind(cb); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := cb.Draw(3, 1, 0, 0); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := cb.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass: %v", err)
	}
	if err := cb.TransitionImageLayout(img, vk.ImageLayoutPresentSrc, vk.ImageLayoutTransferSrcOptimal); err != nil {
		t.Fatalf("TransitionImageLayout: %v", err)
	}
	if err := cb.CopyImageToBuffer(img, vk.ImageLayoutTransferSrcOptimal, readback); err != nil {
		t.Fatalf("CopyImageToBuffer: %v", err)
	}
	if err := cb.EndSingleUse(env.queue); err != nil {
		t.Fatalf("EndSingleUse: %v", err)
	}

	data, err := readMem.Read(0, width*height*4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := 0; i < width*height; i++ {
		if px := data[i*4 : i*4+4]; !bytes.Equal(px, []byte{255, 0, 0, 255}) {
			t.Fatalf("texel %d = %v", i, px)
		}
	}
	if stats := env.drv.Stats(); stats.Draws != 1 || stats.RenderPasses != 1 {
		t.Fatalf("stats %+v", stats)
	}
}

func TestComputePipelineDispatch(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	d := env.device
	layout, err := d.CreatePipelineLayout(PipelineLayoutConfig{
		PushConstantRanges: []vk.PushConstantRange{{StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit), Size: 16}},
	})
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	defer layout.Destroy()
	pipeline, err := d.CreateComputePipeline(nil, ComputePipelineConfig{
		Layout: layout,
		Stage:  ShaderStage{Stage: vk.ShaderStageComputeBit, Module: testShader(t, d)},
	})
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	defer pipeline.Destroy()
	if pipeline.BindPoint != vk.PipelineBindPointCompute {
		t.Fatalf("bind point %d", pipeline.BindPoint)
	}

	pool := env.commandPool(t)
	cb, err := pool.AllocateAndBeginSingleUse()
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	if err := pipeline.Bind(cb); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := cb.PushConstants(layout, vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, make([]byte, 6)); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("unaligned push constants: %v", err)
	}
	if err := cb.PushConstants(layout, vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, make([]byte, 16)); err != nil {
		t.Fatalf("PushConstants: %v", err)
	}
	if err := cb.Dispatch(4, 4, 1); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := cb.DispatchBase(1, 0, 0, 2, 1, 1); err != nil {
		t.Fatalf("DispatchBase: %v", err)
	}
	if err := cb.EndSingleUse(env.queue); err != nil {
		t.Fatalf("EndSingleUse: %v", err)
	}
	if got := env.drv.Stats().Dispatches; got != 2 {
		t.Fatalf("%d dispatches executed", got)
	}
}

func TestPipelineCacheSaveLoad(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	d := env.device
	cache, err := d.CreatePipelineCache(nil)
	if err != nil {
		t.Fatalf("CreatePipelineCache: %v", err)
	}
	defer cache.Destroy()
	layout, err := d.CreatePipelineLayout(PipelineLayoutConfig{})
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	defer layout.Destroy()
	pipeline, err := d.CreateComputePipeline(cache, ComputePipelineConfig{
		Layout: layout,
		Stage:  ShaderStage{Stage: vk.ShaderStageComputeBit, Module: testShader(t, d)},
	})
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	defer pipeline.Destroy()

	want, err := cache.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	var buf bytes.Buffer
	if err := cache.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := d.LoadPipelineCache(&buf)
	if err != nil {
		t.Fatalf("LoadPipelineCache: %v", err)
	}
	defer loaded.Destroy()
	got, err := loaded.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("loaded cache holds %d bytes, saved %d", len(got), len(want))
	}
}

func TestLoadPipelineCacheRejectsCorruptStream(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	before := len(env.device.LiveChildren())
	cache, err := env.device.LoadPipelineCache(bytes.NewReader([]byte("not a compressed cache")))
	if !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("LoadPipelineCache(corrupt) = %v, want a precondition error", err)
	}
	if cache != nil {
		t.Fatal("a cache was returned alongside the error")
	}
	if after := len(env.device.LiveChildren()); after != before {
		t.Errorf("live children went from %d to %d", before, after)
	}
}

func TestLockPoolSerializesQueueFamily(t *testing.T) {
	lp := NewLockPool()
	var (
		wg      sync.WaitGroup
		inside  int
		overlap bool
		total   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				lp.SafeQueueCall(0, func() error {
					inside++
					if inside > 1 {
						overlap = true
					}
					total++
					inside--
					return nil
				})
			}
		}()
	}
	wg.Wait()
	if overlap || total != 800 {
		t.Fatalf("overlap=%v total=%d", overlap, total)
	}

	want := errors.New("boom")
	if err := lp.SafeCall(MemoryManagement, func() error { return want }); err != want {
		t.Fatalf("SafeCall returned %v", err)
	}
}

func TestLockPoolSubmit(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	pool := env.commandPool(t)
	lp := NewLockPool()
	second, err := env.device.Queue(0, 1)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, q := range []*VulkanQueue{env.queue, second} {
		cb, err := pool.AllocateAndBeginSingleUse()
		if err != nil {
			t.Fatalf("AllocateAndBeginSingleUse: %v", err)
		}
		cb.End()
		wg.Add(1)
		go func(q *VulkanQueue, cb *VulkanCommandBuffer) {
			defer wg.Done()
			errs <- lp.Submit(q, []SubmitInfo{{CommandBuffers: []*VulkanCommandBuffer{cb}}}, nil)
		}(q, cb)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := env.device.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if got := env.drv.Stats().Submits; got != 2 {
		t.Fatalf("%d submits", got)
	}
}
