package vulkan

import (
	"encoding/binary"
	"os"

	vk "github.com/goki/vulkan"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

type VulkanShaderModule struct {
	device *VulkanDevice
	handle vk.ShaderModule
	id     trackID

	// Words is the module size in 32-bit words.
	Words int
}

// CreateShaderModule creates a module from little-endian SPIR-V bytes.
func (d *VulkanDevice) CreateShaderModule(code []byte) (*VulkanShaderModule, error) {
	const op = "vkCreateShaderModule"
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, d.precondition(op, "code size %d is not a positive multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != SPIRVMagic {
		return nil, d.precondition(op, "code does not start with the SPIR-V magic number")
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}
	handle, res := d.drv.CreateShaderModule(d.handle, &smci)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	m := &VulkanShaderModule{device: d, handle: handle, Words: len(words)}
	m.id = d.own(m)
	return m, nil
}

// LoadShaderModule reads a compiled .spv file.
func (d *VulkanDevice) LoadShaderModule(path string) (*VulkanShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return d.CreateShaderModule(code)
}

func (m *VulkanShaderModule) Handle() vk.ShaderModule { return m.handle }

func (m *VulkanShaderModule) Destroy() {
	if m.handle == nil {
		return
	}
	m.device.drv.DestroyShaderModule(m.device.handle, m.handle)
	m.device.disown(m.id)
	m.handle = nil
}

// ShaderStage binds a module entry point to a pipeline stage.
type ShaderStage struct {
	Stage  vk.ShaderStageFlagBits
	Module *VulkanShaderModule
	// Entry defaults to "main".
	Entry string
}

func (s ShaderStage) info() vk.PipelineShaderStageCreateInfo {
	entry := s.Entry
	if entry == "" {
		entry = "main"
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Module.handle,
		PName:  VulkanSafeString(entry),
	}
}
