//go:build linux || darwin || freebsd

package driver

/*
#cgo linux freebsd LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef void* (*vkbindGetDeviceProcAddrFn)(void* device, const char* name);

static vkbindGetDeviceProcAddrFn vkbindGDPA = NULL;

static int vkbindLoad(void) {
	if (vkbindGDPA != NULL) {
		return 1;
	}
#ifdef __APPLE__
	void* lib = dlopen("libvulkan.1.dylib", RTLD_NOW | RTLD_LOCAL);
	if (lib == NULL) lib = dlopen("libMoltenVK.dylib", RTLD_NOW | RTLD_LOCAL);
#else
	void* lib = dlopen("libvulkan.so.1", RTLD_NOW | RTLD_LOCAL);
	if (lib == NULL) lib = dlopen("libvulkan.so", RTLD_NOW | RTLD_LOCAL);
#endif
	if (lib == NULL) {
		return 0;
	}
	vkbindGDPA = (vkbindGetDeviceProcAddrFn)dlsym(lib, "vkGetDeviceProcAddr");
	return vkbindGDPA != NULL;
}

static void* vkbindDeviceProcAddr(void* device, const char* name) {
	if (!vkbindLoad()) {
		return NULL;
	}
	return vkbindGDPA(device, name);
}

typedef struct {
	int32_t sType;
	const void* pNext;
	int32_t semaphoreType;
	uint64_t initialValue;
} vkbindSemaphoreTypeCreateInfo;

typedef struct {
	int32_t sType;
	const void* pNext;
	uint32_t waitSemaphoreValueCount;
	const uint64_t* pWaitSemaphoreValues;
	uint32_t signalSemaphoreValueCount;
	const uint64_t* pSignalSemaphoreValues;
} vkbindTimelineSemaphoreSubmitInfo;

typedef struct {
	int32_t sType;
	const void* pNext;
	void* semaphore;
	uint64_t value;
} vkbindSemaphoreSignalInfo;

typedef struct {
	int32_t sType;
	const void* pNext;
	uint32_t flags;
	uint32_t semaphoreCount;
	void* const* pSemaphores;
	const uint64_t* pValues;
} vkbindSemaphoreWaitInfo;

static int32_t vkbindGetSemaphoreCounterValue(void* fn, void* device, void* semaphore, uint64_t* value) {
	typedef int32_t (*pfn)(void*, void*, uint64_t*);
	return ((pfn)fn)(device, semaphore, value);
}

static int32_t vkbindSignalSemaphore(void* fn, void* device, void* semaphore, uint64_t value) {
	typedef int32_t (*pfn)(void*, const vkbindSemaphoreSignalInfo*);
	vkbindSemaphoreSignalInfo info = {1000207005, NULL, semaphore, value};
	return ((pfn)fn)(device, &info);
}

static int32_t vkbindWaitSemaphores(void* fn, void* device, void** semaphores, uint64_t* values, uint32_t count, uint64_t timeout) {
	typedef int32_t (*pfn)(void*, const vkbindSemaphoreWaitInfo*, uint64_t);
	vkbindSemaphoreWaitInfo info = {1000207004, NULL, 0, count, semaphores, values};
	return ((pfn)fn)(device, &info, timeout);
}

static void vkbindCmdDispatchBase(void* fn, void* cb, uint32_t bx, uint32_t by, uint32_t bz, uint32_t x, uint32_t y, uint32_t z) {
	typedef void (*pfn)(void*, uint32_t, uint32_t, uint32_t, uint32_t, uint32_t, uint32_t);
	((pfn)fn)(cb, bx, by, bz, x, y, z);
}

static void vkbindCmdSetDeviceMask(void* fn, void* cb, uint32_t mask) {
	typedef void (*pfn)(void*, uint32_t);
	((pfn)fn)(cb, mask);
}

static void vkbindCmdDrawIndirectCount(void* fn, void* cb, void* buffer, uint64_t offset, void* countBuffer, uint64_t countOffset, uint32_t maxDrawCount, uint32_t stride) {
	typedef void (*pfn)(void*, void*, uint64_t, void*, uint64_t, uint32_t, uint32_t);
	((pfn)fn)(cb, buffer, offset, countBuffer, countOffset, maxDrawCount, stride);
}
*/
import "C"

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

const (
	structureTypeSemaphoreTypeCreateInfo     = 1000207002
	structureTypeTimelineSemaphoreSubmitInfo = 1000207003
	semaphoreTypeTimeline                    = 1
)

func (*Vulkan) DeviceProcAddr(device vk.Device, name string) ProcAddr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return ProcAddr(C.vkbindDeviceProcAddr(unsafe.Pointer(device), cname))
}

func (*Vulkan) CreateTimelineSemaphore(device vk.Device, initial uint64) (vk.Semaphore, vk.Result) {
	typeInfo := (*C.vkbindSemaphoreTypeCreateInfo)(C.calloc(1, C.sizeof_vkbindSemaphoreTypeCreateInfo))
	defer C.free(unsafe.Pointer(typeInfo))
	typeInfo.sType = structureTypeSemaphoreTypeCreateInfo
	typeInfo.semaphoreType = semaphoreTypeTimeline
	typeInfo.initialValue = C.uint64_t(initial)

	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: unsafe.Pointer(typeInfo),
	}
	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(device, &info, nil, &semaphore)
	return semaphore, res
}

func (*Vulkan) QueueSubmitTimeline(queue vk.Queue, submits []vk.SubmitInfo, waitValues, signalValues [][]uint64, fence vk.Fence) vk.Result {
	var allocs []unsafe.Pointer
	defer func() {
		for _, p := range allocs {
			C.free(p)
		}
	}()

	chained := make([]vk.SubmitInfo, len(submits))
	copy(chained, submits)
	for i := range chained {
		var wait, signal []uint64
		if i < len(waitValues) {
			wait = waitValues[i]
		}
		if i < len(signalValues) {
			signal = signalValues[i]
		}
		if len(wait) == 0 && len(signal) == 0 {
			continue
		}
		info := (*C.vkbindTimelineSemaphoreSubmitInfo)(C.calloc(1, C.sizeof_vkbindTimelineSemaphoreSubmitInfo))
		allocs = append(allocs, unsafe.Pointer(info))
		info.sType = structureTypeTimelineSemaphoreSubmitInfo
		info.waitSemaphoreValueCount = C.uint32_t(len(wait))
		info.pWaitSemaphoreValues = cValues(wait, &allocs)
		info.signalSemaphoreValueCount = C.uint32_t(len(signal))
		info.pSignalSemaphoreValues = cValues(signal, &allocs)
		chained[i].PNext = unsafe.Pointer(info)
	}
	return vk.QueueSubmit(queue, uint32(len(chained)), chained, fence)
}

func cValues(values []uint64, allocs *[]unsafe.Pointer) *C.uint64_t {
	if len(values) == 0 {
		return nil
	}
	p := C.malloc(C.size_t(len(values)) * C.size_t(unsafe.Sizeof(uint64(0))))
	*allocs = append(*allocs, p)
	copy(unsafe.Slice((*uint64)(p), len(values)), values)
	return (*C.uint64_t)(p)
}

func (*Vulkan) GetSemaphoreCounterValue(proc ProcAddr, device vk.Device, semaphore vk.Semaphore) (uint64, vk.Result) {
	var value C.uint64_t
	res := C.vkbindGetSemaphoreCounterValue(unsafe.Pointer(proc), unsafe.Pointer(device), unsafe.Pointer(semaphore), &value)
	return uint64(value), vk.Result(res)
}

func (*Vulkan) SignalSemaphore(proc ProcAddr, device vk.Device, semaphore vk.Semaphore, value uint64) vk.Result {
	return vk.Result(C.vkbindSignalSemaphore(unsafe.Pointer(proc), unsafe.Pointer(device), unsafe.Pointer(semaphore), C.uint64_t(value)))
}

func (*Vulkan) WaitSemaphores(proc ProcAddr, device vk.Device, semaphores []vk.Semaphore, values []uint64, timeout uint64) vk.Result {
	if len(semaphores) == 0 {
		return vk.Success
	}
	var allocs []unsafe.Pointer
	defer func() {
		for _, p := range allocs {
			C.free(p)
		}
	}()
	handles := C.malloc(C.size_t(len(semaphores)) * C.size_t(unsafe.Sizeof(uintptr(0))))
	allocs = append(allocs, handles)
	hs := unsafe.Slice((*unsafe.Pointer)(handles), len(semaphores))
	for i, s := range semaphores {
		hs[i] = unsafe.Pointer(s)
	}
	return vk.Result(C.vkbindWaitSemaphores(unsafe.Pointer(proc), unsafe.Pointer(device),
		(*unsafe.Pointer)(handles), cValues(values, &allocs), C.uint32_t(len(semaphores)), C.uint64_t(timeout)))
}

func (*Vulkan) CmdDispatchBase(proc ProcAddr, cb vk.CommandBuffer, baseX, baseY, baseZ, x, y, z uint32) {
	C.vkbindCmdDispatchBase(unsafe.Pointer(proc), unsafe.Pointer(cb),
		C.uint32_t(baseX), C.uint32_t(baseY), C.uint32_t(baseZ), C.uint32_t(x), C.uint32_t(y), C.uint32_t(z))
}

func (*Vulkan) CmdSetDeviceMask(proc ProcAddr, cb vk.CommandBuffer, mask uint32) {
	C.vkbindCmdSetDeviceMask(unsafe.Pointer(proc), unsafe.Pointer(cb), C.uint32_t(mask))
}

func (*Vulkan) CmdDrawIndirectCount(proc ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) {
	C.vkbindCmdDrawIndirectCount(unsafe.Pointer(proc), unsafe.Pointer(cb), unsafe.Pointer(buffer), C.uint64_t(offset),
		unsafe.Pointer(countBuffer), C.uint64_t(countOffset), C.uint32_t(maxDrawCount), C.uint32_t(stride))
}

// The indexed variant shares the native signature.
func (v *Vulkan) CmdDrawIndexedIndirectCount(proc ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) {
	v.CmdDrawIndirectCount(proc, cb, buffer, offset, countBuffer, countOffset, maxDrawCount, stride)
}
