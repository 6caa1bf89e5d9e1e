// vkinfo prints what the Vulkan loader and its physical devices offer.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

func main() {
	useSoft := flag.Bool("soft", false, "query the software driver instead of the system loader")
	verbose := flag.Bool("v", false, "list every device extension")
	flag.Parse()
	core.SetLogLevel("warn")

	var drv driver.Driver
	if *useSoft {
		drv = soft.New(soft.DefaultConfig())
	} else {
		vkDriver, err := driver.New(nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "vkinfo:", err)
			os.Exit(1)
		}
		drv = vkDriver
	}
	if err := report(os.Stdout, drv, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "vkinfo:", err)
		os.Exit(1)
	}
}

func report(out io.Writer, drv driver.Driver, verbose bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	layers, err := vulkan.InstanceLayers(drv)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Driver:\t%s\n", drv.Name())
	fmt.Fprintf(w, "Instance layers:\t%d\n", len(layers))
	for _, l := range layers {
		fmt.Fprintf(w, "  %s\t%s\n", l.Name, l.Description)
	}
	exts, err := vulkan.InstanceExtensions(drv)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Instance extensions:\t%d\n", len(exts))
	for _, e := range exts {
		fmt.Fprintf(w, "  %s\tv%d\n", e.Name, e.SpecVersion)
	}

	inst, err := vulkan.CreateInstance(drv, vulkan.InstanceConfig{
		ApplicationName: "vkinfo",
		EngineName:      "vkbind",
		Policy:          vulkan.FailPropagate,
	})
	if err != nil {
		return err
	}
	defer inst.Destroy()
	devices, err := inst.PhysicalDevices()
	if err != nil {
		return err
	}
	for i, pd := range devices {
		props := pd.Properties()
		api := vk.Version(props.ApiVersion)
		fmt.Fprintf(w, "\nDevice %d:\t%s (%s)\n", i, pd.Name(), pd.TypeName())
		fmt.Fprintf(w, "  API version:\t%d.%d.%d\n", api.Major(), api.Minor(), api.Patch())
		fmt.Fprintf(w, "  Queue families:\t%d\n", len(pd.QueueFamilies()))
		for f, family := range pd.QueueFamilies() {
			fmt.Fprintf(w, "    %d\t%s\tx%d\n", f, queueFlags(family.QueueFlags), family.QueueCount)
		}
		mem := pd.MemoryProperties()
		fmt.Fprintf(w, "  Memory heaps:\t%d\n", mem.MemoryHeapCount)
		for h := uint32(0); h < mem.MemoryHeapCount; h++ {
			heap := mem.MemoryHeaps[h]
			local := ""
			if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
				local = "device local"
			}
			fmt.Fprintf(w, "    %d\t%.2f MiB\t%s\n", h, float64(heap.Size)/(1<<20), local)
		}
		fmt.Fprintf(w, "  Memory types:\t%d\n", mem.MemoryTypeCount)
		for t := uint32(0); t < mem.MemoryTypeCount; t++ {
			mt := mem.MemoryTypes[t]
			fmt.Fprintf(w, "    %d\theap %d\t%s\n", t, mt.HeapIndex, memoryFlags(mt.PropertyFlags))
		}
		devExts, err := pd.Extensions()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  Device extensions:\t%d\n", len(devExts))
		if verbose {
			for _, e := range devExts {
				fmt.Fprintf(w, "    %s\tv%d\n", e.Name, e.SpecVersion)
			}
		}
	}
	return nil
}

func queueFlags(f vk.QueueFlags) string {
	var names []string
	for _, b := range []struct {
		bit  vk.QueueFlagBits
		name string
	}{
		{vk.QueueGraphicsBit, "graphics"},
		{vk.QueueComputeBit, "compute"},
		{vk.QueueTransferBit, "transfer"},
		{vk.QueueSparseBindingBit, "sparse"},
	} {
		if f&vk.QueueFlags(b.bit) != 0 {
			names = append(names, b.name)
		}
	}
	return strings.Join(names, "|")
}

func memoryFlags(f vk.MemoryPropertyFlags) string {
	var names []string
	for _, b := range []struct {
		bit  vk.MemoryPropertyFlagBits
		name string
	}{
		{vk.MemoryPropertyDeviceLocalBit, "device-local"},
		{vk.MemoryPropertyHostVisibleBit, "host-visible"},
		{vk.MemoryPropertyHostCoherentBit, "host-coherent"},
		{vk.MemoryPropertyHostCachedBit, "host-cached"},
		{vk.MemoryPropertyLazilyAllocatedBit, "lazy"},
	} {
		if f&vk.MemoryPropertyFlags(b.bit) != 0 {
			names = append(names, b.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}
