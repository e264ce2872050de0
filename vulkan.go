// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package asch is the Vulkan implementation of the gpu interfaces.
// Ray tracing goes through VK_NV_ray_tracing.
package asch

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"unsafe"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

var _ gpu.GPU = (*Device)(nil)

// DeviceConfig configures NewDevice.
type DeviceConfig struct {
	AppName string
	// InstanceExtensions are the extensions the window system needs,
	// e.g. from glfw.
	InstanceExtensions []string
	// CreateSurface creates the window surface. It is nil for
	// headless sessions, which can only render offscreen.
	CreateSurface func(instance vk.Instance, window uintptr) (vk.Surface, error)
	Window        uintptr
	// Debug enables the validation layer and the debug report
	// callback.
	Debug bool
}

// Validate checks the configuration.
func (c *DeviceConfig) Validate() error {
	if c.AppName == "" {
		c.AppName = "vulkan-hybrid"
	}
	if c.CreateSurface == nil && c.Window != 0 {
		return errors.New("asch: window given without a surface constructor")
	}
	return nil
}

// Device is a Vulkan device session able to trace rays.
type Device struct {
	Instance   vk.Instance
	Surface    vk.Surface
	GpuDevice  vk.PhysicalDevice
	Device     vk.Device
	Queue      vk.Queue
	QueueIndex uint32

	memProps vk.PhysicalDeviceMemoryProperties
	pool     vk.CommandPool
	rt       *rtNV
	dbg      vk.DebugReportCallback
	td       gpu.Teardown
}

// NewExtentSize needs for Wayland
func NewExtentSize(width, height int) vk.Extent2D {
	return vk.Extent2D{
		Width:  uint32(width),
		Height: uint32(height),
	}
}

func getDeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var deviceExtLen uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &deviceExtLen, nil)
	if err := vkError("vk.EnumerateDeviceExtensionProperties", ret); err != nil {
		return nil, err
	}
	deviceExt := make([]vk.ExtensionProperties, deviceExtLen)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &deviceExtLen, deviceExt)
	if err := vkError("vk.EnumerateDeviceExtensionProperties", ret); err != nil {
		return nil, err
	}
	extNames := make([]string, 0, deviceExtLen)
	for _, ext := range deviceExt {
		ext.Deref()
		extNames = append(extNames, vk.ToString(ext.ExtensionName[:]))
	}
	return extNames, nil
}

func getInstanceExtensions() ([]string, error) {
	var instanceExtLen uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, nil)
	if err := vkError("vk.EnumerateInstanceExtensionProperties", ret); err != nil {
		return nil, err
	}
	instanceExt := make([]vk.ExtensionProperties, instanceExtLen)
	ret = vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, instanceExt)
	if err := vkError("vk.EnumerateInstanceExtensionProperties", ret); err != nil {
		return nil, err
	}
	extNames := make([]string, 0, instanceExtLen)
	for _, ext := range instanceExt {
		ext.Deref()
		extNames = append(extNames, vk.ToString(ext.ExtensionName[:]))
	}
	return extNames, nil
}

func getPhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var gpuCount uint32
	if err := vkError("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &gpuCount, nil)); err != nil {
		return nil, err
	}
	if gpuCount == 0 {
		return nil, fmt.Errorf("getPhysicalDevice: no GPUs found on the system")
	}
	gpuList := make([]vk.PhysicalDevice, gpuCount)
	if err := vkError("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &gpuCount, gpuList)); err != nil {
		return nil, err
	}
	return gpuList, nil
}

// findQueueFamily returns the first graphics queue family, which must
// also present to surface when one is given.
func findQueueFamily(gpu vk.PhysicalDevice, surface vk.Surface) (uint32, bool) {
	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, nil)
	queueProperties := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, queueProperties)
	for i := uint32(0); i < queueCount; i++ {
		queueProperties[i].Deref()
		if queueProperties[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		if surface != vk.NullSurface {
			var supportsPresent vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &supportsPresent)
			if !supportsPresent.B() {
				continue
			}
		}
		return i, true
	}
	return 0, false
}

// selectDevice picks the first device exposing ray tracing and a
// suitable queue family.
func selectDevice(gpus []vk.PhysicalDevice, surface vk.Surface) (vk.PhysicalDevice, uint32, error) {
	for i, gpu := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		name := getCString(props.DeviceName[:])
		props.Free()

		exts, err := getDeviceExtensions(gpu)
		if err != nil {
			return nil, 0, err
		}
		slog.Debug(fmt.Sprintf("GPU %d %s has %d extensions", i, name, len(exts)))
		if !slices.Contains(exts, rayTracingExtensionName) {
			slog.Debug(fmt.Sprintf("GPU %d %s lacks %s", i, name, rayTracingExtensionName))
			continue
		}
		if q, ok := findQueueFamily(gpu, surface); ok {
			slog.Debug(fmt.Sprintf("Selected GPU %d %s, queue family %d", i, name, q))
			return gpu, q, nil
		}
	}
	return nil, 0, ErrNoDevice
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		slog.Error(fmt.Sprintf("[%d] %s on layer %s", messageCode, pMessage, pLayerPrefix))
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		slog.Warn(fmt.Sprintf("[%d] %s on layer %s", messageCode, pMessage, pLayerPrefix))
	default:
		slog.Debug(fmt.Sprintf("[%d] %s on layer %s", messageCode, pMessage, pLayerPrefix))
	}
	return vk.Bool32(vk.False)
}

// NewDevice creates the Vulkan session: instance, optional window
// surface, a ray tracing capable logical device with one graphics
// queue, a command pool and the ray tracing entry points. Everything
// created so far is released when a later phase fails.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Device{}
	if err := d.init(&cfg); err != nil {
		d.td.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *Device) init(cfg *DeviceConfig) error {
	var appInfo = &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 1, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeString(cfg.AppName),
		PEngineName:        "vulkan-hybrid\x00",
	}

	// Phase 1: vk.CreateInstance with vk.InstanceCreateInfo

	existingExtensions, err := getInstanceExtensions()
	if err != nil {
		return err
	}
	slog.Debug(fmt.Sprintf("Instance extensions: %v", existingExtensions))

	instanceExtensions := safeStrings(cfg.InstanceExtensions)
	var instanceLayers []string
	if cfg.Debug {
		instanceExtensions = append(instanceExtensions, "VK_EXT_debug_report\x00")
		// ANDROID:
		// these layers must be included in APK,
		// see Android.mk and ValidationLayers.mk
		instanceLayers = append(instanceLayers, "VK_LAYER_KHRONOS_validation\x00")
	}

	instanceCreateInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(instanceExtensions)),
		PpEnabledExtensionNames: instanceExtensions,
		EnabledLayerCount:       uint32(len(instanceLayers)),
		PpEnabledLayerNames:     instanceLayers,
	}
	if err := vkError("vk.CreateInstance", vk.CreateInstance(&instanceCreateInfo, nil, &d.Instance)); err != nil {
		return err
	}
	vk.InitInstance(d.Instance) // used by MoltenVK
	d.td.Add(gpu.DestroyFunc(func() { vk.DestroyInstance(d.Instance, nil) }))

	// Phase 2: the window surface, if any

	if cfg.CreateSurface != nil {
		d.Surface, err = cfg.CreateSurface(d.Instance, cfg.Window) // Android use a different way to get surface
		if err != nil {
			return fmt.Errorf("create surface failed with %w", err)
		}
		d.td.Add(gpu.DestroyFunc(func() { vk.DestroySurface(d.Instance, d.Surface, nil) }))
	}

	gpuDevices, err := getPhysicalDevices(d.Instance)
	if err != nil {
		return err
	}
	slog.Debug(fmt.Sprintf("Found %d GPUs", len(gpuDevices)))
	d.GpuDevice, d.QueueIndex, err = selectDevice(gpuDevices, d.Surface)
	if err != nil {
		return err
	}

	// Phase 3: vk.CreateDevice with vk.DeviceCreateInfo (a logical device)

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.QueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	deviceExtensions := []string{
		rayTracingExtensionName + end,
		memoryRequirements2Extension + end,
	}
	if d.Surface != vk.NullSurface {
		deviceExtensions = append(deviceExtensions, "VK_KHR_swapchain\x00")
	}
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: deviceExtensions,
	}
	if err := vkError("vk.CreateDevice", vk.CreateDevice(d.GpuDevice, &deviceCreateInfo, nil, &d.Device)); err != nil {
		return err
	}
	d.td.Add(gpu.DestroyFunc(func() { vk.DestroyDevice(d.Device, nil) }))
	vk.GetDeviceQueue(d.Device, d.QueueIndex, 0, &d.Queue)
	vk.GetPhysicalDeviceMemoryProperties(d.GpuDevice, &d.memProps)
	d.memProps.Deref()

	// Phase 4: command pool and ray tracing entry points

	ret := vk.CreateCommandPool(d.Device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.QueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &d.pool)
	if err := vkError("vk.CreateCommandPool", ret); err != nil {
		return err
	}
	d.td.Add(gpu.DestroyFunc(func() { vk.DestroyCommandPool(d.Device, d.pool, nil) }))

	d.rt, err = loadRT(d.Instance, d.GpuDevice, d.Device)
	if err != nil {
		return err
	}
	d.td.Add(gpu.DestroyFunc(d.rt.close))
	slog.Debug(fmt.Sprintf("Ray tracing: group handle %d bytes, base alignment %d, max recursion %d",
		d.rt.HandleSize, d.rt.BaseAlignment, d.rt.MaxRecursion))

	if cfg.Debug {
		// Phase 5: vk.CreateDebugReportCallback

		dbgCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		err = vk.Error(vk.CreateDebugReportCallback(d.Instance, &dbgCreateInfo, nil, &d.dbg))
		if err != nil {
			slog.Warn(fmt.Sprintf("vk.CreateDebugReportCallback failed with %s", err))
			return nil
		}
		d.td.Add(gpu.DestroyFunc(func() { vk.DestroyDebugReportCallback(d.Instance, d.dbg, nil) }))
	}
	return nil
}

// CanPresent reports whether the session has a window surface.
func (d *Device) CanPresent() bool { return d.Surface != vk.NullSurface }

// WaitIdle blocks until the device has no outstanding work.
func (d *Device) WaitIdle() error {
	return vkError("vk.DeviceWaitIdle", vk.DeviceWaitIdle(d.Device))
}

// Destroy releases the session in reverse creation order. Every object
// created through the device must have been destroyed first.
func (d *Device) Destroy() {
	if d.Device != nil {
		vk.DeviceWaitIdle(d.Device)
	}
	d.td.Destroy()
}
