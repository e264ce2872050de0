// Copyright (c) 2025 Cubyte.online under the AGPL License

//go:build android

package asch

import (
	"fmt"

	vk "github.com/tomas-mraz/vulkan"
)

// NewAndroidSurface creates the surface of a native window. It fits
// DeviceConfig.CreateSurface.
func NewAndroidSurface(instance vk.Instance, windowPtr uintptr) (vk.Surface, error) {
	var surface vk.Surface
	if err := vk.Error(vk.CreateWindowSurface(instance, windowPtr, nil, &surface)); err != nil {
		return vk.NullSurface, fmt.Errorf("vk.CreateWindowSurface failed with %w", err)
	}
	return surface, nil
}
