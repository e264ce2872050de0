// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	vk "github.com/tomas-mraz/vulkan"
)

// ErrNoDevice is returned when no physical device supports ray tracing
// together with a graphics queue.
var ErrNoDevice = errors.New("asch: no device with VK_NV_ray_tracing and a graphics queue")

// IsError reports whether ret is a failure.
func IsError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError returns the error of a failed result, or nil on success.
func NewError(ret vk.Result) error {
	if !IsError(ret) {
		return nil
	}
	return fmt.Errorf("vulkan error: %s (%d)", vk.Error(ret).Error(), ret)
}

// vkError names the failed call and the place it was made from.
func vkError(call string, ret vk.Result) error {
	err := NewError(ret)
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s failed with %w (%s:%d)", call, err, filepath.Base(file), line)
}
