// Copyright (c) 2025 Cubyte.online under the AGPL License

package main

import (
	"fmt"

	"cogentcore.org/core/math32"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/camera"
	"github.com/tomas-mraz/vulkan-hybrid/render"
)

// Coefficients for converting cursor movements to yaw and pitch.
const (
	mouseSensitivityX float32 = 0.005
	mouseSensitivityY float32 = 0.005
)

// window is the glfw window frames are presented to.
type window struct {
	*glfw.Window
}

// openWindow initializes glfw and the vulkan loader and opens a fixed
// size window without a client API.
func openWindow(width, height int) (*window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("vulkan init: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	w, err := glfw.CreateWindow(width, height, "hybrid", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw window: %w", err)
	}
	return &window{Window: w}, nil
}

// createSurface fits asch.DeviceConfig.CreateSurface.
func (w *window) createSurface(instance vk.Instance, _ uintptr) (vk.Surface, error) {
	ptr, err := w.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (w *window) close() {
	w.Destroy()
	glfw.Terminate()
}

// controls maps window input to renderer state. Callbacks run inside
// glfw.PollEvents on the render goroutine.
type controls struct {
	r        *render.Renderer
	onscreen bool
	blur     bool
	err      error

	lastX, lastY float64
	dragging     bool
}

func (c *controls) attach(w *window) {
	w.SetKeyCallback(c.onKey)
	w.SetMouseButtonCallback(c.onMouseButton)
	w.SetCursorPosCallback(c.onCursor)
}

func (c *controls) onKey(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
	case glfw.KeyW:
		c.move(camera.Forward)
	case glfw.KeyS:
		c.move(camera.Back)
	case glfw.KeyA:
		c.move(camera.Left)
	case glfw.KeyD:
		c.move(camera.Right)
	case glfw.KeyB:
		if action == glfw.Press {
			c.blur = !c.blur
			c.r.SetBlur(c.blur)
		}
	case glfw.KeyO:
		if action == glfw.Press {
			c.onscreen = !c.onscreen
		}
	}
}

func (c *controls) move(dir camera.Direction) {
	cam := c.r.Camera()
	c.update(cam.Move(dir, camera.MoveStep), cam.Direction())
}

func (c *controls) onMouseButton(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	c.dragging = action == glfw.Press
	if c.dragging {
		c.lastX, c.lastY = w.GetCursorPos()
	}
}

func (c *controls) onCursor(w *glfw.Window, x, y float64) {
	if !c.dragging {
		return
	}
	dx := float32(x-c.lastX) * mouseSensitivityX
	dy := float32(c.lastY-y) * mouseSensitivityY
	c.lastX, c.lastY = x, y
	cam := c.r.Camera()
	c.update(cam.Origin(), cam.Rotate(dx, dy))
}

// update keeps the first camera error; the render loop stops on it.
func (c *controls) update(origin, dir math32.Vector3) {
	if err := c.r.UpdateCamera(origin, dir); err != nil && c.err == nil {
		c.err = err
	}
}
