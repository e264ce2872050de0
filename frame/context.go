// Copyright (c) 2025 Cubyte.online under the AGPL License

package frame

import (
	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
)

// AnimateStep is the x translation applied to every instance per
// animated frame.
const AnimateStep = 0.01

// Context is the render state passed to every stage of a frame. It is
// mutated between frames only; stages read it.
type Context struct {
	Camera *camera.Camera
	// Frame counts the frames rendered so far.
	Frame uint32

	Animate bool
	Blur    bool
	AO      bool

	// Transforms holds one transform per instance. Refit reads it
	// when Animate is set.
	Transforms []accel.Transform
}

// Advance closes a frame: the camera state is kept as previous frame,
// the counter moves on and animated transforms step forward.
func (c *Context) Advance() {
	c.Camera.Snapshot()
	c.Frame++
	if c.Animate {
		for i := range c.Transforms {
			c.Transforms[i] = c.Transforms[i].Translate(AnimateStep, 0, 0)
		}
	}
}
