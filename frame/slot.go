// Copyright (c) 2025 Cubyte.online under the AGPL License

package frame

import (
	"errors"
	"fmt"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// ErrSlotInFlight is returned when the host buffers of a slot are
// requested while its previous submission may still be executing.
var ErrSlotInFlight = errors.New("frame: slot buffers requested before its fence was waited")

// Slot is one frame-in-flight pipeline. Its host buffers are only
// written by the CPU between the fence wait of a frame and its
// submission.
type Slot struct {
	Index          int
	ImageAvailable gpu.Semaphore
	RenderFinished gpu.Semaphore
	Fence          gpu.Fence
	Cmd            gpu.CmdBuffer

	buffers []gpu.Buffer
	waited  bool
}

func newSlot(g gpu.GPU, idx int, cfgs []gpu.BufferConfig, td *gpu.Teardown) (*Slot, error) {
	s := &Slot{Index: idx}
	var err error
	if s.ImageAvailable, err = g.NewSemaphore(); err != nil {
		return nil, fmt.Errorf("frame: slot %d image-available semaphore: %w", idx, err)
	}
	td.Add(s.ImageAvailable)
	if s.RenderFinished, err = g.NewSemaphore(); err != nil {
		return nil, fmt.Errorf("frame: slot %d render-finished semaphore: %w", idx, err)
	}
	td.Add(s.RenderFinished)
	// Signaled so the first wait on a fresh slot returns at once.
	if s.Fence, err = g.NewFence(true); err != nil {
		return nil, fmt.Errorf("frame: slot %d fence: %w", idx, err)
	}
	td.Add(s.Fence)
	if s.Cmd, err = g.NewCmdBuffer(); err != nil {
		return nil, fmt.Errorf("frame: slot %d command buffer: %w", idx, err)
	}
	td.Add(s.Cmd)
	for i := range cfgs {
		cfg := cfgs[i]
		cfg.Visible = true
		buf, err := g.NewBuffer(&cfg)
		if err != nil {
			return nil, fmt.Errorf("frame: slot %d buffer %d: %w", idx, i, err)
		}
		td.Add(buf)
		s.buffers = append(s.buffers, buf)
	}
	return s, nil
}

// Buffer returns host buffer i of the slot for descriptor wiring.
// Writing its contents requires Acquire.
func (s *Slot) Buffer(i int) gpu.Buffer { return s.buffers[i] }

// Acquire returns the host buffers of the slot. It fails with
// ErrSlotInFlight unless the slot fence was waited in the current frame.
func (s *Slot) Acquire() ([]gpu.Buffer, error) {
	if !s.waited {
		return nil, fmt.Errorf("slot %d: %w", s.Index, ErrSlotInFlight)
	}
	return s.buffers, nil
}
