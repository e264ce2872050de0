// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package frame sequences the frames of the hybrid renderer across a
// fixed number of frame-in-flight slots.
//
// Each frame runs the same states in order: wait for the slot fence,
// acquire an image (onscreen), update host buffers, record, submit,
// present (onscreen) or wait (offscreen), advance to the next slot.
// The fence wait is the only blocking point of an onscreen frame and
// bounds the work submitted ahead of the GPU to the number of slots.
package frame

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Output is one image a frame can end in, with its framebuffer.
type Output struct {
	Image gpu.Image
	FB    gpu.Framebuf
	// Layout is the layout the image is left in.
	Layout gpu.Layout
}

// Recorder produces the work of one frame.
type Recorder interface {
	// SlotBuffers returns the host buffers each slot owns.
	SlotBuffers() []gpu.BufferConfig

	// Outputs creates the framebuffers for every image of t.
	// The caller owns the framebuffers.
	Outputs(t gpu.Target) ([]Output, error)

	// Update writes per-frame data into the host buffers of slot.
	Update(ctx *Context, slot *Slot) error

	// Record records the commands of a frame ending in out.
	Record(ctx *Context, cb gpu.CmdBuffer, slot *Slot, out Output) error
}

// Sequencer paces frames across N slots.
type Sequencer struct {
	g        gpu.GPU
	rec      Recorder
	onscreen gpu.Target
	slots    []*Slot
	outputs  map[bool][]Output
	cur      int
	last     *Slot
	lastOn   bool
	td       gpu.Teardown
}

// NewSequencer creates n slots. onscreen may be nil when frames are
// only rendered offscreen.
func NewSequencer(g gpu.GPU, rec Recorder, onscreen, offscreen gpu.Target, n int) (*Sequencer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("frame: %d frames in flight", n)
	}
	if offscreen == nil {
		return nil, errors.New("frame: no offscreen target")
	}
	if onscreen != nil && !onscreen.CanPresent() {
		return nil, errors.New("frame: onscreen target cannot present")
	}
	s := &Sequencer{g: g, rec: rec, onscreen: onscreen, outputs: make(map[bool][]Output)}
	if err := s.init(offscreen, n); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *Sequencer) init(offscreen gpu.Target, n int) error {
	cfgs := s.rec.SlotBuffers()
	for i := 0; i < n; i++ {
		slot, err := newSlot(s.g, i, cfgs, &s.td)
		if err != nil {
			return err
		}
		s.slots = append(s.slots, slot)
	}
	for _, on := range []bool{false, true} {
		t := offscreen
		if on {
			t = s.onscreen
		}
		if t == nil {
			continue
		}
		outs, err := s.rec.Outputs(t)
		if err != nil {
			return err
		}
		for _, o := range outs {
			s.td.Add(o.FB)
		}
		s.outputs[on] = outs
	}
	slog.Debug(fmt.Sprintf("frame: %d slots, %d onscreen outputs", n, len(s.outputs[true])))
	return nil
}

// Slots returns the number of frame-in-flight slots.
func (s *Sequencer) Slots() int { return len(s.slots) }

// Slot returns slot i.
func (s *Sequencer) Slot(i int) *Slot { return s.slots[i] }

// Current returns the index of the slot the next frame uses.
func (s *Sequencer) Current() int { return s.cur }

// RenderFrame renders one frame and returns the time it took. Errors
// are not recoverable: device state after a failed submission or
// presentation is unspecified.
func (s *Sequencer) RenderFrame(ctx *Context, onscreen bool) (time.Duration, error) {
	start := time.Now()
	if onscreen && s.onscreen == nil {
		return 0, gpu.ErrCannotPresent
	}
	// The previous onscreen frame still owns a presentable image.
	if !onscreen && s.lastOn && s.last != nil {
		if err := s.g.Wait(s.last.Fence); err != nil {
			return 0, fmt.Errorf("frame: wait before offscreen: %w", err)
		}
	}
	slot := s.slots[s.cur]

	if err := s.g.Wait(slot.Fence); err != nil {
		return 0, fmt.Errorf("frame: wait slot %d: %w", slot.Index, err)
	}
	slot.waited = true
	defer func() { slot.waited = false }()
	if err := s.g.Reset(slot.Fence); err != nil {
		return 0, fmt.Errorf("frame: reset slot %d fence: %w", slot.Index, err)
	}

	idx := 0
	if onscreen {
		var err error
		idx, err = s.onscreen.Acquire(slot.ImageAvailable)
		if err != nil {
			return 0, fmt.Errorf("frame: acquire: %w", err)
		}
	}
	out := s.outputs[onscreen][idx]

	if err := s.rec.Update(ctx, slot); err != nil {
		return 0, fmt.Errorf("frame: update slot %d: %w", slot.Index, err)
	}

	if err := slot.Cmd.Begin(); err != nil {
		return 0, fmt.Errorf("frame: begin: %w", err)
	}
	if err := s.rec.Record(ctx, slot.Cmd, slot, out); err != nil {
		return 0, fmt.Errorf("frame: record: %w", err)
	}
	if err := slot.Cmd.End(); err != nil {
		return 0, fmt.Errorf("frame: end: %w", err)
	}

	info := &gpu.SubmitInfo{Fence: slot.Fence}
	if onscreen {
		info.Wait = slot.ImageAvailable
		info.WaitStage = gpu.SColorOutput
		info.Signal = slot.RenderFinished
	}
	if err := s.g.Submit(slot.Cmd, info); err != nil {
		return 0, fmt.Errorf("frame: submit: %w", err)
	}
	slot.waited = false

	if onscreen {
		if err := s.onscreen.Present(idx, slot.RenderFinished); err != nil {
			return 0, fmt.Errorf("frame: present: %w", err)
		}
	} else if err := s.g.Wait(slot.Fence); err != nil {
		return 0, fmt.Errorf("frame: wait offscreen completion: %w", err)
	}

	s.last, s.lastOn = slot, onscreen
	s.cur = (s.cur + 1) % len(s.slots)
	return time.Since(start), nil
}

// Wait blocks until every submitted frame completed.
func (s *Sequencer) Wait() error { return s.g.WaitIdle() }

// Destroy releases the slots and the framebuffers. The device must be
// idle.
func (s *Sequencer) Destroy() {
	s.td.Destroy()
	s.slots = nil
	s.outputs = nil
}
