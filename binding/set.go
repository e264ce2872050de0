// Copyright (c) 2025 Cubyte.online under the AGPL License

package binding

import (
	"errors"
	"fmt"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Write is one descriptor write. Use the constructors so Kind and
// Layout match the resource.
type Write struct {
	Binding int
	Kind    gpu.DescKind
	Accel   gpu.AccelStruct
	Image   gpu.Image
	Sampler gpu.Sampler
	Buffer  gpu.Buffer
	Layout  gpu.Layout
}

// Accel writes the top-level structure as.
func Accel(binding int, as gpu.AccelStruct) Write {
	return Write{Binding: binding, Kind: gpu.DAccel, Accel: as}
}

// StorageImage writes img accessed in the general layout.
func StorageImage(binding int, img gpu.Image) Write {
	return Write{Binding: binding, Kind: gpu.DStorageImage, Image: img, Layout: gpu.LGeneral}
}

// Sampled writes img sampled with spl in the shader-read layout.
func Sampled(binding int, img gpu.Image, spl gpu.Sampler) Write {
	return Write{Binding: binding, Kind: gpu.DSampledImage, Image: img, Sampler: spl, Layout: gpu.LShaderRead}
}

// Input writes img as an input attachment.
func Input(binding int, img gpu.Image) Write {
	return Write{Binding: binding, Kind: gpu.DInputAttachment, Image: img, Layout: gpu.LShaderRead}
}

// Uniform writes a uniform buffer.
func Uniform(binding int, buf gpu.Buffer) Write {
	return Write{Binding: binding, Kind: gpu.DUniform, Buffer: buf}
}

// Storage writes a storage buffer.
func Storage(binding int, buf gpu.Buffer) Write {
	return Write{Binding: binding, Kind: gpu.DStorage, Buffer: buf}
}

// WriteError reports a descriptor write that does not match its table.
type WriteError struct {
	Table   *Table
	Binding int
	Err     error
}

func (e *WriteError) Error() string {
	if ent, ok := e.Table.Lookup(e.Binding); ok {
		return fmt.Sprintf("binding: %s binding %d (%s): %s", e.Table, e.Binding, ent.Name, e.Err)
	}
	return fmt.Sprintf("binding: %s binding %d: %s", e.Table, e.Binding, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

var (
	ErrUnknownBinding = errors.New("not declared")
	ErrKindMismatch   = errors.New("kind mismatch")
	ErrNilResource    = errors.New("nil resource")
	ErrLayoutMismatch = errors.New("layout mismatch")
	ErrIncomplete     = errors.New("never written")
)

// check validates w against t.
func (t *Table) check(w *Write) error {
	e, ok := t.Lookup(w.Binding)
	if !ok {
		return &WriteError{Table: t, Binding: w.Binding, Err: ErrUnknownBinding}
	}
	if e.Kind != w.Kind {
		return &WriteError{Table: t, Binding: w.Binding, Err: fmt.Errorf("%w: declared %s, written %s", ErrKindMismatch, e.Kind, w.Kind)}
	}
	var missing bool
	switch w.Kind {
	case gpu.DAccel:
		missing = w.Accel == nil
	case gpu.DStorageImage, gpu.DInputAttachment:
		missing = w.Image == nil
	case gpu.DSampledImage:
		missing = w.Image == nil || w.Sampler == nil
	case gpu.DUniform, gpu.DStorage:
		missing = w.Buffer == nil
	}
	if missing {
		return &WriteError{Table: t, Binding: w.Binding, Err: ErrNilResource}
	}
	if e.Layout != w.Layout {
		return &WriteError{Table: t, Binding: w.Binding, Err: fmt.Errorf("%w: declared %s, written %s", ErrLayoutMismatch, e.Layout, w.Layout)}
	}
	return nil
}

// Set is a layout created from a table and the descriptor sets
// allocated from it.
type Set struct {
	Table   *Table
	layout  gpu.DescLayout
	sets    []gpu.DescSet
	written []map[int]bool
}

// NewSets validates t and allocates count descriptor sets for it.
func NewSets(g gpu.GPU, t *Table, count int) (*Set, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("binding: %s: %d sets requested", t, count)
	}
	layout, err := g.NewDescLayout(t.Descriptors())
	if err != nil {
		return nil, fmt.Errorf("binding: %s layout: %w", t, err)
	}
	sets, err := g.NewDescSets(layout, count)
	if err != nil {
		layout.Destroy()
		return nil, fmt.Errorf("binding: %s sets: %w", t, err)
	}
	s := &Set{Table: t, layout: layout, sets: sets, written: make([]map[int]bool, count)}
	for i := range s.written {
		s.written[i] = make(map[int]bool)
	}
	return s, nil
}

// Len returns the number of descriptor sets.
func (s *Set) Len() int { return len(s.sets) }

// Layout returns the descriptor set layout.
func (s *Set) Layout() gpu.DescLayout { return s.layout }

// At returns descriptor set i.
func (s *Set) At(i int) gpu.DescSet { return s.sets[i] }

// Write applies ws to descriptor set i. All writes are validated
// before any is issued.
func (s *Set) Write(i int, ws ...Write) error {
	if i < 0 || i >= len(s.sets) {
		return fmt.Errorf("binding: %s: set %d out of range", s.Table, i)
	}
	for j := range ws {
		if err := s.Table.check(&ws[j]); err != nil {
			return err
		}
	}
	ds := s.sets[i]
	for _, w := range ws {
		switch w.Kind {
		case gpu.DAccel:
			ds.SetAccel(w.Binding, w.Accel)
		case gpu.DStorageImage, gpu.DInputAttachment:
			ds.SetImage(w.Binding, w.Image, w.Layout)
		case gpu.DSampledImage:
			ds.SetSampled(w.Binding, w.Image, w.Sampler, w.Layout)
		case gpu.DUniform, gpu.DStorage:
			ds.SetBuffer(w.Binding, w.Buffer)
		}
		s.written[i][w.Binding] = true
	}
	return nil
}

// WriteAll applies ws to every descriptor set.
func (s *Set) WriteAll(ws ...Write) error {
	for i := range s.sets {
		if err := s.Write(i, ws...); err != nil {
			return err
		}
	}
	return nil
}

// Complete reports the first binding never written in any set.
func (s *Set) Complete() error {
	for i := range s.sets {
		for _, e := range s.Table.Entries {
			if !s.written[i][e.Binding] {
				return &WriteError{Table: s.Table, Binding: e.Binding, Err: fmt.Errorf("%w in set %d", ErrIncomplete, i)}
			}
		}
	}
	return nil
}

// Destroy releases the layout and the sets allocated from it.
func (s *Set) Destroy() {
	if s.layout != nil {
		s.layout.Destroy()
		s.layout = nil
	}
}
