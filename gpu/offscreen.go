// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

import (
	"errors"
	"fmt"
)

// ErrCannotPresent is returned by targets without a presentation engine.
var ErrCannotPresent = errors.New("gpu: target cannot present")

// Offscreen is a Target backed by one owned image. Frames rendered
// into it end in LCopySrc so they can be read back.
type Offscreen struct {
	img Image
}

// NewOffscreenTarget creates an offscreen target of the given size and
// format. Use the format of the onscreen target when both are driven
// through the same render pass.
func NewOffscreenTarget(g GPU, width, height int, format Format) (*Offscreen, error) {
	img, err := g.NewImage(&ImageConfig{
		Name:   "offscreen",
		Width:  width,
		Height: height,
		Format: format,
		Usage:  UColorTarget | UCopySrc,
		Layout: LUndefined,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: offscreen target: %w", err)
	}
	return &Offscreen{img: img}, nil
}

func (o *Offscreen) Destroy()                  { o.img.Destroy() }
func (o *Offscreen) Images() []Image           { return []Image{o.img} }
func (o *Offscreen) Format() Format            { return o.img.Format() }
func (o *Offscreen) Size() (width, height int) { return o.img.Size() }
func (o *Offscreen) CanPresent() bool          { return false }
func (o *Offscreen) PresentLayout() Layout     { return LCopySrc }

func (o *Offscreen) Acquire(sem Semaphore) (int, error) { return 0, ErrCannotPresent }

func (o *Offscreen) Present(idx int, wait Semaphore) error { return ErrCannotPresent }
