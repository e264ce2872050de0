// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

import (
	"errors"
	"fmt"
)

// Buffer is a linear GPU allocation.
type Buffer interface {
	Destroyer

	// Size returns the size in bytes.
	Size() int64

	// Bytes returns the persistently mapped memory of a
	// host-visible buffer, or nil for device-local buffers.
	Bytes() []byte
}

// Image is a 2D GPU image together with its view.
type Image interface {
	Destroyer

	Name() string
	Format() Format
	Size() (width, height int)
}

// Sampler describes how shaders read sampled images.
type Sampler interface {
	Destroyer
}

// ShaderCode is a compiled shader module.
type ShaderCode interface {
	Destroyer
}

// Format is the type of an image or vertex data format.
type Format int

// Formats.
const (
	FormatUndefined Format = iota
	RGBA8Unorm
	BGRA8Unorm
	RGBA8Srgb
	BGRA8Srgb
	RGBA32Float
	RGB32Float
	RG32Float
)

// PixelSize returns the size in bytes of one texel.
func (f Format) PixelSize() int {
	switch f {
	case RGBA8Unorm, BGRA8Unorm, RGBA8Srgb, BGRA8Srgb:
		return 4
	case RGBA32Float:
		return 16
	case RGB32Float:
		return 12
	case RG32Float:
		return 8
	}
	return 0
}

// Usage is a bit set of the ways a resource may be used.
type Usage int

// Usages.
const (
	UCopySrc Usage = 1 << iota
	UCopyDst
	USampled
	UStorageImage
	UColorTarget
	UInputAttachment
	UUniform
	UStorage
	UVertex
	UIndex
	URayTracing
)

// BufferConfig describes a buffer to create.
type BufferConfig struct {
	// Size in bytes. When zero, len(Data) is used.
	Size  int64
	Usage Usage
	// Visible selects host-visible, coherent memory.
	Visible bool
	// Data is copied into the buffer after creation.
	Data []byte
}

// Validate checks the configuration.
func (c *BufferConfig) Validate() error {
	if c.Size == 0 {
		c.Size = int64(len(c.Data))
	}
	switch {
	case c.Size <= 0:
		return errors.New("gpu: buffer size must be positive")
	case int64(len(c.Data)) > c.Size:
		return fmt.Errorf("gpu: %d bytes of data do not fit a buffer of %d bytes", len(c.Data), c.Size)
	case c.Usage == 0:
		return errors.New("gpu: buffer usage not set")
	}
	return nil
}

// ImageConfig describes an image to create.
type ImageConfig struct {
	Name          string
	Width, Height int
	Format        Format
	Usage         Usage
	// Layout is the layout the image is left in after creation.
	Layout Layout
	// Data holds tightly packed texels uploaded before the final
	// transition. The image must allow UCopyDst.
	Data []byte
}

// Validate checks the configuration.
func (c *ImageConfig) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("gpu: image %q has invalid size %dx%d", c.Name, c.Width, c.Height)
	case c.Format == FormatUndefined:
		return fmt.Errorf("gpu: image %q format not set", c.Name)
	case c.Usage == 0:
		return fmt.Errorf("gpu: image %q usage not set", c.Name)
	case c.Data != nil && c.Usage&UCopyDst == 0:
		return fmt.Errorf("gpu: image %q has data but no copy-dst usage", c.Name)
	case c.Data != nil && len(c.Data) != c.Width*c.Height*c.Format.PixelSize():
		return fmt.Errorf("gpu: image %q expects %d bytes of data, got %d", c.Name, c.Width*c.Height*c.Format.PixelSize(), len(c.Data))
	}
	return nil
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// AddrMode is the type of sampler addressing modes.
type AddrMode int

// Addressing modes.
const (
	AClamp AddrMode = iota
	ARepeat
)

// SamplerConfig describes a sampler to create.
type SamplerConfig struct {
	Filter Filter
	Mode   AddrMode
}
