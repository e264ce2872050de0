// Copyright (c) 2025 Cubyte.online under the AGPL License

package scene

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math/rand/v2"

	"cogentcore.org/core/base/iox/imagex"
)

// NoiseSize is the side of the generated noise texture.
const NoiseSize = 64

// LoadNoise returns the rotation noise texture used by ambient
// occlusion. An empty path or an unreadable file falls back to
// generated noise.
func LoadNoise(path string) *image.RGBA {
	if path == "" {
		return GenerateNoise(NoiseSize, 1)
	}
	img, _, err := imagex.Open(path)
	if err != nil {
		slog.Warn(fmt.Sprintf("scene: blue noise %s: %v, using generated noise", path, err))
		return GenerateNoise(NoiseSize, 1)
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// GenerateNoise returns a size×size texture of uniform noise derived
// from seed.
func GenerateNoise(size int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		v := rng.Uint32()
		img.Pix[i] = uint8(v)
		img.Pix[i+1] = uint8(v >> 8)
		img.Pix[i+2] = uint8(v >> 16)
		img.Pix[i+3] = 0xff
	}
	return img
}
