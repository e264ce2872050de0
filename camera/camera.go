// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package camera implements the pinhole camera model the ray tracing
// passes shoot primary rays from.
package camera

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"
	"github.com/xlab/linmath"
)

const (
	zNear = 0.01
	zFar  = 100

	// minCross is the smallest accepted length of cross(dir, WorldUp).
	minCross = 1e-6
)

// WorldUp is the fixed up axis the camera basis is derived from.
var WorldUp = math32.Vec3(0, 1, 0)

// ErrDegenerate is returned when the view direction is parallel to WorldUp.
var ErrDegenerate = errors.New("view direction is parallel to world up")

// FieldError reports an invalid or missing camera parameter.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("camera: %s: %s", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing or zero")

// Config holds the parameters of a camera.
type Config struct {
	Origin    math32.Vector3
	Direction math32.Vector3
	// FOV is the vertical field of view in degrees.
	FOV    float32
	Width  int
	Height int
}

// Validate checks the configuration for missing fields.
func (c *Config) Validate() error {
	switch {
	case c.FOV <= 0 || c.FOV >= 180:
		return &FieldError{Field: "vertical_fov", Err: errMissing}
	case c.Width <= 0:
		return &FieldError{Field: "width", Err: errMissing}
	case c.Height <= 0:
		return &FieldError{Field: "height", Err: errMissing}
	case c.Direction.Length() == 0:
		return &FieldError{Field: "view_direction", Err: errMissing}
	}
	return nil
}

// Basis is the image plane of a camera. Ray directions for film
// coordinates (u, v) in [0,1]² are TopLeft + u·Horizontal + v·Vertical - origin.
type Basis struct {
	Right      math32.Vector3
	Up         math32.Vector3
	TopLeft    math32.Vector3
	Horizontal math32.Vector3
	Vertical   math32.Vector3

	HalfWidth  float32
	HalfHeight float32
}

// Derive computes the image plane for a camera at origin looking
// along the unit vector dir.
func Derive(origin, dir math32.Vector3, fov float32, width, height int) (Basis, error) {
	cr := dir.Cross(WorldUp)
	if cr.Length() < minCross {
		return Basis{}, &FieldError{Field: "view_direction", Err: ErrDegenerate}
	}
	var b Basis
	b.Right = cr.Normal()
	b.Up = b.Right.Cross(dir).Normal()
	b.HalfHeight = math32.Tan(math32.DegToRad(fov) / 2)
	b.HalfWidth = b.HalfHeight * float32(width) / float32(height)
	b.TopLeft = origin.Add(b.Right.MulScalar(-b.HalfWidth)).Add(b.Up.MulScalar(b.HalfHeight)).Add(dir)
	b.Horizontal = b.Right.MulScalar(2 * b.HalfWidth)
	b.Vertical = b.Up.Negate().MulScalar(2 * b.HalfHeight)
	return b, nil
}

// Camera is a pinhole camera. Derived quantities are recomputed on
// every change of origin or direction.
type Camera struct {
	cfg   Config
	basis Basis
	prev  linmath.Mat4x4
}

// New returns a camera for cfg. The direction is normalized. The
// previous-frame view-projection starts equal to the current one.
func New(cfg Config) (*Camera, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Camera{cfg: cfg}
	if err := c.Update(cfg.Origin, cfg.Direction); err != nil {
		return nil, err
	}
	c.Snapshot()
	return c, nil
}

// Update moves the camera. The camera is left unchanged on error.
func (c *Camera) Update(origin, dir math32.Vector3) error {
	if dir.Length() == 0 {
		return &FieldError{Field: "view_direction", Err: errMissing}
	}
	dir = dir.Normal()
	b, err := Derive(origin, dir, c.cfg.FOV, c.cfg.Width, c.cfg.Height)
	if err != nil {
		return err
	}
	c.cfg.Origin, c.cfg.Direction, c.basis = origin, dir, b
	return nil
}

// Snapshot stores the current view-projection as the previous-frame one.
func (c *Camera) Snapshot() { c.prev = c.ViewProjection() }

// Previous returns the view-projection stored by the last Snapshot.
func (c *Camera) Previous() linmath.Mat4x4 { return c.prev }

func (c *Camera) Origin() math32.Vector3    { return c.cfg.Origin }
func (c *Camera) Direction() math32.Vector3 { return c.cfg.Direction }
func (c *Camera) Basis() Basis              { return c.basis }
func (c *Camera) Size() (width, height int) { return c.cfg.Width, c.cfg.Height }

// Aspect returns the film aspect ratio.
func (c *Camera) Aspect() float32 { return float32(c.cfg.Width) / float32(c.cfg.Height) }

// RayDir returns the unnormalized ray direction through film
// coordinates (u, v).
func (c *Camera) RayDir(u, v float32) math32.Vector3 {
	b := &c.basis
	return b.TopLeft.Add(b.Horizontal.MulScalar(u)).Add(b.Vertical.MulScalar(v)).Sub(c.cfg.Origin)
}

// ViewProjection returns projection × view with depth in [0,1].
func (c *Camera) ViewProjection() linmath.Mat4x4 {
	o, d := c.cfg.Origin, c.cfg.Direction
	eye := &linmath.Vec3{o.X, o.Y, o.Z}
	center := &linmath.Vec3{o.X + d.X, o.Y + d.Y, o.Z + d.Z}
	up := &linmath.Vec3{WorldUp.X, WorldUp.Y, WorldUp.Z}

	var view, proj, vp linmath.Mat4x4
	view.LookAt(eye, center, up)
	proj.Perspective(math32.DegToRad(c.cfg.FOV), c.Aspect(), zNear, zFar)
	// linmath maps depth to [-1,1].
	proj[2][2] = zFar / (zNear - zFar)
	proj[3][2] = -(zFar * zNear) / (zFar - zNear)
	vp.Mult(&proj, &view)
	return vp
}

// UniformSize is the byte size of UniformData.
const UniformSize = 32 * 4

// UniformData packs origin, top-left corner, horizontal and vertical
// extents as vec4 followed by the previous view-projection matrix.
func (c *Camera) UniformData() []float32 {
	b := &c.basis
	o := c.cfg.Origin
	data := []float32{
		o.X, o.Y, o.Z, 0,
		b.TopLeft.X, b.TopLeft.Y, b.TopLeft.Z, 0,
		b.Horizontal.X, b.Horizontal.Y, b.Horizontal.Z, 0,
		b.Vertical.X, b.Vertical.Y, b.Vertical.Z, 0,
	}
	return append(data, flatten(&c.prev)...)
}

// flatten returns m column by column.
func flatten(m *linmath.Mat4x4) []float32 {
	fs := make([]float32, 0, 16)
	for i := range m {
		fs = append(fs, m[i][:]...)
	}
	return fs
}
