// Copyright (c) 2025 Cubyte.online under the AGPL License

package camera

import "cogentcore.org/core/math32"

// Direction of a fly movement.
type Direction int

const (
	Forward Direction = iota
	Back
	Left
	Right
)

// MoveStep is the distance covered by one movement key press.
const MoveStep = 0.1

// Move returns the origin after moving amount along dir. The camera
// itself is not changed; pass the result to Update.
func (c *Camera) Move(dir Direction, amount float32) math32.Vector3 {
	o := c.cfg.Origin
	switch dir {
	case Forward:
		return o.Add(c.cfg.Direction.MulScalar(amount))
	case Back:
		return o.Sub(c.cfg.Direction.MulScalar(amount))
	case Right:
		return o.Add(c.basis.Right.MulScalar(amount))
	case Left:
		return o.Sub(c.basis.Right.MulScalar(amount))
	}
	return o
}

// maxPitch bounds |dot(dir, WorldUp)| so the basis never degenerates.
const maxPitch = 0.99

// Rotate returns the view direction after a yaw of dx and a pitch of
// dy radians. A pitch that would align the view with WorldUp is
// dropped and only the yaw is applied.
func (c *Camera) Rotate(dx, dy float32) math32.Vector3 {
	dir := c.cfg.Direction.MulQuat(math32.NewQuatAxisAngle(WorldUp.Negate(), dx)).Normal()
	right := dir.Cross(WorldUp).Normal()
	pitched := dir.MulQuat(math32.NewQuatAxisAngle(right, dy)).Normal()
	if math32.Abs(pitched.Dot(WorldUp)) > maxPitch {
		return dir
	}
	return pitched
}
