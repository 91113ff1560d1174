package landing

import "math"

// Vec3 is a position or velocity in the local world frame (metres, metres per
// second). A NaN component means that axis is unconstrained: downstream
// trajectory execution keeps whatever it was doing on that axis. NaN survives
// the arithmetic in this package (anchor + NaN*offset stays NaN), which is
// exactly the contract the setpoint consumer relies on.
type Vec3 struct {
	X, Y, Z float32
}

// NaN32 returns the float32 quiet NaN used for unconstrained setpoint axes.
func NaN32() float32 {
	return float32(math.NaN())
}

// UnconstrainedVec3 returns a vector with every axis unconstrained.
func UnconstrainedVec3() Vec3 {
	n := NaN32()
	return Vec3{X: n, Y: n, Z: n}
}

// XYDistance returns the horizontal distance between two points.
func (v Vec3) XYDistance(o Vec3) float32 {
	dx := float64(v.X - o.X)
	dy := float64(v.Y - o.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}

// nextYaw returns the heading from one point toward another.
func nextYaw(from, to Vec3) float32 {
	return float32(math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X)))
}

// Setpoint is one published trajectory command.
type Setpoint struct {
	Position Vec3
	Velocity Vec3
	Yaw      float32
	YawSpeed float32
}

// SetpointSink receives the setpoint published at the end of every tick.
type SetpointSink func(position, velocity Vec3, yaw, yawSpeed float32)
