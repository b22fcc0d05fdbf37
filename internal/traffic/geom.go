package traffic

import "math"

// Vec3 is a point or direction in world space. Lanes lie in the X/Z plane
// (Y up); the corridor travel axis is normally +Z.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns the unit vector in v's direction, or the zero vector
// if v is (near) zero length.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func (v Vec3) DistTo(o Vec3) float64 {
	return v.Sub(o).Len()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// moveToward steps cur linearly toward target by at most maxDelta.
// Linear ramp, not exponential: bounded jerk and a deterministic
// time-to-target.
func moveToward(cur, target, maxDelta float64) float64 {
	if maxDelta < 0 {
		maxDelta = 0
	}
	d := target - cur
	if math.Abs(d) <= maxDelta {
		return target
	}
	if d > 0 {
		return cur + maxDelta
	}
	return cur - maxDelta
}
