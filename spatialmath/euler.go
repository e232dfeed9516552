// Package spatialmath defines spatial mathematical operations
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// See here for a thorough explanation: https://en.wikipedia.org/wiki/Euler_angles
// Basic explanation: a rotation is split into three elementary rotations about the fixed world
// axes, first Roll about X, then Pitch about Y, and last Yaw about Z. As a rotation matrix that is
// R = Rz(yaw) * Ry(pitch) * Rx(roll). This is the "XYZ" mode a renderer applies to an object's
// rotation_euler, so the angles stored in a pose file can be handed to it verbatim.

// EulerAngles are three angles (in radians) used to represent the rotation of an object in 3D Euclidean space.
type EulerAngles struct {
	Roll  float64 `json:"roll"`  // phi, about X
	Pitch float64 `json:"pitch"` // theta, about Y
	Yaw   float64 `json:"yaw"`   // psi, about Z
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{Roll: 0, Pitch: 0, Yaw: 0}
}

// EulerAngles returns the orientation in Euler angle representation.
func (ea *EulerAngles) EulerAngles() *EulerAngles {
	return ea
}

// Quaternion returns orientation in quaternion representation.
func (ea *EulerAngles) Quaternion() quat.Number {
	cr := math.Cos(ea.Roll * 0.5)
	sr := math.Sin(ea.Roll * 0.5)
	cp := math.Cos(ea.Pitch * 0.5)
	sp := math.Sin(ea.Pitch * 0.5)
	cy := math.Cos(ea.Yaw * 0.5)
	sy := math.Sin(ea.Yaw * 0.5)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// RotationMatrix returns the 3x3 rotation matrix R = Rz * Ry * Rx.
func (ea *EulerAngles) RotationMatrix() *mat.Dense {
	x, y, z := ea.Axes()
	return mat.NewDense(3, 3, []float64{
		x.X, y.X, z.X,
		x.Y, y.Y, z.Y,
		x.Z, y.Z, z.Z,
	})
}

// Axes returns the columns of the rotation matrix, i.e. where the local X, Y and Z unit
// vectors end up in the world frame.
func (ea *EulerAngles) Axes() (x, y, z r3.Vector) {
	cx, sx := math.Cos(ea.Roll), math.Sin(ea.Roll)
	cy, sy := math.Cos(ea.Pitch), math.Sin(ea.Pitch)
	cz, sz := math.Cos(ea.Yaw), math.Sin(ea.Yaw)

	x = r3.Vector{X: cz * cy, Y: sz * cy, Z: -sy}
	y = r3.Vector{X: cz*sy*sx - sz*cx, Y: sz*sy*sx + cz*cx, Z: cy * sx}
	z = r3.Vector{X: cz*sy*cx + sz*sx, Y: sz*sy*cx - cz*sx, Z: cy * cx}
	return x, y, z
}

// Rotate applies the rotation to a vector.
func (ea *EulerAngles) Rotate(v r3.Vector) r3.Vector {
	x, y, z := ea.Axes()
	return x.Mul(v.X).Add(y.Mul(v.Y)).Add(z.Mul(v.Z))
}

// QuatToEulerAngles converts a unit quaternion to the XYZ euler angles it represents.
// Pitch is clamped to [-pi/2, pi/2]; at gimbal lock all of the remaining rotation is put on yaw.
func QuatToEulerAngles(q quat.Number) *EulerAngles {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1-1e-12 {
		return &EulerAngles{
			Roll:  0,
			Pitch: math.Copysign(math.Pi/2, sinp),
			Yaw:   -2 * math.Copysign(1, sinp) * math.Atan2(x, w),
		}
	}
	return &EulerAngles{
		Roll:  math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		Pitch: math.Asin(sinp),
		Yaw:   math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)),
	}
}

// QuaternionAlmostEqual is an equality test for all the float components of two quaternions. Quaternions have double
// coverage, q and -q represent the same rotation, so both signs are accepted.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	same := math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
	if same {
		return true
	}
	return math.Abs(a.Real+b.Real) < tol &&
		math.Abs(a.Imag+b.Imag) < tol &&
		math.Abs(a.Jmag+b.Jmag) < tol &&
		math.Abs(a.Kmag+b.Kmag) < tol
}

// OrientationAlmostEqual will return a bool describing whether 2 euler angles describe approximately the same rotation.
func OrientationAlmostEqual(o1, o2 *EulerAngles) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}
