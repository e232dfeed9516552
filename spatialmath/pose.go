package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the world frame.
type Pose interface {
	Point() r3.Vector
	Orientation() *EulerAngles
}

type pose struct {
	point       r3.Vector
	orientation EulerAngles
}

// NewZeroPose returns a pose at (0,0,0) with no rotation.
func NewZeroPose() Pose {
	return &pose{}
}

// NewPose takes in a position and orientation and returns a Pose. A nil orientation means no rotation.
func NewPose(point r3.Vector, orientation *EulerAngles) Pose {
	if orientation == nil {
		return &pose{point: point}
	}
	return &pose{point: point, orientation: *orientation}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return NewPose(point, nil)
}

func (p *pose) Point() r3.Vector {
	return p.point
}

func (p *pose) Orientation() *EulerAngles {
	o := p.orientation
	return &o
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same,
// points are compared component wise to eps, orientations to 1e-5.
func PoseAlmostEqualEps(a, b Pose, eps float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), eps) &&
		OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincident will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
func PoseAlmostCoincident(a, b Pose) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), 1e-8)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

// TransformPoint maps a point expressed in the pose's local frame into the world frame.
func TransformPoint(p Pose, local r3.Vector) r3.Vector {
	return p.Orientation().Rotate(local).Add(p.Point())
}

// PoseToMatrix builds the 4x4 homogeneous local-to-world transformation matrix of a pose.
// For a camera this is the camera-to-world matrix a renderer registers a camera with.
func PoseToMatrix(p Pose) *mat.Dense {
	x, y, z := p.Orientation().Axes()
	t := p.Point()
	return mat.NewDense(4, 4, []float64{
		x.X, y.X, z.X, t.X,
		x.Y, y.Y, z.Y, t.Y,
		x.Z, y.Z, z.Z, t.Z,
		0, 0, 0, 1,
	})
}

// PoseFromMatrix is the inverse of PoseToMatrix. The matrix must be 4x4 with a bottom row of
// (0, 0, 0, 1) and a proper rotation in its upper left block.
func PoseFromMatrix(m mat.Matrix) (Pose, error) {
	rows, cols := m.Dims()
	if rows != 4 || cols != 4 {
		return nil, errors.Errorf("expected a 4x4 transformation matrix but got %dx%d", rows, cols)
	}
	if m.At(3, 0) != 0 || m.At(3, 1) != 0 || m.At(3, 2) != 0 || m.At(3, 3) != 1 {
		return nil, errors.New("transformation matrix bottom row must be (0, 0, 0, 1)")
	}
	rot := mat.DenseCopyOf(m).Slice(0, 3, 0, 3)
	if det := mat.Det(rot); math.Abs(det-1) > 1e-6 {
		return nil, errors.Errorf("upper 3x3 block is not a rotation, determinant is %f", det)
	}

	r00, r10, r20 := m.At(0, 0), m.At(1, 0), m.At(2, 0)
	r21, r22 := m.At(2, 1), m.At(2, 2)
	var ea EulerAngles
	if math.Abs(r20) >= 1-1e-12 {
		// gimbal lock, put everything on yaw
		ea.Pitch = -math.Copysign(math.Pi/2, r20)
		ea.Yaw = math.Atan2(-m.At(0, 1), m.At(1, 1))
	} else {
		ea.Pitch = -math.Asin(r20)
		ea.Roll = math.Atan2(r21, r22)
		ea.Yaw = math.Atan2(r10, r00)
	}
	return NewPose(r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}, &ea), nil
}

// CameraForward returns the world space direction a camera with the given pose looks at.
// Cameras look down their local -Z axis with local +Y up.
func CameraForward(p Pose) r3.Vector {
	_, _, z := p.Orientation().Axes()
	return z.Mul(-1)
}

// CameraUp returns the world space up direction of a camera with the given pose.
func CameraUp(p Pose) r3.Vector {
	_, y, _ := p.Orientation().Axes()
	return y
}
