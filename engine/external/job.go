package external

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/synthcam/engine"
)

// Job is everything the bridge needs to render, written as job.json before the render command
// runs. Vectors are [x, y, z] arrays and matrices are row-major 4x4 arrays, the shapes renderer
// scripts consume directly.
type Job struct {
	Scene       string             `json:"scene"`
	Categories  []JobCategory      `json:"categories"`
	ObjectPoses []JobObjectPose    `json:"object_poses,omitempty"`
	Lights      []JobLight         `json:"lights"`
	Intrinsics  *engine.Intrinsics `json:"intrinsics,omitempty"`
	// Cameras are camera-to-world matrices in frame order.
	Cameras   [][4][4]float64 `json:"cam2world_matrices"`
	Passes    []engine.Pass   `json:"passes"`
	OutputDir string          `json:"output_dir"`
}

// JobCategory assigns the category_id custom property of an object.
type JobCategory struct {
	Object       string `json:"object"`
	Index        int    `json:"index"`
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
}

// JobObjectPose overwrites location and rotation_euler of an object.
type JobObjectPose struct {
	Object   string     `json:"object"`
	Index    int        `json:"index"`
	Location [3]float64 `json:"location"`
	Rotation [3]float64 `json:"rotation_euler"`
}

// JobLight is a light to create.
type JobLight struct {
	Type     engine.LightType `json:"type"`
	Location [3]float64       `json:"location"`
	Energy   float64          `json:"energy"`
}

// NewJobLight converts a light.
func NewJobLight(l engine.Light) JobLight {
	return JobLight{Type: l.Type, Location: vec(l.Location), Energy: l.Energy}
}

// Light converts back.
func (l JobLight) Light() engine.Light {
	return engine.Light{Type: l.Type, Location: r3.Vector{X: l.Location[0], Y: l.Location[1], Z: l.Location[2]}, Energy: l.Energy}
}

// MatrixArray flattens a 4x4 matrix into rows.
func MatrixArray(m mat.Matrix) ([4][4]float64, error) {
	var out [4][4]float64
	if r, c := m.Dims(); r != 4 || c != 4 {
		return out, errors.Errorf("expected a 4x4 matrix but got %dx%d", r, c)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out, nil
}

// Matrix turns rows back into a matrix.
func Matrix(rows [4][4]float64) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m.Set(i, j, rows[i][j])
		}
	}
	return m
}

// ReadJob reads a job file.
func ReadJob(path string) (*Job, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read job %q", path)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrapf(err, "cannot decode job %q", path)
	}
	return &job, nil
}

func writeJob(path string, job *Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode job")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "cannot write job %q", path)
}

func vec(v r3.Vector) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
