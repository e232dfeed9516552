package camring

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/synthcam/spatialmath"
)

// A pose file holds one camera per line as six space separated numbers, "x y z rx ry rz",
// in ring order with no header. Renderer side scripts read it line by line, so the layout
// must not change.

const poseFields = 6

// ParseError is returned when a pose file line is not six floats.
type ParseError struct {
	Path string
	// Line is 1-based, zero when the error is about the file as a whole.
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "pose file"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: malformed pose %q: %v", where, e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatPose renders a pose as a pose file line without the trailing newline.
func FormatPose(p Pose) string {
	fields := [poseFields]float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Rotation.Roll, p.Rotation.Pitch, p.Rotation.Yaw,
	}
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(formatFloat(f))
	}
	return sb.String()
}

// formatFloat writes the shortest representation that reads back exactly, in plain decimal
// between 1e-4 and 1e16 and in exponent form outside, the same split Python's repr makes.
func formatFloat(f float64) string {
	if abs := math.Abs(f); f == 0 || (abs >= 1e-4 && abs < 1e16) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParsePose parses a single pose file line.
func ParsePose(line string) (Pose, error) {
	fields := strings.Fields(line)
	if len(fields) != poseFields {
		return Pose{}, errors.Errorf("expected %d fields but got %d", poseFields, len(fields))
	}
	var values [poseFields]float64
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Pose{}, errors.Wrapf(err, "field %d", i+1)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Pose{}, errors.Errorf("field %d is not a finite number", i+1)
		}
		values[i] = v
	}
	return Pose{
		Position: r3.Vector{X: values[0], Y: values[1], Z: values[2]},
		Rotation: spatialmath.EulerAngles{Roll: values[3], Pitch: values[4], Yaw: values[5]},
	}, nil
}

// WritePoses writes the ring in pose file format.
func WritePoses(w io.Writer, ring Ring) error {
	bw := bufio.NewWriter(w)
	for _, p := range ring {
		if _, err := bw.WriteString(FormatPose(p)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WritePoseFile writes the ring to path, replacing anything already there. The parent
// directory must exist.
func WritePoseFile(path string, ring Ring) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create pose file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := WritePoses(f, ring); err != nil {
		return errors.Wrapf(err, "cannot write pose file %q", path)
	}
	return nil
}

// ReadPoses parses a pose file. Any line that is not exactly six finite floats, blank lines
// included, fails the whole read.
func ReadPoses(r io.Reader) (Ring, error) {
	return readPoses(r, "")
}

// ReadPoseFile opens and parses the pose file at path.
func ReadPoseFile(path string) (Ring, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open pose file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return readPoses(f, path)
}

func readPoses(r io.Reader, path string) (Ring, error) {
	var ring Ring
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := scanner.Text()
		p, err := ParsePose(text)
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNum, Text: text, Err: err}
		}
		ring = append(ring, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read pose file %q", path)
	}
	if len(ring) == 0 {
		return nil, &ParseError{Path: path, Err: errors.New("no camera poses")}
	}
	return ring, nil
}

// PlanToFile plans a ring and writes it to a pose file. Invalid parameters leave the file
// system untouched.
func PlanToFile(params Params, path string) (Ring, error) {
	ring, err := Plan(params)
	if err != nil {
		return nil, err
	}
	if err := WritePoseFile(path, ring); err != nil {
		return nil, err
	}
	return ring, nil
}
