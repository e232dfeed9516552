// Package scene describes the objects a renderer loaded from a scene file and how they are
// labeled for segmentation.
package scene

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"

	"go.viam.com/synthcam/spatialmath"
)

// Object is an object loaded from a scene file.
type Object struct {
	// Index is the load order of the object, renderers use it as a handle.
	Index    int
	Name     string
	Category Category
	Pose     spatialmath.Pose
}

// Category is the label attached to an object. Segmentation and COCO output group pixels by it.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// String returns a human readable category.
func (c Category) String() string {
	return fmt.Sprintf("%d:%s", c.ID, c.Name)
}

// Relocation moves a single named object before any camera is registered.
type Relocation struct {
	ObjectName string                  `json:"object"`
	Position   r3.Vector               `json:"position"`
	Rotation   spatialmath.EulerAngles `json:"rotation"`
}

// Pose returns the pose the object is moved to.
func (r *Relocation) Pose() spatialmath.Pose {
	rot := r.Rotation
	return spatialmath.NewPose(r.Position, &rot)
}

// LookupError is returned when a name does not resolve to exactly one object.
type LookupError struct {
	Name    string
	Matches int
}

func (e *LookupError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no object named %q in scene", e.Name)
	}
	return fmt.Sprintf("object name %q is ambiguous, %d objects match", e.Name, e.Matches)
}

// FindUnique returns the single object with the given name.
func FindUnique(objects []Object, name string) (Object, error) {
	matches := lo.Filter(objects, func(obj Object, _ int) bool {
		return obj.Name == name
	})
	if len(matches) != 1 {
		return Object{}, &LookupError{Name: name, Matches: len(matches)}
	}
	return matches[0], nil
}
