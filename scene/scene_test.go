package scene

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/synthcam/spatialmath"
)

func objects(names ...string) []Object {
	objs := make([]Object, len(names))
	for i, name := range names {
		objs[i] = Object{Index: i, Name: name, Pose: spatialmath.NewZeroPose()}
	}
	return objs
}

func TestTagByIndex(t *testing.T) {
	tagged := Tag(objects("Suzanne", "Cube", "Plane"), TagByIndex)
	test.That(t, tagged[0].Category, test.ShouldResemble, Category{ID: 1, Name: "Suzanne"})
	test.That(t, tagged[1].Category, test.ShouldResemble, Category{ID: 2, Name: "Cube"})
	test.That(t, tagged[2].Category, test.ShouldResemble, Category{ID: 3, Name: "Plane"})
}

func TestTagByNamePrefix(t *testing.T) {
	tagged := Tag(objects("rock_1", "fish_1", "rock_2", "x", "fish_2"), TagByNamePrefix)
	test.That(t, tagged[0].Category, test.ShouldResemble, Category{ID: 1, Name: "rock"})
	test.That(t, tagged[1].Category, test.ShouldResemble, Category{ID: 2, Name: "fish"})
	test.That(t, tagged[2].Category, test.ShouldResemble, Category{ID: 1, Name: "rock"})
	test.That(t, tagged[3].Category, test.ShouldResemble, Category{ID: 3, Name: ""})
	test.That(t, tagged[4].Category, test.ShouldResemble, Category{ID: 2, Name: "fish"})
	test.That(t, tagged[2].Category.String(), test.ShouldEqual, "1:rock")
}

func TestTagDoesNotMutate(t *testing.T) {
	objs := objects("a_1")
	_ = Tag(objs, TagByIndex)
	test.That(t, objs[0].Category, test.ShouldResemble, Category{})
}

func TestTaggerByName(t *testing.T) {
	for _, name := range []string{"", TaggerIndex, TaggerNamePrefix} {
		tagger, err := TaggerByName(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tagger, test.ShouldNotBeNil)
	}
	_, err := TaggerByName("random")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFindUnique(t *testing.T) {
	objs := objects("Suzanne", "Cube", "Cube")

	obj, err := FindUnique(objs, "Suzanne")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obj.Index, test.ShouldEqual, 0)

	_, err = FindUnique(objs, "Cube")
	var lookupErr *LookupError
	test.That(t, errors.As(err, &lookupErr), test.ShouldBeTrue)
	test.That(t, lookupErr.Matches, test.ShouldEqual, 2)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ambiguous")

	_, err = FindUnique(objs, "Torus")
	test.That(t, errors.As(err, &lookupErr), test.ShouldBeTrue)
	test.That(t, lookupErr.Matches, test.ShouldEqual, 0)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no object named")
}

func TestRelocationPose(t *testing.T) {
	reloc := &Relocation{
		ObjectName: "Suzanne",
		Position:   r3.Vector{X: 1, Y: 2, Z: 3},
		Rotation:   spatialmath.EulerAngles{Roll: 1, Pitch: 1},
	}
	p := reloc.Pose()
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, p.Orientation().Roll, test.ShouldEqual, 1.)
	test.That(t, p.Orientation().Yaw, test.ShouldEqual, 0.)
	test.That(t, p.Orientation().Pitch, test.ShouldEqual, 1.)
}
