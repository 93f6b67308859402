package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	spatial "go.viam.com/psm/spatialmath"
)

// world -> map (offset 100 on x) -> camera (rotated 90 degrees about z, offset 10 on z).
func makeTestFS(t *testing.T) FrameSystem {
	t.Helper()
	fs := NewEmptyFrameSystem("test")

	mapFrame, err := NewStaticFrame("map", spatial.NewPoseFromPoint(r3.Vector{X: 100}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fs.AddFrame(mapFrame, fs.World()), test.ShouldBeNil)

	camera, err := NewStaticFrame("camera", spatial.NewPose(r3.Vector{Z: 10}, &spatial.R4AA{Theta: math.Pi / 2, RZ: 1}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fs.AddFrame(camera, mapFrame), test.ShouldBeNil)
	return fs
}

func TestFrameSystemStructure(t *testing.T) {
	fs := makeTestFS(t)
	test.That(t, fs.FrameNames(), test.ShouldResemble, []string{"camera", "map"})
	test.That(t, fs.Frame("nope"), test.ShouldBeNil)

	chain, err := fs.TracebackFrame(fs.Frame("camera"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(chain), test.ShouldEqual, 3)
	test.That(t, chain[2].Name(), test.ShouldEqual, World)

	parent, err := fs.Parent(fs.Frame("camera"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parent.Name(), test.ShouldEqual, "map")
	_, err = fs.Parent(fs.World())
	test.That(t, err, test.ShouldNotBeNil)

	err = fs.AddFrame(NewZeroStaticFrame("map"), fs.World())
	test.That(t, err, test.ShouldNotBeNil)
	err = fs.AddFrame(NewZeroStaticFrame("orphan"), NewZeroStaticFrame("ghost"))
	test.That(t, err, test.ShouldNotBeNil)
	err = fs.AddFrame(NewZeroStaticFrame("orphan"), nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewStaticFrame("bad", nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFrameSystemTransform(t *testing.T) {
	fs := makeTestFS(t)

	// A point 1 along the camera's x axis sits 1 along the map's y axis.
	seen := NewPoseInFrame("camera", spatial.NewPoseFromPoint(r3.Vector{X: 1}))
	inMap, err := fs.Transform(seen, "map")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inMap.FrameName(), test.ShouldEqual, "map")
	test.That(t, spatial.R3VectorAlmostEqual(inMap.Pose().Point(), r3.Vector{Y: 1, Z: 10}, 1e-9), test.ShouldBeTrue)

	inWorld, err := fs.Transform(seen, World)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(inWorld.Pose().Point(), r3.Vector{X: 100, Y: 1, Z: 10}, 1e-9), test.ShouldBeTrue)

	back, err := fs.Transform(inWorld, "camera")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.AlmostEqual(seen), test.ShouldBeTrue)

	same, err := fs.Transform(seen, "camera")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, seen)

	_, err = fs.Transform(NewPoseInFrame("lidar", spatial.NewZeroPose()), "map")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = fs.Transform(seen, "lidar")
	test.That(t, err, test.ShouldNotBeNil)
}
