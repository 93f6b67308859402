package observation

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/psm/referenceframe"
	"go.viam.com/psm/spatialmath"
)

func TestObject(t *testing.T) {
	cup := Object{Type: "Cup", ObservedID: "1", Frame: "camera", Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 1})}
	test.That(t, cup.Validate(), test.ShouldBeNil)
	test.That(t, cup.Key(), test.ShouldEqual, "Cup/1")
	test.That(t, cup.String(), test.ShouldEqual, "Cup(1)@camera")

	moved := cup.WithPoseInFrame(referenceframe.NewPoseInFrame("map", spatialmath.NewPoseFromPoint(r3.Vector{Y: 2})))
	test.That(t, moved.Frame, test.ShouldEqual, "map")
	test.That(t, moved.Pose.Point(), test.ShouldResemble, r3.Vector{Y: 2})
	test.That(t, cup.Frame, test.ShouldEqual, "camera")

	test.That(t, Object{Pose: spatialmath.NewZeroPose()}.Validate(), test.ShouldNotBeNil)
	test.That(t, Object{Type: "Cup"}.Validate(), test.ShouldNotBeNil)
	test.That(t, Object{Type: "Cup", Frame: "map"}.PoseInFrame().Pose(), test.ShouldNotBeNil)
}

func TestSceneGraphTypes(t *testing.T) {
	graph := SceneGraph{
		Identifier: "Kitchen",
		ObjectSets: []ObjectSet{
			{Objects: []Object{{Type: "Plate"}, {Type: "Cup"}}},
			{Objects: []Object{{Type: "Cup"}, {Type: "Fork"}}},
		},
	}
	test.That(t, graph.ObjectSets[1].Types(), test.ShouldResemble, []string{"Cup", "Fork"})
	test.That(t, graph.Types(), test.ShouldResemble, []string{"Cup", "Fork", "Plate"})
	test.That(t, len(graph.Objects()), test.ShouldEqual, 4)
	test.That(t, graph.Empty(), test.ShouldBeFalse)
	test.That(t, SceneGraph{Identifier: "Empty", ObjectSets: []ObjectSet{{}}}.Empty(), test.ShouldBeTrue)
}
