package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestComposeRotatesPoint(t *testing.T) {
	// 90 degrees about z maps +x to +y.
	base := NewPose(r3.Vector{X: 10}, &R4AA{Theta: math.Pi / 2, RZ: 1})
	child := NewPoseFromPoint(r3.Vector{X: 5})

	composed := Compose(base, child)
	test.That(t, R3VectorAlmostEqual(composed.Point(), r3.Vector{X: 10, Y: 5}, 1e-9), test.ShouldBeTrue)
	test.That(t, OrientationAlmostEqual(composed.Orientation(), base.Orientation()), test.ShouldBeTrue)
}

func TestPoseInverse(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: -2, Z: 3}, &R4AA{Theta: 0.7, RX: 1, RY: 1})
	test.That(t, PoseAlmostEqual(Compose(p, PoseInverse(p)), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(PoseInverse(p), p), NewZeroPose()), test.ShouldBeTrue)

	q := NewPoseFromPoint(r3.Vector{Z: 4})
	test.That(t, PoseAlmostEqual(Compose(p, PoseBetween(p, q)), q), test.ShouldBeTrue)
}

func TestAxisAngleConversion(t *testing.T) {
	aa := NewR4AAFromDegrees(180, 0, 0, 2)
	q := aa.ToQuat()
	test.That(t, q.Real, test.ShouldAlmostEqual, 0)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, 1)

	back := QuatToR4AA(q)
	test.That(t, back.Theta, test.ShouldAlmostEqual, math.Pi)
	test.That(t, back.RZ, test.ShouldAlmostEqual, 1)

	test.That(t, (&R4AA{Theta: 1}).ToQuat(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())
}

func TestOrientationAlmostEqualFlip(t *testing.T) {
	q := quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}
	test.That(t, OrientationAlmostEqual(NewQuaternion(q), NewQuaternion(Flip(q))), test.ShouldBeTrue)
	test.That(t, OrientationAlmostEqual(NewQuaternion(q), NewZeroOrientation()), test.ShouldBeFalse)
	test.That(t, NewQuaternion(quat.Number{}).Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
}
