// Package observation defines the object observations and example scene graphs that flow into the
// scene model.
package observation

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/psm/referenceframe"
	"go.viam.com/psm/spatialmath"
)

// Object is a single labeled observation of an object: what it is, which instance it is, where it
// was seen and when.
type Object struct {
	Type       string
	ObservedID string
	Pose       spatialmath.Pose
	Frame      string
	Timestamp  time.Time
	Confidence float64
}

// Key identifies the physical instance an observation refers to. Two observations with the same key
// describe the same object at different times.
func (o Object) Key() string {
	return o.Type + "/" + o.ObservedID
}

// PoseInFrame returns the observed pose tagged with the frame it was observed in.
func (o Object) PoseInFrame() *referenceframe.PoseInFrame {
	pose := o.Pose
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	return referenceframe.NewPoseInFrame(o.Frame, pose)
}

// WithPoseInFrame returns a copy of the object re-expressed in p's frame.
func (o Object) WithPoseInFrame(p *referenceframe.PoseInFrame) Object {
	o.Pose = p.Pose()
	o.Frame = p.FrameName()
	return o
}

// Validate returns an error if the object cannot be used as evidence.
func (o Object) Validate() error {
	if o.Type == "" {
		return errors.New("object has no type")
	}
	if o.Pose == nil {
		return errors.Errorf("object %q has no pose", o.Type)
	}
	return nil
}

func (o Object) String() string {
	return fmt.Sprintf("%s(%s)@%s", o.Type, o.ObservedID, o.Frame)
}
