package referenceframe

import (
	"github.com/pkg/errors"

	spatial "go.viam.com/psm/spatialmath"
)

// Frame is a named coordinate system placed at a fixed pose relative to its parent.
type Frame interface {
	Name() string
	// Transform returns the pose of this frame in its parent frame.
	Transform() spatial.Pose
}

type staticFrame struct {
	name      string
	transform spatial.Pose
}

// NewStaticFrame creates a frame given a pose relative to its parent. The pose is fixed for all time.
// Pose is not allowed to be nil.
func NewStaticFrame(name string, pose spatial.Pose) (Frame, error) {
	if pose == nil {
		return nil, errors.New("pose is not allowed to be nil")
	}
	return &staticFrame{name, pose}, nil
}

// NewZeroStaticFrame creates a frame with no translation or orientation changes.
func NewZeroStaticFrame(name string) Frame {
	return &staticFrame{name, spatial.NewZeroPose()}
}

// Name is the name of the frame.
func (sf *staticFrame) Name() string {
	return sf.name
}

// Transform returns the pose associated with this static referenceframe.
func (sf *staticFrame) Transform() spatial.Pose {
	return sf.transform
}
