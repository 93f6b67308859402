package referenceframe

import (
	"sort"

	"github.com/pkg/errors"

	spatial "go.viam.com/psm/spatialmath"
)

// World is the string "world", but made into an exported constant.
const World = "world"

// FrameSystem represents a tree of frames connected to each other, allowing for transformations between any two frames.
type FrameSystem interface {
	// Name returns the name of this FrameSystem
	Name() string

	// World returns the frame corresponding to the root of the FrameSystem, from which other frames are defined with respect to
	World() Frame

	// FrameNames returns the names of all of the frames that exist in the FrameSystem, sorted
	FrameNames() []string

	// Frame returns the Frame in the FrameSystem with the given name, or nil
	Frame(name string) Frame

	// AddFrame inserts a given Frame into the FrameSystem as a child of the parent Frame
	AddFrame(frame, parent Frame) error

	// Parent returns the parent Frame for the given Frame in the FrameSystem
	Parent(frame Frame) (Frame, error)

	// TracebackFrame traces the parentage of the given frame up to the world, and returns the full list of frames in between.
	// The list will include both the query frame and the world referenceframe
	TracebackFrame(frame Frame) ([]Frame, error)

	// Transform takes in a pose and destination frame, and returns the pose expressed in the destination frame.
	Transform(object *PoseInFrame, dst string) (*PoseInFrame, error)
}

// simpleFrameSystem implements FrameSystem. It is a simple tree graph.
type simpleFrameSystem struct {
	name    string
	world   Frame
	frames  map[string]Frame
	parents map[Frame]Frame
}

// NewEmptyFrameSystem creates a frame system containing only the world frame.
func NewEmptyFrameSystem(name string) FrameSystem {
	worldFrame := NewZeroStaticFrame(World)
	return &simpleFrameSystem{name, worldFrame, map[string]Frame{}, map[Frame]Frame{}}
}

var errNoParent = errors.New("no parent")

func (sfs *simpleFrameSystem) Name() string {
	return sfs.name
}

// World returns the base world referenceframe.
func (sfs *simpleFrameSystem) World() Frame {
	return sfs.world
}

// Parent returns the parent frame of the input referenceframe. Errors if input is World.
func (sfs *simpleFrameSystem) Parent(frame Frame) (Frame, error) {
	if !sfs.frameExists(frame.Name()) {
		return nil, NewFrameMissingError(frame.Name())
	}
	if frame == sfs.world {
		return nil, errNoParent
	}
	return sfs.parents[frame], nil
}

func (sfs *simpleFrameSystem) frameExists(name string) bool {
	if name == World {
		return true
	}
	_, ok := sfs.frames[name]
	return ok
}

// Frame returns the frame given the name of the referenceframe. Returns nil if the frame is not found.
func (sfs *simpleFrameSystem) Frame(name string) Frame {
	if name == World {
		return sfs.world
	}
	return sfs.frames[name]
}

func (sfs *simpleFrameSystem) TracebackFrame(query Frame) ([]Frame, error) {
	if !sfs.frameExists(query.Name()) {
		return nil, NewFrameMissingError(query.Name())
	}
	if query == sfs.world {
		return []Frame{query}, nil
	}
	parents, err := sfs.TracebackFrame(sfs.parents[query])
	if err != nil {
		return nil, err
	}
	return append([]Frame{query}, parents...), nil
}

func (sfs *simpleFrameSystem) FrameNames() []string {
	frameNames := make([]string, 0, len(sfs.frames))
	for k := range sfs.frames {
		frameNames = append(frameNames, k)
	}
	sort.Strings(frameNames)
	return frameNames
}

// AddFrame sets an already defined Frame into the system.
func (sfs *simpleFrameSystem) AddFrame(frame, parent Frame) error {
	if parent == nil {
		return NewParentFrameMissingError()
	}
	if !sfs.frameExists(parent.Name()) {
		return errors.Wrap(NewFrameMissingError(parent.Name()), "parent")
	}
	if sfs.frameExists(frame.Name()) {
		return NewFrameAlreadyExistsError(frame.Name())
	}
	sfs.frames[frame.Name()] = frame
	sfs.parents[frame] = parent
	return nil
}

func (sfs *simpleFrameSystem) Transform(object *PoseInFrame, dst string) (*PoseInFrame, error) {
	src := object.FrameName()
	if src == dst {
		return object, nil
	}
	if !sfs.frameExists(src) {
		return nil, errors.Errorf("source frame %s not found in FrameSystem", src)
	}
	if !sfs.frameExists(dst) {
		return nil, errors.Errorf("destination frame %s not found in FrameSystem", dst)
	}
	return object.Transform(sfs.transformFromParent(sfs.Frame(src), sfs.Frame(dst))), nil
}

// Returns the relative pose between the source and the destination frame.
func (sfs *simpleFrameSystem) transformFromParent(src, dst Frame) *PoseInFrame {
	dstToWorld := sfs.composeTransforms(dst)
	srcToWorld := sfs.composeTransforms(src)
	// transform from source to world, world to target parent
	return &PoseInFrame{dst.Name(), spatial.Compose(spatial.PoseInverse(dstToWorld), srcToWorld)}
}

// compose the poses from the input frame to the world referenceframe.
func (sfs *simpleFrameSystem) composeTransforms(frame Frame) spatial.Pose {
	q := spatial.NewZeroPose()
	for sfs.parents[frame] != nil { // stop once you reach world node
		// Transform() gives FROM q TO parent. Add new transforms to the left.
		q = spatial.Compose(frame.Transform(), q)
		frame = sfs.parents[frame]
	}
	return q
}
