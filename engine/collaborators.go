package engine

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/psm/model"
	"go.viam.com/psm/observation"
	"go.viam.com/psm/referenceframe"
)

// Transformer re-expresses an observation in another frame.
type Transformer interface {
	Transform(obj observation.Object, targetFrame string) (observation.Object, error)
}

// Archive reads recorded scene graphs and observations.
type Archive interface {
	SceneGraphs(ctx context.Context, path, topic string) ([]observation.SceneGraph, error)
	Objects(ctx context.Context, path, topic string) ([]observation.Object, error)
}

// ResultSink receives the scene list at the end of every cycle.
type ResultSink interface {
	Publish(ctx context.Context, results []model.SceneIdentifier) error
}

// SceneLabeler is implemented by sinks that want to know the scenes before the first cycle.
type SceneLabeler interface {
	SetScenes(scenes []string) error
}

// FrameTransformer transforms observations through a static frame system.
type FrameTransformer struct {
	fs referenceframe.FrameSystem
}

// NewFrameTransformer returns a Transformer over fs.
func NewFrameTransformer(fs referenceframe.FrameSystem) *FrameTransformer {
	return &FrameTransformer{fs: fs}
}

// Transform implements Transformer.
func (ft *FrameTransformer) Transform(obj observation.Object, targetFrame string) (observation.Object, error) {
	if obj.Frame == "" {
		return observation.Object{}, errors.Errorf("observation %s has no frame", obj)
	}
	if obj.Pose == nil {
		return observation.Object{}, errors.Errorf("observation %s has no pose", obj)
	}
	tf, err := ft.fs.Transform(obj.PoseInFrame(), targetFrame)
	if err != nil {
		return observation.Object{}, err
	}
	return obj.WithPoseInFrame(tf), nil
}
