package config

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/psm/referenceframe"
	"go.viam.com/psm/spatialmath"
)

// Translation is the offset of a frame from its parent.
type Translation struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
	Z float64 `mapstructure:"z"`
}

// Orientation is the rotation of a frame relative to its parent, as an axis and a rotation of TH
// degrees around it.
type Orientation struct {
	X  float64 `mapstructure:"x"`
	Y  float64 `mapstructure:"y"`
	Z  float64 `mapstructure:"z"`
	TH float64 `mapstructure:"th"`
}

// FrameConfig the pose and parent of the frame that will be created.
type FrameConfig struct {
	Parent      string      `mapstructure:"parent"`
	Translation Translation `mapstructure:"translation"`
	Orientation Orientation `mapstructure:"orientation"`
}

// Validate ensures the frame names a parent.
func (f FrameConfig) Validate(path string) error {
	if f.Parent == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "parent")
	}
	return nil
}

// Pose returns the frame's pose in its parent.
func (f FrameConfig) Pose() spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: f.Translation.X, Y: f.Translation.Y, Z: f.Translation.Z},
		spatialmath.NewR4AAFromDegrees(f.Orientation.TH, f.Orientation.X, f.Orientation.Y, f.Orientation.Z),
	)
}

// FrameSystem builds the static frame tree. Frames may be listed in any order; every parent must be
// the world frame or another configured frame.
func (c *Config) FrameSystem() (referenceframe.FrameSystem, error) {
	fs := referenceframe.NewEmptyFrameSystem("psm")

	pending := make([]string, 0, len(c.Frames))
	for name := range c.Frames {
		pending = append(pending, name)
	}
	sort.Strings(pending)

	for len(pending) > 0 {
		var deferred []string
		for _, name := range pending {
			cfg := c.Frames[name]
			parent := fs.Frame(cfg.Parent)
			if parent == nil {
				deferred = append(deferred, name)
				continue
			}
			frame, err := referenceframe.NewStaticFrame(name, cfg.Pose())
			if err != nil {
				return nil, err
			}
			if err := fs.AddFrame(frame, parent); err != nil {
				return nil, errors.Wrapf(err, "cannot add frame %q", name)
			}
		}
		if len(deferred) == len(pending) {
			return nil, errors.Wrap(
				referenceframe.NewFrameMissingError(c.Frames[deferred[0]].Parent),
				fmt.Sprintf("frames %v are not connected to %s", deferred, referenceframe.World),
			)
		}
		pending = deferred
	}
	return fs, nil
}
