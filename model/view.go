package model

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/psm/inference"
	"go.viam.com/psm/observation"
	"go.viam.com/psm/probability"
)

// Visualizer renders the learned state of the scenes. Views passed to Draw are copies that are
// only valid for the duration of the call.
type Visualizer interface {
	Draw(views []SceneView, targeting bool) error
}

// DistributionView is a read-only copy of one learned foreground distribution.
type DistributionView struct {
	Type       string
	Samples    int
	Mean       r3.Vector
	Covariance *mat.SymDense
	// Observed reports whether the evidence holds an object of this type.
	Observed bool
}

// BackgroundView is the learned presence probability of one background type.
type BackgroundView struct {
	Type     string
	Present  float64
	Observed bool
}

// SceneView is a read-only copy of one scene and its current result.
type SceneView struct {
	SceneIdentifier
	Distributions []DistributionView
	Background    []BackgroundView
	Evidence      []observation.Object
}

// InitializeVisualizer wires the visualizer that Draw hands views to. It can only be set once.
func (m *SceneModelDescription) InitializeVisualizer(v Visualizer) error {
	if m.visualizer != nil {
		return errors.New("visualizer already initialized")
	}
	if v == nil {
		return errors.New("visualizer is nil")
	}
	m.visualizer = v
	return nil
}

// SceneViews returns a copy of every scene with its current result.
func (m *SceneModelDescription) SceneViews() ([]SceneView, error) {
	results, err := m.GetSceneListWithProbabilities()
	if err != nil {
		return nil, err
	}
	views := make([]SceneView, 0, len(m.scenes))
	for i, s := range m.scenes {
		evidence := m.evidenceFor(s)
		observed := lo.SliceToMap(evidence, func(o observation.Object) (string, bool) { return o.Type, true })

		view := SceneView{SceneIdentifier: results[i], Evidence: evidence}
		for _, d := range s.foreground {
			view.Distributions = append(view.Distributions, DistributionView{
				Type:       d.Type(),
				Samples:    d.Samples(),
				Mean:       d.Mean(),
				Covariance: d.Covariance(),
				Observed:   observed[d.Type()],
			})
		}
		for _, t := range s.background.Types() {
			if t == probability.DefaultClass {
				continue
			}
			present, _, err := inference.Presence(s.background, t)
			if err != nil {
				return nil, err
			}
			view.Background = append(view.Background, BackgroundView{Type: t, Present: present, Observed: observed[t]})
		}
		views = append(views, view)
	}
	return views, nil
}

// Draw hands the current scene views to the visualizer, if one is initialized. In targeting mode
// the visualizer is expected to highlight what is still missing rather than what was found.
func (m *SceneModelDescription) Draw(targeting bool) error {
	if m.visualizer == nil {
		return nil
	}
	views, err := m.SceneViews()
	if err != nil {
		return err
	}
	return m.visualizer.Draw(views, targeting)
}
