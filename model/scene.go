package model

import (
	"math"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/psm/inference"
	"go.viam.com/psm/observation"
	"go.viam.com/psm/probability"
)

// Scene is one learnable scene: which object types it is made of, where its foreground objects
// sit, and how likely each background type is to be present.
type Scene struct {
	description string
	sceneType   string

	background    *probability.MappedTable
	foreground    []*Distribution
	foregroundAlg inference.Algorithm
	backgroundAlg inference.Algorithm

	// examples is the number of scene graphs the background counters were learned from.
	examples int
	dirty    bool
}

func newScene(description, sceneType string, fg, bg inference.Algorithm) (*Scene, error) {
	background, err := probability.NewMappedTable(inference.BackgroundRows)
	if err != nil {
		return nil, err
	}
	return &Scene{
		description:   description,
		sceneType:     sceneType,
		background:    background,
		foregroundAlg: fg,
		backgroundAlg: bg,
	}, nil
}

// Description returns the scene name.
func (s *Scene) Description() string {
	return s.description
}

// Type returns the scene type.
func (s *Scene) Type() string {
	return s.sceneType
}

// AlgorithmName returns the name of the foreground algorithm in use.
func (s *Scene) AlgorithmName() string {
	return s.foregroundAlg.Name()
}

// BackgroundTable implements inference.Scene.
func (s *Scene) BackgroundTable() *probability.MappedTable {
	return s.background
}

// ForegroundTerms implements inference.Scene.
func (s *Scene) ForegroundTerms() []inference.Term {
	return lo.Map(s.foreground, func(d *Distribution, _ int) inference.Term { return d })
}

func (s *Scene) distribution(objectType string) (*Distribution, bool) {
	return lo.Find(s.foreground, func(d *Distribution) bool { return d.Type() == objectType })
}

// Relevant returns whether objects of objectType carry information about this scene. Types the
// scene never learned are relevant once the default class holds counts.
func (s *Scene) Relevant(objectType string) bool {
	if _, ok := s.distribution(objectType); ok {
		return true
	}
	if s.background.Contains(objectType) {
		return true
	}
	_, ok, err := inference.Presence(s.background, probability.DefaultClass)
	return ok && err == nil
}

// learn adjusts the counters of the scene with one example. Positions of foreground types feed
// their distributions. Every other type in the example counts as present in the background, and
// every mapped background type missing from the example counts as absent. A type seen for the
// first time is counted absent from every earlier example, so the counters do not depend on the
// order examples arrive in. The default class then reads as a type seen in none of the examples,
// smoothed by one.
func (s *Scene) learn(graph observation.SceneGraph) error {
	for _, o := range graph.Objects() {
		if d, ok := s.distribution(o.Type); ok && o.Pose != nil {
			d.Add(o.Pose.Point())
		}
	}

	present := lo.Filter(graph.Types(), func(t string, _ int) bool {
		_, fg := s.distribution(t)
		return !fg
	})
	var err error
	for _, t := range present {
		if !s.background.Contains(t) && s.examples > 0 {
			multierr.AppendInto(&err, s.background.Increment(inference.RowAbsent, t, float64(s.examples)))
		}
		multierr.AppendInto(&err, s.background.Increment(inference.RowPresent, t, 1))
	}
	for _, t := range s.background.Types() {
		if t == probability.DefaultClass || lo.Contains(present, t) {
			continue
		}
		multierr.AppendInto(&err, s.background.Increment(inference.RowAbsent, t, 1))
	}
	s.dirty = true
	if err != nil {
		return err
	}
	s.examples++
	return multierr.Combine(
		s.background.SetDefaultClassCounter(inference.RowPresent, 1),
		s.background.SetDefaultClassCounter(inference.RowAbsent, float64(s.examples+1)),
	)
}

// countedExamples is the largest number of examples any background column was counted over.
func countedExamples(table *probability.MappedTable) int {
	examples := 0.
	for _, t := range table.Types() {
		if t == probability.DefaultClass {
			continue
		}
		present, errPresent := table.Count(inference.RowPresent, t)
		absent, errAbsent := table.Count(inference.RowAbsent, t)
		if errPresent != nil || errAbsent != nil {
			continue
		}
		examples = math.Max(examples, present+absent)
	}
	return int(math.Round(examples))
}

// refresh renormalizes and refits what learning touched since the last refresh.
func (s *Scene) refresh() error {
	if !s.dirty {
		return nil
	}
	s.background.Normalize()
	var err error
	for _, d := range s.foreground {
		multierr.AppendInto(&err, d.Fit())
	}
	s.dirty = false
	return err
}

// likelihood is the product of the foreground and background scores for evidence.
func (s *Scene) likelihood(evidence []observation.Object) (float64, error) {
	fg, err := s.foregroundAlg.ComputeLikelihood(evidence, s)
	if err != nil {
		return 0, err
	}
	bg, err := s.backgroundAlg.ComputeLikelihood(evidence, s)
	if err != nil {
		return 0, err
	}
	return fg * bg, nil
}
