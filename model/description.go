// Package model holds the set of known scenes, learns them from example scene graphs and scores
// them against the evidence observed so far.
package model

import (
	"encoding/xml"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/psm/inference"
	"go.viam.com/psm/logging"
	"go.viam.com/psm/observation"
	"go.viam.com/psm/probability"
	"go.viam.com/psm/utils"
)

// DefaultAlgorithm is the foreground algorithm used when neither the caller nor the model file
// names one.
const DefaultAlgorithm = inference.MultipliedName

var (
	// ErrUnknownScene is returned for a scene graph whose identifier matches no scene of the model.
	ErrUnknownScene = errors.New("unknown scene")
	// ErrNotLoaded is returned by operations that need a loaded model.
	ErrNotLoaded = errors.New("scene model not loaded")
)

// State is the lifecycle state of a SceneModelDescription.
type State int

// Lifecycle states. A model is Unloaded until a model document is read, Loaded until the first
// UpdateModel and Running afterwards.
const (
	Unloaded State = iota
	Loaded
	Running
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// SceneIdentifier is the result for one scene in one inference cycle.
type SceneIdentifier struct {
	Description string
	Type        string
	Likelihood  float64
	Prior       float64
}

// SceneModelDescription owns every known scene. Evidence and example graphs are routed to the
// scenes they concern; UpdateModel applies what was buffered since the previous call.
//
// A SceneModelDescription is not safe for concurrent use. A single goroutine drives it.
type SceneModelDescription struct {
	logger logging.Logger
	state  State

	scenes      []*Scene
	priors      *probability.MappedTable
	priorsDirty bool

	pending  []observation.Object
	evidence map[string]observation.Object

	visualizer Visualizer
}

// NewSceneModelDescription returns an unloaded model.
func NewSceneModelDescription(logger logging.Logger) *SceneModelDescription {
	return &SceneModelDescription{
		logger:   logger,
		evidence: map[string]observation.Object{},
	}
}

// State returns the lifecycle state.
func (m *SceneModelDescription) State() State {
	return m.state
}

// LoadModelFromFile reads a model document from path. See LoadModel.
func (m *SceneModelDescription) LoadModelFromFile(path, algorithmName string) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "cannot open scene model")
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return errors.Wrapf(m.LoadModel(f, algorithmName), "scene model %q", path)
}

// LoadModel reads a model document and builds every scene in it. A non-empty algorithmName
// overrides the algorithm each scene names.
func (m *SceneModelDescription) LoadModel(r io.Reader, algorithmName string) error {
	if m.state != Unloaded {
		return errors.Errorf("scene model already %s", m.state)
	}
	var doc modelDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, "cannot decode scene model")
	}
	if len(doc.Scenes) == 0 {
		return errors.New("scene model has no scenes")
	}

	background, err := inference.New(inference.PowerSetBackgroundName)
	if err != nil {
		return err
	}

	scenes := make([]*Scene, 0, len(doc.Scenes))
	for _, node := range doc.Scenes {
		scene, err := sceneFromNode(node, algorithmName, background)
		if err != nil {
			return err
		}
		if lo.ContainsBy(scenes, func(s *Scene) bool { return s.description == scene.description }) {
			return errors.Errorf("duplicate scene %q", scene.description)
		}
		scenes = append(scenes, scene)
	}

	priors, err := probability.NewMappedTable(1)
	if err != nil {
		return err
	}
	if doc.Priors != nil {
		if priors, err = probability.NewMappedTableFromNode(*doc.Priors); err != nil {
			return errors.Wrap(err, "priors")
		}
		if priors.RowCount() != 1 {
			return errors.Errorf("priors must have 1 row, got %d", priors.RowCount())
		}
	}
	for _, s := range scenes {
		priors.AddColumn(s.description)
	}
	priors.Normalize()

	m.scenes = scenes
	m.priors = priors
	m.state = Loaded
	m.logger.Infow("loaded scene model", "scenes", m.Scenes())
	return nil
}

func sceneFromNode(node sceneNode, algorithmName string, background inference.Algorithm) (*Scene, error) {
	if node.Description == "" {
		return nil, errors.New("scene without a description")
	}
	name := lo.CoalesceOrEmpty(algorithmName, node.Algorithm, DefaultAlgorithm)
	fg, err := inference.NewForeground(name)
	if err != nil {
		return nil, errors.Wrapf(err, "scene %q", node.Description)
	}
	scene, err := newScene(node.Description, node.Type, fg, background)
	if err != nil {
		return nil, err
	}

	if node.Background.Rows != 0 || len(node.Background.Entries) != 0 {
		if scene.background, err = probability.NewMappedTableFromNode(node.Background); err != nil {
			return nil, errors.Wrapf(err, "background of scene %q", node.Description)
		}
		if scene.background.RowCount() != inference.BackgroundRows {
			return nil, errors.Errorf("background of scene %q has %d rows, want %d",
				node.Description, scene.background.RowCount(), inference.BackgroundRows)
		}
	}
	if node.Examples < 0 {
		return nil, errors.Errorf("negative example count in scene %q", node.Description)
	}
	scene.examples = max(node.Examples, countedExamples(scene.background))

	for _, fn := range node.Foreground {
		if fn.Type == "" {
			return nil, errors.Errorf("foreground of scene %q has an entry without a type", node.Description)
		}
		if _, ok := scene.distribution(fn.Type); ok {
			return nil, errors.Errorf("duplicate foreground type %q in scene %q", fn.Type, node.Description)
		}
		if fn.Samples < 0 {
			return nil, errors.Errorf("negative sample count for %q in scene %q", fn.Type, node.Description)
		}
		d := distributionFromNode(fn)
		if err := d.Fit(); err != nil {
			return nil, errors.Wrapf(err, "scene %q", node.Description)
		}
		scene.foreground = append(scene.foreground, d)
	}
	return scene, nil
}

// Save writes the model document, including everything learned so far.
func (m *SceneModelDescription) Save(w io.Writer) error {
	if m.state == Unloaded {
		return ErrNotLoaded
	}
	priors := m.priors.ToNode()
	doc := modelDocument{Priors: &priors}
	for _, s := range m.scenes {
		doc.Scenes = append(doc.Scenes, sceneNode{
			Description: s.description,
			Type:        s.sceneType,
			Algorithm:   s.AlgorithmName(),
			Examples:    s.examples,
			Background:  s.background.ToNode(),
			Foreground:  lo.Map(s.foreground, func(d *Distribution, _ int) distributionNode { return d.toNode() }),
		})
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "cannot encode scene model")
	}
	return enc.Flush()
}

// SaveModelToFile writes the model document to path. A partially written file is removed.
func (m *SceneModelDescription) SaveModelToFile(path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create scene model file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
		if err != nil {
			utils.RemoveFileNoError(path)
		}
	}()
	return m.Save(f)
}

// Scenes returns the scene descriptions in model order.
func (m *SceneModelDescription) Scenes() []string {
	return lo.Map(m.scenes, func(s *Scene, _ int) string { return s.description })
}

// Scene returns the scene with the given description.
func (m *SceneModelDescription) Scene(description string) (*Scene, bool) {
	return lo.Find(m.scenes, func(s *Scene) bool { return s.description == description })
}

// IntegrateEvidence buffers an observation. It takes effect on the next UpdateModel.
func (m *SceneModelDescription) IntegrateEvidence(obj observation.Object) error {
	if m.state == Unloaded {
		return ErrNotLoaded
	}
	if err := obj.Validate(); err != nil {
		return err
	}
	m.pending = append(m.pending, obj)
	return nil
}

// IntegrateSceneGraph learns from one example of a scene. The counters change immediately;
// probabilities and distributions follow on the next UpdateModel.
func (m *SceneModelDescription) IntegrateSceneGraph(graph observation.SceneGraph) error {
	if m.state == Unloaded {
		return ErrNotLoaded
	}
	scene, ok := m.Scene(graph.Identifier)
	if !ok {
		return errors.Wrapf(ErrUnknownScene, "%q", graph.Identifier)
	}
	m.logger.Debugw("learning scene graph", "scene", scene.description, "types", graph.Types())
	if err := scene.learn(graph); err != nil {
		return errors.Wrapf(err, "cannot learn scene %q", scene.description)
	}
	if err := m.priors.Increment(0, scene.description, 1); err != nil {
		return err
	}
	m.priorsDirty = true
	return nil
}

// UpdateModel merges the buffered evidence and recomputes whatever learning changed. The latest
// observation of each object instance wins, so the order evidence was buffered in does not matter.
func (m *SceneModelDescription) UpdateModel() error {
	if m.state == Unloaded {
		return ErrNotLoaded
	}
	for _, obj := range m.pending {
		if current, ok := m.evidence[obj.Key()]; !ok || supersedes(obj, current) {
			m.evidence[obj.Key()] = obj
		}
	}
	if len(m.pending) > 0 {
		m.logger.Debugw("integrated evidence", "new", len(m.pending), "objects", len(m.evidence))
	}
	m.pending = nil

	var err error
	for _, s := range m.scenes {
		multierr.AppendInto(&err, s.refresh())
	}
	if m.priorsDirty {
		m.priors.Normalize()
		m.priorsDirty = false
	}
	m.state = Running
	return err
}

// supersedes returns whether a replaces b as the current observation of the same object. Ties are
// broken on content so that the outcome does not depend on arrival order.
func supersedes(a, b observation.Object) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	pa, pb := a.Pose.Point(), b.Pose.Point()
	if pa != pb {
		return pa.Cmp(pb) > 0
	}
	return a.Frame > b.Frame
}

// Evidence returns the integrated evidence, sorted by object key.
func (m *SceneModelDescription) Evidence() []observation.Object {
	keys := lo.Keys(m.evidence)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) observation.Object { return m.evidence[k] })
}

func (m *SceneModelDescription) evidenceFor(s *Scene) []observation.Object {
	return lo.Filter(m.Evidence(), func(o observation.Object, _ int) bool { return s.Relevant(o.Type) })
}

func (m *SceneModelDescription) prior(s *Scene) (float64, error) {
	total := 0.
	for _, name := range m.priors.Types() {
		c, err := m.priors.Count(0, name)
		if err != nil {
			return 0, err
		}
		total += c
	}
	if total == 0 {
		return 1 / float64(len(m.scenes)), nil
	}
	return m.priors.Probability(0, s.description)
}

// GetSceneListWithProbabilities scores every scene against the evidence relevant to it. The list
// is in model order.
func (m *SceneModelDescription) GetSceneListWithProbabilities() ([]SceneIdentifier, error) {
	if m.state == Unloaded {
		return nil, ErrNotLoaded
	}
	results := make([]SceneIdentifier, 0, len(m.scenes))
	for _, s := range m.scenes {
		likelihood, err := s.likelihood(m.evidenceFor(s))
		if err != nil {
			return nil, errors.Wrapf(err, "scene %q", s.description)
		}
		prior, err := m.prior(s)
		if err != nil {
			return nil, err
		}
		results = append(results, SceneIdentifier{
			Description: s.description,
			Type:        s.sceneType,
			Likelihood:  likelihood,
			Prior:       prior,
		})
	}
	return results, nil
}
