// Package engine drives the scene model: it buffers incoming observations and example scene
// graphs, feeds them to the model once per cycle and publishes the resulting scene list.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/psm/logging"
	"go.viam.com/psm/model"
	"go.viam.com/psm/observation"
	"go.viam.com/psm/utils"
)

// DefaultUpdateInterval is the cycle period used when Options leaves it unset.
const DefaultUpdateInterval = 100 * time.Millisecond

// ErrMissingTopic is returned when archived data is requested without the topic to read it from.
var ErrMissingTopic = errors.New("missing topic")

// Options configures an Engine.
type Options struct {
	// BaseFrame is the frame every observation is transformed into before it reaches the model.
	BaseFrame       string
	SceneGraphTopic string
	ObjectTopic     string
	// Targeting switches visualization from showing what was found to showing what is missing.
	Targeting      bool
	UpdateInterval time.Duration

	Transformer Transformer
	Archive     Archive
	Sinks       []ResultSink
	Clock       clock.Clock
}

// Engine owns the update cycle. Push methods may be called from any goroutine; everything else
// that touches the model happens on the goroutine running Update.
type Engine struct {
	logger logging.Logger
	model  *model.SceneModelDescription
	opts   Options

	evidence utils.Queue[observation.Object]
	graphs   utils.Queue[observation.SceneGraph]

	updateMu sync.Mutex
	workers  utils.StoppableWorkers

	cycles  atomic.Int64
	dropped atomic.Int64
}

// New returns an engine over a loaded model.
func New(m *model.SceneModelDescription, opts Options, logger logging.Logger) (*Engine, error) {
	if m == nil || m.State() == model.Unloaded {
		return nil, model.ErrNotLoaded
	}
	if opts.Transformer == nil {
		return nil, errors.New("engine needs a transformer")
	}
	if opts.BaseFrame == "" {
		return nil, errors.New("engine needs a base frame")
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = DefaultUpdateInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	for _, sink := range opts.Sinks {
		if labeler, ok := sink.(SceneLabeler); ok {
			if err := labeler.SetScenes(m.Scenes()); err != nil {
				return nil, err
			}
		}
	}
	return &Engine{logger: logger, model: m, opts: opts}, nil
}

// PushEvidence queues an observation for the next cycle. Observations without an instance id are
// treated as distinct objects.
func (e *Engine) PushEvidence(obj observation.Object) {
	if obj.ObservedID == "" {
		obj.ObservedID = uuid.NewString()
	}
	e.evidence.Push(obj)
}

// PushSceneGraph queues an example scene graph for the next cycle.
func (e *Engine) PushSceneGraph(graph observation.SceneGraph) {
	e.graphs.Push(graph)
}

// Cycles returns the number of completed update cycles.
func (e *Engine) Cycles() int64 {
	return e.cycles.Load()
}

// Dropped returns the number of observations dropped because they could not be transformed or
// integrated.
func (e *Engine) Dropped() int64 {
	return e.dropped.Load()
}

// integrate transforms an observation into the base frame and hands it to the model. Failures drop
// the observation.
func (e *Engine) integrate(obj observation.Object) {
	transformed, err := e.opts.Transformer.Transform(obj, e.opts.BaseFrame)
	if err != nil {
		e.dropped.Inc()
		e.logger.Warnw("dropping observation that cannot be transformed",
			"object", obj.String(), "target", e.opts.BaseFrame, "error", err)
		return
	}
	if err := e.model.IntegrateEvidence(transformed); err != nil {
		e.dropped.Inc()
		e.logger.Warnw("dropping observation", "object", obj.String(), "error", err)
	}
}

// Update runs one cycle: integrate queued evidence and scene graphs, update the model, publish the
// scene list and draw.
func (e *Engine) Update(ctx context.Context) error {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()

	evidence := e.evidence.Drain()
	graphs := e.graphs.Drain()
	e.logger.CDebugw(ctx, "update cycle", "cycle", e.cycles.Load()+1, "evidence", len(evidence), "scene_graphs", len(graphs))

	for _, obj := range evidence {
		e.integrate(obj)
	}
	for _, graph := range graphs {
		if err := e.model.IntegrateSceneGraph(graph); err != nil {
			e.logger.Warnw("skipping scene graph", "scene", graph.Identifier, "error", err)
		}
	}
	if err := e.model.UpdateModel(); err != nil {
		return errors.Wrap(err, "cannot update scene model")
	}
	if err := e.publish(ctx); err != nil {
		return err
	}
	e.cycles.Inc()
	return nil
}

func (e *Engine) publish(ctx context.Context) error {
	results, err := e.model.GetSceneListWithProbabilities()
	if err != nil {
		return errors.Wrap(err, "cannot compute scene list")
	}
	for _, sink := range e.opts.Sinks {
		if err := sink.Publish(ctx, results); err != nil {
			e.logger.Errorw("cannot publish scene list", "error", err)
		}
	}
	if err := e.model.Draw(e.opts.Targeting); err != nil {
		e.logger.Errorw("cannot draw scene model", "error", err)
	}
	return nil
}

// Run updates once per UpdateInterval until ctx is done. A failed cycle is logged and the next one
// runs as usual.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.opts.Clock.Ticker(e.opts.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := e.Update(ctx); err != nil {
			e.logger.Errorw("update cycle failed", "error", err)
		}
	}
}

// Start runs the update loop in the background until Close.
func (e *Engine) Start() {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()
	if e.workers != nil {
		return
	}
	e.workers = utils.NewStoppableWorkers(e.Run)
}

// Close stops the background update loop, if running.
func (e *Engine) Close() error {
	e.updateMu.Lock()
	workers := e.workers
	e.updateMu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	return nil
}
