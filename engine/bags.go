package engine

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/psm/observation"
	"go.viam.com/psm/utils"
)

// ReadLearnerInputBags reads the example scene graphs recorded in every bag and queues them, in
// the order the bags are given, for the next cycle. Bags are parsed in parallel. A missing or
// empty bag is skipped with a warning and a bag that cannot be read is skipped with an error;
// neither stops the remaining bags.
func (e *Engine) ReadLearnerInputBags(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if e.opts.SceneGraphTopic == "" {
		return errors.Wrap(ErrMissingTopic, "scene graph topic is required to read learner input bags")
	}
	if e.opts.Archive == nil {
		return errors.New("no archive to read learner input bags from")
	}

	perBag := make([][]observation.SceneGraph, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(utils.ParallelFactor)
	for i, path := range paths {
		g.Go(func() error {
			if err := utils.CheckFileReadable(path); err != nil {
				if errors.Is(err, os.ErrNotExist) || errors.Is(err, utils.ErrFileEmpty) {
					e.logger.Warnw("skipping learner input bag", "bag", path, "error", err)
				} else {
					e.logger.Errorw("cannot open learner input bag", "bag", path, "error", err)
				}
				return nil
			}
			stopSlowLog := utils.SlowLogger(gctx, "still reading learner input bag", "bag", path, e.logger)
			graphs, err := e.opts.Archive.SceneGraphs(gctx, path, e.opts.SceneGraphTopic)
			stopSlowLog()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Errorw("cannot read learner input bag", "bag", path, "error", err)
				return nil
			}
			perBag[i] = graphs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for i, graphs := range perBag {
		e.graphs.Push(graphs...)
		total += len(graphs)
		if graphs != nil {
			e.logger.Infow("read learner input bag", "bag", paths[i], "scene_graphs", len(graphs))
		}
	}
	e.logger.Infow("queued scene graphs from learner input bags", "bags", len(paths), "scene_graphs", total)
	return nil
}

// ExecuteInStackMode reprocesses the observations recorded in one bag: each one is transformed,
// integrated and followed by a model update, then the scene list is published once. Scene graphs
// queued before the call are learned first. A bag that cannot be opened or read is logged and
// leaves the model untouched.
func (e *Engine) ExecuteInStackMode(ctx context.Context, bagPath string) error {
	if bagPath == "" {
		return errors.New("stack mode needs a bag path")
	}
	if e.opts.ObjectTopic == "" {
		return errors.Wrap(ErrMissingTopic, "object topic is required in stack mode")
	}
	if e.opts.Archive == nil {
		return errors.New("no archive to read the stack from")
	}
	if err := utils.CheckFileReadable(bagPath); err != nil {
		e.logger.Errorw("cannot open stack bag", "bag", bagPath, "error", err)
		return nil
	}
	stopSlowLog := utils.SlowLogger(ctx, "still reading stack bag", "bag", bagPath, e.logger)
	objects, err := e.opts.Archive.Objects(ctx, bagPath, e.opts.ObjectTopic)
	stopSlowLog()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Errorw("cannot read stack bag", "bag", bagPath, "error", err)
		return nil
	}

	e.updateMu.Lock()
	defer e.updateMu.Unlock()

	for _, graph := range e.graphs.Drain() {
		if err := e.model.IntegrateSceneGraph(graph); err != nil {
			e.logger.Warnw("skipping scene graph", "scene", graph.Identifier, "error", err)
		}
	}
	if err := e.model.UpdateModel(); err != nil {
		return errors.Wrap(err, "cannot update scene model")
	}

	e.logger.Infow("executing in stack mode", "bag", bagPath, "objects", len(objects))
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if obj.ObservedID == "" {
			obj.ObservedID = uuid.NewString()
		}
		e.integrate(obj)
		if err := e.model.UpdateModel(); err != nil {
			return errors.Wrap(err, "cannot update scene model")
		}
	}
	if err := e.publish(ctx); err != nil {
		return err
	}
	e.cycles.Inc()
	return nil
}
