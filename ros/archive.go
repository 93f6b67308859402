package ros

import (
	"context"
	"os"

	"github.com/docker/go-units"
	"github.com/pkg/errors"

	"go.viam.com/psm/logging"
	"go.viam.com/psm/observation"
)

// BagArchive reads example scene graphs and object observations from rosbag files.
type BagArchive struct {
	logger logging.Logger
}

// NewBagArchive returns a BagArchive. Messages that fail to decode are logged and skipped.
func NewBagArchive(logger logging.Logger) *BagArchive {
	return &BagArchive{logger: logger}
}

// SceneGraphs returns every scene graph recorded on topic in the bag at path, in recording order.
func (ba *BagArchive) SceneGraphs(ctx context.Context, path, topic string) ([]observation.SceneGraph, error) {
	msgs, err := ba.messages(path, topic)
	if err != nil {
		return nil, err
	}
	graphs := make([]observation.SceneGraph, 0, len(msgs))
	for i, raw := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		graph, err := DecodeSceneGraphMessage(raw)
		if err != nil {
			ba.logger.Warnw("skipping scene graph message", "bag", path, "index", i, "error", err)
			continue
		}
		graphs = append(graphs, graph)
	}
	return graphs, nil
}

// Objects returns every object observation recorded on topic in the bag at path, in recording order.
func (ba *BagArchive) Objects(ctx context.Context, path, topic string) ([]observation.Object, error) {
	msgs, err := ba.messages(path, topic)
	if err != nil {
		return nil, err
	}
	objects := make([]observation.Object, 0, len(msgs))
	for i, raw := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obj, err := DecodeObjectMessage(raw)
		if err != nil {
			ba.logger.Warnw("skipping object message", "bag", path, "index", i, "error", err)
			continue
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (ba *BagArchive) messages(path, topic string) ([]map[string]interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read bag %q", path)
	}
	rb, err := ReadBag(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read bag %q", path)
	}
	msgs, err := AllMessagesForTopic(rb, topic)
	if err != nil {
		return nil, errors.Wrapf(err, "bag %q", path)
	}
	ba.logger.Debugw("read messages from bag", "bag", path, "topic", topic, "count", len(msgs),
		"size", units.HumanSize(float64(info.Size())))
	return msgs, nil
}
