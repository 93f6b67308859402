package ros

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/psm/observation"
	"go.viam.com/psm/spatialmath"
)

// Stamp is a ROS time.
type Stamp struct {
	Secs  int64
	Nsecs int64
}

// Time converts the stamp to a time.Time.
func (s Stamp) Time() time.Time {
	return time.Unix(s.Secs, s.Nsecs)
}

// Header is the standard ROS message header.
type Header struct {
	Seq     int
	Stamp   Stamp
	FrameID string `mapstructure:"frame_id"`
}

// PoseData is a geometry_msgs/Pose.
type PoseData struct {
	Position struct {
		X float64
		Y float64
		Z float64
	}
	Orientation struct {
		X float64
		Y float64
		Z float64
		W float64
	}
}

// ObjectData is the payload of a recorded object observation.
type ObjectData struct {
	Header     Header
	Type       string
	ObservedID string `mapstructure:"observedId"`
	Confidence float64
	Pose       PoseData
}

// ObjectMessage is one object observation as gobag renders it.
type ObjectMessage struct {
	Meta Stamp
	Data ObjectData
}

// SceneGraphMessage is one recorded scene example. Each node carries the track of a single object
// over the demonstration.
type SceneGraphMessage struct {
	Meta Stamp
	Data struct {
		Header     Header
		Identifier string
		Elements   []struct {
			Track []ObjectData
		}
	}
}

func decode(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// DecodeObjectMessage decodes a JSON message into an object observation.
func DecodeObjectMessage(raw map[string]interface{}) (observation.Object, error) {
	var msg ObjectMessage
	if err := decode(raw, &msg); err != nil {
		return observation.Object{}, errors.Wrap(err, "cannot decode object message")
	}
	return msg.Data.toObject(msg.Meta), nil
}

// DecodeSceneGraphMessage decodes a JSON message into an example scene graph. The i-th object set
// holds the i-th entry of every track that is long enough.
func DecodeSceneGraphMessage(raw map[string]interface{}) (observation.SceneGraph, error) {
	var msg SceneGraphMessage
	if err := decode(raw, &msg); err != nil {
		return observation.SceneGraph{}, errors.Wrap(err, "cannot decode scene graph message")
	}
	if msg.Data.Identifier == "" {
		return observation.SceneGraph{}, errors.New("scene graph message has no identifier")
	}

	graph := observation.SceneGraph{Identifier: msg.Data.Identifier}
	for _, node := range msg.Data.Elements {
		for i, obj := range node.Track {
			for len(graph.ObjectSets) <= i {
				graph.ObjectSets = append(graph.ObjectSets, observation.ObjectSet{})
			}
			graph.ObjectSets[i].Objects = append(graph.ObjectSets[i].Objects, obj.toObject(msg.Meta))
		}
	}
	return graph, nil
}

// toObject converts the payload, falling back to the bag record time when the header is unstamped.
func (d ObjectData) toObject(recorded Stamp) observation.Object {
	stamp := d.Header.Stamp
	if stamp.Secs == 0 && stamp.Nsecs == 0 {
		stamp = recorded
	}
	o := d.Pose.Orientation
	return observation.Object{
		Type:       d.Type,
		ObservedID: d.ObservedID,
		Frame:      d.Header.FrameID,
		Timestamp:  stamp.Time(),
		Confidence: d.Confidence,
		Pose: spatialmath.NewPose(
			r3.Vector{X: d.Pose.Position.X, Y: d.Pose.Position.Y, Z: d.Pose.Position.Z},
			spatialmath.NewQuaternion(quat.Number{Real: o.W, Imag: o.X, Jmag: o.Y, Kmag: o.Z}),
		),
	}
}
