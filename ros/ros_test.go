package ros

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/psm/logging"
)

func parse(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	raw := map[string]interface{}{}
	test.That(t, json.Unmarshal([]byte(s), &raw), test.ShouldBeNil)
	return raw
}

func TestTopicKey(t *testing.T) {
	test.That(t, TopicKey("/stereo/objects"), test.ShouldEqual, "stereo_objects")
	test.That(t, TopicKey("Scene_Graphs"), test.ShouldEqual, "scene_graphs")
}

func TestDecodeObjectMessage(t *testing.T) {
	raw := parse(t, `{"meta": {"secs": 10, "nsecs": 5}, "data": {
		"header": {"seq": 3, "stamp": {"secs": 0, "nsecs": 0}, "frame_id": "camera"},
		"type": "Cup", "observedId": "a", "confidence": 0.9,
		"pose": {"position": {"x": 1, "y": 2, "z": 3}, "orientation": {"x": 0, "y": 0, "z": 0, "w": 2}}}}`)

	obj, err := DecodeObjectMessage(raw)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obj.Type, test.ShouldEqual, "Cup")
	test.That(t, obj.ObservedID, test.ShouldEqual, "a")
	test.That(t, obj.Frame, test.ShouldEqual, "camera")
	test.That(t, obj.Confidence, test.ShouldEqual, 0.9)
	test.That(t, obj.Timestamp.Equal(time.Unix(10, 5)), test.ShouldBeTrue)
	test.That(t, obj.Pose.Point().Z, test.ShouldEqual, 3.)
	test.That(t, obj.Pose.Orientation().Quaternion().Real, test.ShouldAlmostEqual, 1)

	_, err = DecodeObjectMessage(map[string]interface{}{"data": "not an object"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeSceneGraphMessage(t *testing.T) {
	raw := parse(t, `{"meta": {"secs": 1, "nsecs": 0}, "data": {"identifier": "Kitchen", "elements": [
		{"track": [{"type": "Cup", "observedId": "1"}, {"type": "Cup", "observedId": "1"}]},
		{"track": [{"type": "Plate", "observedId": "2"}]}]}}`)

	graph, err := DecodeSceneGraphMessage(raw)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, graph.Identifier, test.ShouldEqual, "Kitchen")
	test.That(t, len(graph.ObjectSets), test.ShouldEqual, 2)
	test.That(t, graph.ObjectSets[0].Types(), test.ShouldResemble, []string{"Cup", "Plate"})
	test.That(t, graph.ObjectSets[1].Types(), test.ShouldResemble, []string{"Cup"})

	_, err = DecodeSceneGraphMessage(parse(t, `{"data": {"elements": []}}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBagArchiveMissingFile(t *testing.T) {
	archive := NewBagArchive(logging.NewTestLogger(t))
	_, err := archive.SceneGraphs(context.Background(), filepath.Join(t.TempDir(), "nope.bag"), "/scene_graphs")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = archive.Objects(context.Background(), filepath.Join(t.TempDir(), "nope.bag"), "/objects")
	test.That(t, err, test.ShouldNotBeNil)
}
