package config

import (
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/psm/logging"
	"go.viam.com/psm/referenceframe"
	"go.viam.com/psm/spatialmath"
	"go.viam.com/psm/utils"
)

const minimalConfig = `{
	"object_topic": "/objects",
	"scene_graph_topic": "/scene_graphs",
	"scene_model_filename": "model.xml",
	"base_frame_id": "map",
	"scale_factor": 1,
	"sigma_multiplicator": 1,
	"inference_algorithm": "maximum"`

func TestRead(t *testing.T) {
	t.Setenv("PSM_MODEL_DIR", "/data/models")
	logger := logging.NewTestLogger(t)

	cfg, err := Read(utils.ResolveFile("config/testdata/psm.json"), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.SceneModelFilename, test.ShouldEqual, "/data/models/kitchen.xml")
	test.That(t, cfg.BagFilenames, test.ShouldResemble, []string{"demo_kitchen.bag"})
	test.That(t, cfg.Plot, test.ShouldBeTrue)
	test.That(t, cfg.SigmaMultiplicator, test.ShouldEqual, 2.)
	test.That(t, cfg.UpdateInterval, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.PlotOutputDir, test.ShouldEqual, DefaultPlotOutputDir)
	test.That(t, len(cfg.Frames), test.ShouldEqual, 3)
	test.That(t, cfg.Frames["camera"].Orientation.TH, test.ShouldEqual, 90.)
	test.That(t, cfg.LogConfig, test.ShouldResemble, []logging.LoggerPatternConfig{{Pattern: "psm.engine", Level: "debug"}})

	_, err = Read("/does/not/exist.json", logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderValidate(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := FromReader("somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"object_topic" is required`)

	_, err = FromReader("somepath", strings.NewReader(`{"object_topic": "/objects"}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"scene_graph_topic" is required`)

	cfg, err := FromReader("somepath", strings.NewReader(minimalConfig+`}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "somepath")
	test.That(t, cfg.UpdateInterval, test.ShouldEqual, DefaultUpdateInterval)
	test.That(t, cfg.BagFilenames, test.ShouldBeEmpty)

	cfg, err = FromReader("somepath", strings.NewReader(minimalConfig+`, "bag_filenames_list": ["a.bag", "b.bag"]}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.BagFilenames, test.ShouldResemble, []string{"a.bag", "b.bag"})

	for _, tc := range []struct {
		name   string
		extra  string
		errMsg string
	}{
		{"unknown algorithm", `, "inference_algorithm": "psychic"`, "psychic"},
		{"background algorithm", `, "inference_algorithm": "powerset_background"`, "powerset_background"},
		{"zero scale", `, "scale_factor": 0`, "scale_factor"},
		{"negative sigma", `, "sigma_multiplicator": -2`, "sigma_multiplicator"},
		{"empty bag name", `, "bag_filenames_list": ["a.bag", ""]`, "bag_filenames_list.1"},
		{"frame without parent", `, "frames": {"camera": {}}`, `"parent" is required`},
		{"bad interval", `, "update_interval": "soon"`, "update_interval"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Later keys win in the decoded map.
			input := minimalConfig + tc.extra + `}`
			_, err := FromReader("somepath", strings.NewReader(input), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errMsg)
		})
	}
}

func TestUnknownFieldsWarn(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	_, err := FromReader("somepath", strings.NewReader(minimalConfig+`, "colour": "blue"}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logs.FilterMessage("ignoring unknown config fields").Len(), test.ShouldEqual, 1)
}

func TestFrameSystem(t *testing.T) {
	t.Setenv("PSM_MODEL_DIR", ".")
	cfg, err := Read(utils.ResolveFile("config/testdata/psm.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	fs, err := cfg.FrameSystem()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fs.FrameNames(), test.ShouldResemble, []string{"base", "camera", "map"})

	// One meter along the camera's x axis, which the camera frame rotates onto the base's y axis.
	seen := referenceframe.NewPoseInFrame("camera", spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	inWorld, err := fs.Transform(seen, referenceframe.World)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(inWorld.Pose().Point(), r3.Vector{X: 1, Y: 3}, 1e-9), test.ShouldBeTrue)

	cfg.Frames["orphan"] = FrameConfig{Parent: "nowhere"}
	_, err = cfg.FrameSystem()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "orphan")

	empty := &Config{}
	fs, err = empty.FrameSystem()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fs.FrameNames(), test.ShouldBeEmpty)
}

func TestApplyLogConfig(t *testing.T) {
	InitLoggingSettings(logging.NewTestLogger(t), false)
	logger := logging.NewLogger("psm.engine.test")

	test.That(t, ApplyLogConfig(&Config{Debug: true}), test.ShouldBeNil)
	test.That(t, logging.GlobalLogLevel.Level().String(), test.ShouldEqual, "debug")

	test.That(t, ApplyLogConfig(&Config{LogConfig: []logging.LoggerPatternConfig{{Pattern: "psm.engine.*", Level: "error"}}}),
		test.ShouldBeNil)
	test.That(t, logging.GlobalLogLevel.Level().String(), test.ShouldEqual, "info")
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.ERROR)

	err := ApplyLogConfig(&Config{LogConfig: []logging.LoggerPatternConfig{{Pattern: "psm", Level: "shout"}}})
	test.That(t, err, test.ShouldNotBeNil)
}
