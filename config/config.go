// Package config defines the structures to configure the scene inference engine.
package config

import (
	"fmt"
	"time"

	"go.viam.com/utils"

	"go.viam.com/psm/inference"
	"go.viam.com/psm/logging"
)

// Defaults applied to fields left unset.
const (
	DefaultUpdateInterval = 100 * time.Millisecond
	DefaultPlotOutputDir  = "plots"
)

// Config describes how to set up the scene inference engine.
type Config struct {
	ConfigFilePath string `mapstructure:"-"`

	// Plot enables the likelihood charts and the scene maps.
	Plot               bool   `mapstructure:"plot"`
	ObjectTopic        string `mapstructure:"object_topic"`
	SceneGraphTopic    string `mapstructure:"scene_graph_topic"`
	SceneModelFilename string `mapstructure:"scene_model_filename"`
	// BagFilenames holds the recorded example scene graphs to learn from. A single string is
	// accepted as a list of one.
	BagFilenames []string `mapstructure:"bag_filenames_list"`
	// BagPath selects stack mode: the objects recorded in this bag are fed one by one instead of
	// running the update loop.
	BagPath            string  `mapstructure:"bag_path"`
	BaseFrameID        string  `mapstructure:"base_frame_id"`
	ScaleFactor        float64 `mapstructure:"scale_factor"`
	SigmaMultiplicator float64 `mapstructure:"sigma_multiplicator"`
	TargetingHelp      bool    `mapstructure:"targeting_help"`
	InferenceAlgorithm string  `mapstructure:"inference_algorithm"`

	UpdateInterval time.Duration          `mapstructure:"update_interval"`
	PlotOutputDir  string                 `mapstructure:"plot_output_dir"`
	Frames         map[string]FrameConfig `mapstructure:"frames"`

	Debug bool `mapstructure:"debug"`
	// LogFile additionally writes logs to this size rotated file.
	LogFile   string                        `mapstructure:"log_file"`
	LogConfig []logging.LoggerPatternConfig `mapstructure:"log"`
}

// Ensure validates the config and fills in defaults.
func (c *Config) Ensure() error {
	if err := c.Validate("config"); err != nil {
		return err
	}
	if c.UpdateInterval == 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
	if c.PlotOutputDir == "" {
		c.PlotOutputDir = DefaultPlotOutputDir
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	for _, required := range []struct{ field, value string }{
		{"object_topic", c.ObjectTopic},
		{"scene_graph_topic", c.SceneGraphTopic},
		{"scene_model_filename", c.SceneModelFilename},
		{"base_frame_id", c.BaseFrameID},
		{"inference_algorithm", c.InferenceAlgorithm},
	} {
		if required.value == "" {
			return utils.NewConfigValidationFieldRequiredError(path, required.field)
		}
	}
	if _, err := inference.NewForeground(c.InferenceAlgorithm); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.ScaleFactor <= 0 {
		return utils.NewConfigValidationError(path, fmt.Errorf("scale_factor must be positive, got %v", c.ScaleFactor))
	}
	if c.SigmaMultiplicator <= 0 {
		return utils.NewConfigValidationError(path,
			fmt.Errorf("sigma_multiplicator must be positive, got %v", c.SigmaMultiplicator))
	}
	if c.UpdateInterval < 0 {
		return utils.NewConfigValidationError(path, fmt.Errorf("update_interval must not be negative, got %v", c.UpdateInterval))
	}
	for i, name := range c.BagFilenames {
		if name == "" {
			return utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("%s.bag_filenames_list.%d", path, i), "name")
		}
	}
	for name, frame := range c.Frames {
		if err := frame.Validate(fmt.Sprintf("%s.frames.%s", path, name)); err != nil {
			return err
		}
	}
	return nil
}
