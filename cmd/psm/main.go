// Package main runs the scene inference engine: it learns the configured scene model from
// recorded example scene graphs and then either recognizes scenes continuously or replays the
// objects recorded in a bag.
package main

import (
	"context"
	"os"

	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/psm/config"
	"go.viam.com/psm/engine"
	"go.viam.com/psm/logging"
	"go.viam.com/psm/model"
	"go.viam.com/psm/ros"
	"go.viam.com/psm/visualization"
)

var logger = logging.NewDebugLogger("psm")

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=engine config file"`
	Debug      bool   `flag:"debug,usage=log at debug level"`
	SaveModel  string `flag:"save-model,usage=write the learned scene model to this file on exit"`
	Trace      bool   `flag:"trace,usage=log every update cycle at debug level without lowering the global level"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	logging.ReplaceGlobal(logger)
	config.InitLoggingSettings(logger, argsParsed.Debug)

	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		fileAppender := logging.NewFileAppender(cfg.LogFile)
		logger.AddAppender(fileAppender)
		defer func() {
			err = multierr.Combine(err, fileAppender.Close())
		}()
	}
	if err := config.ApplyLogConfig(cfg); err != nil {
		return err
	}
	if argsParsed.Trace {
		ctx = logging.EnableDebugMode(ctx, "")
	}
	return run(ctx, argsParsed, cfg, logger)
}

func run(ctx context.Context, args Arguments, cfg *config.Config, logger logging.Logger) (err error) {
	sceneModel := model.NewSceneModelDescription(logger.Sublogger("model"))
	if err := sceneModel.LoadModelFromFile(cfg.SceneModelFilename, cfg.InferenceAlgorithm); err != nil {
		return err
	}
	logger.Infow("scene model loaded", "path", cfg.SceneModelFilename, "scenes", sceneModel.Scenes())

	fs, err := cfg.FrameSystem()
	if err != nil {
		return err
	}

	sinks, err := newSinks(cfg, sceneModel, logger.Sublogger("visualization"))
	if err != nil {
		return err
	}

	eng, err := engine.New(sceneModel, engine.Options{
		BaseFrame:       cfg.BaseFrameID,
		SceneGraphTopic: cfg.SceneGraphTopic,
		ObjectTopic:     cfg.ObjectTopic,
		Targeting:       cfg.TargetingHelp,
		UpdateInterval:  cfg.UpdateInterval,
		Transformer:     engine.NewFrameTransformer(fs),
		Archive:         ros.NewBagArchive(logger.Sublogger("bags")),
		Sinks:           sinks,
	}, logger.Sublogger("engine"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, eng.Close())
		if args.SaveModel != "" {
			err = multierr.Combine(err, sceneModel.SaveModelToFile(args.SaveModel))
		}
	}()

	if err := eng.ReadLearnerInputBags(ctx, cfg.BagFilenames); err != nil {
		return err
	}

	if cfg.BagPath != "" {
		logger.Infow("running in stack mode", "bag", cfg.BagPath)
		return eng.ExecuteInStackMode(ctx, cfg.BagPath)
	}

	watcher, err := config.NewWatcher(ctx, cfg.ConfigFilePath, logger.Sublogger("config"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, watcher.Close())
	}()

	logger.Infow("running continuously", "interval", cfg.UpdateInterval)
	eng.Start()
	for {
		select {
		case <-ctx.Done():
			logger.Infow("stopping", "cycles", eng.Cycles(), "dropped", eng.Dropped())
			return nil
		case updated := <-watcher.Config():
			if err := config.ApplyLogConfig(updated); err != nil {
				logger.Warnw("failed to apply log config", "error", err)
				continue
			}
			if config.RequiresRestart(cfg, updated) {
				logger.Warn("config changed, only the log settings were applied until restart")
				continue
			}
			logger.Info("log settings updated")
		}
	}
}

func newSinks(cfg *config.Config, sceneModel *model.SceneModelDescription, logger logging.Logger) ([]engine.ResultSink, error) {
	sinks := []engine.ResultSink{visualization.NewConsoleSink(os.Stdout)}
	if !cfg.Plot {
		return sinks, nil
	}

	bars, err := visualization.NewBarChartSink(cfg.PlotOutputDir, logger)
	if err != nil {
		return nil, err
	}
	page, err := visualization.NewHTMLChartSink(cfg.PlotOutputDir)
	if err != nil {
		return nil, err
	}
	drawer, err := visualization.NewSceneDrawer(visualization.DrawerConfig{
		OutputDir:          cfg.PlotOutputDir,
		FrameID:            cfg.BaseFrameID,
		ScaleFactor:        cfg.ScaleFactor,
		SigmaMultiplicator: cfg.SigmaMultiplicator,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := sceneModel.InitializeVisualizer(drawer); err != nil {
		return nil, err
	}
	return append(sinks, bars, page), nil
}
