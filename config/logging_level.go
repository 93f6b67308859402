package config

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.viam.com/psm/logging"
)

var globalLogger struct {
	// These variables are initialized once at startup. No need for special synchronization.
	logger           logging.Logger
	cmdLineDebugFlag bool

	mu                  sync.Mutex
	fileConfigDebugFlag bool
}

// InitLoggingSettings initializes the global logging settings.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	if cmdLineDebugFlag {
		logging.GlobalLogLevel.SetLevel(zapcore.DebugLevel)
	} else {
		logging.GlobalLogLevel.SetLevel(zapcore.InfoLevel)
	}
	globalLogger.logger.Info("Log level initialized: ", logging.GlobalLogLevel.Level())
}

// ApplyLogConfig applies the config's debug flag and its logger level patterns.
func ApplyLogConfig(cfg *Config) error {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	if globalLogger.logger == nil {
		globalLogger.logger = logging.Global()
	}
	globalLogger.fileConfigDebugFlag = cfg.Debug
	refreshLogLevelInLock()
	return logging.UpdateLoggerLevels(cfg.LogConfig, globalLogger.logger)
}

func refreshLogLevelInLock() {
	newLevel := zap.InfoLevel
	if globalLogger.cmdLineDebugFlag || globalLogger.fileConfigDebugFlag {
		newLevel = zap.DebugLevel
	}
	if logging.GlobalLogLevel.Level() == newLevel {
		return
	}
	globalLogger.logger.Info("New log level: ", newLevel)
	logging.GlobalLogLevel.SetLevel(newLevel)
}
