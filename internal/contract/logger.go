package contract

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the operational logger used by the watcher and sync pipeline.
// Logs go to stderr so stdout stays free for results and the MCP protocol.
func NewLogger(verbose bool) (*zap.SugaredLogger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
