package normalize

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// OpenProcessLog returns a logger appending timestamped, human-readable
// lines to fname. The returned function syncs and closes the file.
func OpenProcessLog(fname string) (*zap.Logger, func() error, error) {
	file, err := os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(file),
		zapcore.InfoLevel,
	)
	logger := zap.New(core)
	closeFn := func() error {
		_ = logger.Sync()
		return file.Close()
	}
	return logger, closeFn, nil
}
