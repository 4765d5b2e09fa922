package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// CoreLogFileName is the file name of the main log when logging to disk
	CoreLogFileName = "core.log"

	encodeTimeFormat = "2006-01-02 15:04:05.000"
)

// RotateConfig controls log file rotation
type RotateConfig struct {
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

var (
	coreLogger *zap.SugaredLogger
	level      = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() {
	config := zap.NewDevelopmentConfig()
	config.Level = level
	log, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		coreLogger = zap.NewNop().Sugar()
		return
	}
	coreLogger = log.Sugar()
}

// Init configures the process logger. Console mode writes human readable
// lines to stderr; otherwise JSON lines go to a rotated file under dir.
func Init(verbose, console bool, dir string, rotate RotateConfig) error {
	if verbose {
		level.SetLevel(zap.DebugLevel)
	} else {
		level.SetLevel(zap.InfoLevel)
	}

	if console {
		config := zap.NewDevelopmentConfig()
		config.Level = level
		log, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			return fmt.Errorf("build console logger: %w", err)
		}
		setCoreLogger(log.Sugar())
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(dir, CoreLogFileName),
		MaxSize:    rotate.MaxSize,
		MaxAge:     rotate.MaxAge,
		MaxBackups: rotate.MaxBackups,
		LocalTime:  true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(encodeTimeFormat)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level)
	setCoreLogger(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel), zap.AddCallerSkip(1)).Sugar())
	return nil
}

func setCoreLogger(log *zap.SugaredLogger) {
	coreLogger = log
}

// Sync flushes buffered entries
func Sync() {
	_ = coreLogger.Sync()
}

// SugaredLoggerOnWith carries fixed key/value pairs onto every entry
type SugaredLoggerOnWith struct {
	withArgs []interface{}
}

// With returns a logger that attaches args to each entry
func With(args ...interface{}) *SugaredLoggerOnWith {
	return &SugaredLoggerOnWith{withArgs: args}
}

// WithModel tags entries with the selected model label
func WithModel(label string) *SugaredLoggerOnWith {
	return With("model", label)
}

// WithBatch tags entries with a model label and batch id
func WithBatch(label, batchID string) *SugaredLoggerOnWith {
	return With("model", label, "batchID", batchID)
}

func (log *SugaredLoggerOnWith) Debugf(template string, args ...interface{}) {
	coreLogger.With(log.withArgs...).Debugf(template, args...)
}

func (log *SugaredLoggerOnWith) Infof(template string, args ...interface{}) {
	coreLogger.With(log.withArgs...).Infof(template, args...)
}

func (log *SugaredLoggerOnWith) Warnf(template string, args ...interface{}) {
	coreLogger.With(log.withArgs...).Warnf(template, args...)
}

func (log *SugaredLoggerOnWith) Errorf(template string, args ...interface{}) {
	coreLogger.With(log.withArgs...).Errorf(template, args...)
}

func Debugf(template string, args ...interface{}) {
	coreLogger.Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	coreLogger.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	coreLogger.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	coreLogger.Errorf(template, args...)
}
