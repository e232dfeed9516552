package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Infow("rendered frame", "frame", 3)
	logger.Debugf("camera %d registered", 1)
	logger.Sublogger("engine").Warn("slow render")

	test.That(t, logs.Len(), test.ShouldEqual, 3)
	entries := FilterMessageSnippet(logs, "rendered")
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["frame"], test.ShouldEqual, int64(3))
	test.That(t, MessagesContaining(logs, "camera", "registered"), test.ShouldEqual, 1)

	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	test.That(t, warn, test.ShouldHaveLength, 1)
	test.That(t, warn[0].LoggerName, test.ShouldEqual, "engine")
}

func TestSubloggerNaming(t *testing.T) {
	logger := NewBlankLogger("synthcam")
	sub := logger.Sublogger("session").Sublogger("engine")
	test.That(t, sub.(*impl).name, test.ShouldEqual, "synthcam.session.engine")

	sub.SetLevel(zapcore.ErrorLevel)
	test.That(t, logger.Level(), test.ShouldEqual, zapcore.ErrorLevel)
}

func TestGlobalLogger(t *testing.T) {
	prev := Global()
	defer ReplaceGlobal(prev)

	logger := NewBlankLogger("replacement")
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)
}

func TestLoggerWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "synthcam.log")
	logger := NewLoggerWithOptions("file", Options{Debug: true, File: logFile})
	test.That(t, logger.Level(), test.ShouldEqual, zapcore.DebugLevel)

	logger.Infow("hello", "k", "v")
	// stdout sync can fail on some platforms; only the file matters here.
	//nolint:errcheck
	logger.Sync()

	contents, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, `"msg":"hello"`)
}
