package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/RajS18/gatorinfs/cfg"
)

type LoggerTest struct {
	suite.Suite
	buf *bytes.Buffer
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func (t *LoggerTest) SetupTest() {
	t.buf = new(bytes.Buffer)
	mu.Lock()
	programLevel.Set(LevelTrace)
	defaultLogger = slog.New(newHandler(t.buf, programLevel, "text", ""))
	mu.Unlock()
}

func (t *LoggerTest) TestInfofWritesTextLine() {
	Infof("hello %s", "gator")
	line := t.buf.String()
	t.Regexp(regexp.MustCompile(`^time="[^"]+" severity=INFO message="hello gator"\n$`), line)
}

func (t *LoggerTest) TestWarnfUsesWarningSeverity() {
	Warnf("disk %d%% full", 90)
	t.Regexp(regexp.MustCompile(`severity=WARNING message="disk 90% full"`), t.buf.String())
}

func (t *LoggerTest) TestErrorfUsesErrorSeverity() {
	Errorf("boom")
	t.Regexp(regexp.MustCompile(`severity=ERROR message="boom"`), t.buf.String())
}

func (t *LoggerTest) TestOffSeveritySuppressesEverything() {
	mu.Lock()
	programLevel.Set(LevelOff)
	mu.Unlock()
	Errorf("should not appear")
	t.Empty(t.buf.String())
}

func (t *LoggerTest) TestJSONFormatEmitsStructuredLine() {
	mu.Lock()
	programLevel.Set(LevelTrace)
	defaultLogger = slog.New(newHandler(t.buf, programLevel, "json", ""))
	mu.Unlock()
	Infof("structured %s", "line")
	t.Regexp(regexp.MustCompile(`"severity":"INFO"`), t.buf.String())
	t.Regexp(regexp.MustCompile(`"message":"structured line"`), t.buf.String())
}

func (t *LoggerTest) TestInitBindsSeverityFromConfig() {
	closeFn, err := Init(cfg.Config{LogSeverity: cfg.SeverityError, LogFormat: "text"})
	t.Require().NoError(err)
	defer closeFn()

	t.Equal(LevelError, programLevel.Level())
}
