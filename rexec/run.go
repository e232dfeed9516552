package rexec

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/synthcam/logging"
)

// Run runs a process to completion and returns what it printed to stdout.
func Run(ctx context.Context, config ProcessConfig, logger logging.Logger) ([]byte, error) {
	if err := config.Validate("process"); err != nil {
		return nil, err
	}
	//nolint:gosec
	cmd := exec.CommandContext(ctx, config.Name, config.Args...)
	cmd.Dir = config.CWD
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	var outLines, errLines *lineLogger
	if config.Log {
		outLines = &lineLogger{log: logger.Info}
		errLines = &lineLogger{log: logger.Warn}
		cmd.Stdout = io.MultiWriter(&stdout, outLines)
		cmd.Stderr = io.MultiWriter(&stderr, errLines)
	}

	logger.Debugw("starting process", "name", config.Name, "args", config.Args, "cwd", config.CWD)
	err := cmd.Run()
	if config.Log {
		outLines.Flush()
		errLines.Flush()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), errors.Wrapf(ctxErr, "%s was stopped", config.Name)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), errors.Wrapf(err, "%s failed: %s", config.Name, lastLine(msg))
		}
		return stdout.Bytes(), errors.Wrapf(err, "%s failed", config.Name)
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// lineLogger logs complete lines written to it.
type lineLogger struct {
	log func(args ...interface{})
	buf []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing line without newline.
func (l *lineLogger) Flush() {
	if len(l.buf) > 0 {
		l.emit(l.buf)
		l.buf = nil
	}
}

func (l *lineLogger) emit(line []byte) {
	if s := strings.TrimRight(string(line), "\r"); s != "" {
		l.log(s)
	}
}
