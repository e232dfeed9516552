package rexec

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/synthcam/logging"
)

func TestProcessConfigRoundTripJSON(t *testing.T) {
	config := ProcessConfig{
		Name: "hello",
		Args: []string{"1", "2", "3"},
		CWD:  "dir",
		Env:  []string{"A=b"},
		Log:  true,
	}
	md, err := json.Marshal(config)
	test.That(t, err, test.ShouldBeNil)

	var rt ProcessConfig
	test.That(t, json.Unmarshal(md, &rt), test.ShouldBeNil)
	test.That(t, rt, test.ShouldResemble, config)
	test.That(t, (&ProcessConfig{}).Validate("viewer"), test.ShouldNotBeNil)
}

func TestNewProcessConfigFromCommand(t *testing.T) {
	config, err := NewProcessConfigFromCommand(`blenderproc run "my bridge.py"`, "render", "job.json")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, config.Name, test.ShouldEqual, "blenderproc")
	test.That(t, config.Args, test.ShouldResemble, []string{"run", "my bridge.py", "render", "job.json"})

	_, err = NewProcessConfigFromCommand("   ")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewProcessConfigFromCommand(`python "unterminated`)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRun(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	dir := t.TempDir()

	out, err := Run(context.Background(), ProcessConfig{
		Name: "sh",
		Args: []string{"-c", `echo "$GREETING"; pwd; echo careful >&2; printf partial`},
		CWD:  dir,
		Env:  []string{"GREETING=hello there"},
		Log:  true,
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldStartWith, "hello there\n")
	test.That(t, string(out), test.ShouldEndWith, "partial")
	test.That(t, logging.MessagesContaining(logs, "hello there"), test.ShouldEqual, 1)
	test.That(t, logging.MessagesContaining(logs, "careful"), test.ShouldEqual, 1)
	test.That(t, logging.MessagesContaining(logs, "partial"), test.ShouldEqual, 1)
}

func TestRunQuiet(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	out, err := Run(context.Background(), ProcessConfig{Name: "sh", Args: []string{"-c", "echo quiet"}}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, "quiet\n")
	test.That(t, logging.MessagesContaining(logs, "quiet"), test.ShouldEqual, 0)
}

func TestRunFailure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := Run(context.Background(), ProcessConfig{
		Name: "sh",
		Args: []string{"-c", "echo first >&2; echo scene not found >&2; exit 3"},
	}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sh failed: scene not found")

	_, err = Run(context.Background(), ProcessConfig{Name: "definitely-not-a-synthcam-binary"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunCanceled(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Run(ctx, ProcessConfig{Name: "sleep", Args: []string{"10"}}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "was stopped")
}
