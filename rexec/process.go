// Package rexec runs the external programs synthcam delegates to, such as a renderer bridge
// or an annotation viewer.
package rexec

import (
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// ProcessConfig describes a process to run.
type ProcessConfig struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
	CWD  string   `json:"cwd"`
	// Env is appended to the environment of the current process.
	Env []string `json:"env,omitempty"`
	// Log forwards every line the process prints to the logger.
	Log bool `json:"log"`
}

// Validate ensures all parts of the config are valid.
func (config *ProcessConfig) Validate(path string) error {
	if config.Name == "" {
		return errors.Errorf("%s.name: a program to run is required", path)
	}
	return nil
}

// NewProcessConfigFromCommand splits a command line the way a shell would, so quoted paths
// with spaces stay one argument. Extra args are appended unchanged.
func NewProcessConfigFromCommand(command string, args ...string) (ProcessConfig, error) {
	words, err := shellwords.Parse(command)
	if err != nil {
		return ProcessConfig{}, errors.Wrapf(err, "cannot parse command %q", command)
	}
	if len(words) == 0 {
		return ProcessConfig{}, errors.Errorf("command %q is empty", command)
	}
	return ProcessConfig{Name: words[0], Args: append(words[1:], args...)}, nil
}
