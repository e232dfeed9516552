// Package bridge ships the BlenderProc script the external engine runs by default.
package bridge

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileName is the name the script is installed under.
const FileName = "bridge.py"

// Placeholder in a bridge command is replaced with the path of the installed script.
const Placeholder = "{bridge}"

// Script is the bridge source.
//
//go:embed bridge.py
var Script []byte

// Install writes the script into dir and returns its absolute path.
func Install(dir string) (string, error) {
	path, err := filepath.Abs(filepath.Join(dir, FileName))
	if err != nil {
		return "", errors.Wrapf(err, "cannot resolve bridge path in %q", dir)
	}
	//nolint:gosec
	if err := os.WriteFile(path, Script, 0o644); err != nil {
		return "", errors.Wrap(err, "cannot install bridge")
	}
	return path, nil
}
