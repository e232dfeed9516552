// Package viewer launches an annotation viewer over a written dataset.
package viewer

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/synthcam/logging"
	"go.viam.com/synthcam/rexec"
)

// DefaultCommand opens a COCO dataset with cocoviewer.
const DefaultCommand = "python cocoviewer.py -i {images} -a {annotations}"

// Placeholders substituted in every argument of the command.
const (
	PlaceholderImages      = "{images}"
	PlaceholderAnnotations = "{annotations}"
	PlaceholderOutput      = "{output}"
)

// Config describes the viewer to run.
type Config struct {
	Command string `json:"command"`
	WorkDir string `json:"work_dir,omitempty"`
}

// Paths are what a viewer can be pointed at.
type Paths struct {
	Images      string
	Annotations string
	Output      string
}

// Validate ensures the command can be parsed.
func (cfg *Config) Validate(path string) error {
	if _, err := rexec.NewProcessConfigFromCommand(cfg.Command); err != nil {
		return errors.Wrapf(err, "%s.command", path)
	}
	return nil
}

// ProcessConfig splits the command and fills in the placeholders. Substitution happens after
// splitting so paths containing spaces stay a single argument.
func (cfg *Config) ProcessConfig(paths Paths) (rexec.ProcessConfig, error) {
	config, err := rexec.NewProcessConfigFromCommand(cfg.Command)
	if err != nil {
		return rexec.ProcessConfig{}, err
	}
	replacer := strings.NewReplacer(
		PlaceholderImages, paths.Images,
		PlaceholderAnnotations, paths.Annotations,
		PlaceholderOutput, paths.Output,
	)
	config.Name = replacer.Replace(config.Name)
	for i, arg := range config.Args {
		config.Args[i] = replacer.Replace(arg)
	}
	config.CWD = cfg.WorkDir
	config.Log = true
	return config, nil
}

// Run runs the viewer and waits for it to exit. Call it only once the dataset is written.
func Run(ctx context.Context, cfg *Config, paths Paths, logger logging.Logger) error {
	config, err := cfg.ProcessConfig(paths)
	if err != nil {
		return err
	}
	logger.Infow("starting viewer", "command", config.Name, "args", config.Args)
	if _, err := rexec.Run(ctx, config, logger); err != nil {
		return errors.Wrap(err, "viewer failed")
	}
	return nil
}
