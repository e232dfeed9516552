// Package preview encodes rendered color frames into a turntable video with ffmpeg.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/logging"
)

// DefaultFrameRate is used when no frame rate is configured.
const DefaultFrameRate = 4

// ErrFFmpegNotFound is returned when there is no ffmpeg binary in PATH.
var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")

// Config describes the preview video.
type Config struct {
	Path      string `json:"path"`
	FrameRate int    `json:"frame_rate,omitempty"`
	// OutputKWArgs are passed to ffmpeg as output options, e.g. {"vcodec": "libx264"}.
	OutputKWArgs map[string]interface{} `json:"output_kw_args,omitempty"`
}

// Validate ensures the config can be used.
func (cfg *Config) Validate(path string) error {
	if cfg.Path == "" {
		return errors.Errorf("%s.path: a video file is required", path)
	}
	if cfg.FrameRate < 0 {
		return errors.Errorf("%s.frame_rate: must not be negative", path)
	}
	return nil
}

const framePattern = "%06d.png"

// stream builds the ffmpeg invocation reading numbered frames from dir.
func stream(cfg *Config, dir string) *ffmpeg.Stream {
	fps := cfg.FrameRate
	if fps == 0 {
		fps = DefaultFrameRate
	}
	outArgs := ffmpeg.KwArgs{"pix_fmt": "yuv420p"}
	for k, v := range cfg.OutputKWArgs {
		outArgs[k] = v
	}
	return ffmpeg.Input(filepath.Join(dir, framePattern), ffmpeg.KwArgs{"framerate": fps}).
		Output(cfg.Path, outArgs).
		OverWriteOutput()
}

// Write encodes the color frames of res into cfg.Path.
func Write(ctx context.Context, cfg *Config, res *engine.Result, logger logging.Logger) error {
	if err := cfg.Validate("preview"); err != nil {
		return err
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFFmpegNotFound
	}
	if !res.Has(engine.KeyColors) {
		return errors.Errorf("cannot write a preview without %q", engine.KeyColors)
	}

	dir, err := os.MkdirTemp("", "synthcam-preview-")
	if err != nil {
		return errors.Wrap(err, "cannot create preview frame directory")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warnw("cannot remove preview frames", "dir", dir, "error", err)
		}
	}()
	for i, t := range res.Passes[engine.KeyColors] {
		img, err := engine.ColorImage(t)
		if err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		if err := imaging.Save(img, filepath.Join(dir, fmt.Sprintf(framePattern, i))); err != nil {
			return errors.Wrapf(err, "cannot write preview frame %d", i)
		}
	}

	var stderr bytes.Buffer
	s := stream(cfg, dir).WithErrorOutput(&stderr)
	s.Context = ctx
	logger.Debugw("encoding preview", "path", cfg.Path, "frames", res.Frames())
	if err := s.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
			msg = msg[i+1:]
		}
		return errors.Wrapf(err, "ffmpeg failed: %s", msg)
	}
	return nil
}
