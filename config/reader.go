package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go.viam.com/synthcam/logging"
)

// Read reads a config from the given file. ${VAR} references are expanded from the environment
// before decoding.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", filePath)
	}
	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// The input is JSON5, so comments and trailing commas are allowed.
// Fields missing from the input keep the values of Default.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config")
	}
	// json5 has no strict mode; normalize to plain JSON so unknown fields are still rejected
	var raw interface{}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	cfg.ConfigFilePath = originalPath
	if err := cfg.Validate("config"); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	logger.Debugw("read config",
		"path", originalPath,
		"scene", cfg.ScenePath,
		"camera", cfg.PoseFilePath,
		"mode", cfg.Mode,
		"engine", cfg.Engine.Name,
		"plans_ring", cfg.Ring != nil,
	)
	return cfg, nil
}
