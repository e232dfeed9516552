package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/camring/ringplot"
	"go.viam.com/synthcam/config"
	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/engine/external"
	"go.viam.com/synthcam/logging"
	"go.viam.com/synthcam/preview"
	"go.viam.com/synthcam/session"
	"go.viam.com/synthcam/viewer"
)

func setupLogger(c *cli.Context) error {
	logger := logging.NewLoggerWithOptions("synthcam", logging.Options{
		Debug: c.Bool(flagDebug),
		File:  c.String(flagLogFile),
	})
	logging.ReplaceGlobal(logger)
	c.App.Metadata[loggerKey] = logger
	return nil
}

func loggerFrom(c *cli.Context) logging.Logger {
	if logger, ok := c.App.Metadata[loggerKey].(logging.Logger); ok {
		return logger
	}
	return logging.Global()
}

// PlanAction is the corresponding Action for 'plan'.
func PlanAction(c *cli.Context) error {
	params := ringParams(c)
	var (
		ring camring.Ring
		err  error
	)
	if out := c.String(planFlagOut); out != "" {
		ring, err = camring.PlanToFile(params, out)
	} else {
		ring, err = camring.Plan(params)
	}
	if err != nil {
		return err
	}
	printRing(c.App.Writer, ring)
	if out := c.String(planFlagOut); out != "" {
		printf(c.App.Writer, "wrote %d poses to %s", len(ring), out)
	}
	if plotPath := c.String(planFlagPlot); plotPath != "" {
		if err := ringplot.Save(ring, plotPath); err != nil {
			return err
		}
		printf(c.App.Writer, "saved plot to %s", plotPath)
	}
	return nil
}

// PosesAction is the corresponding Action for 'poses'.
func PosesAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("poses takes exactly one pose file")
	}
	ring, err := camring.ReadPoseFile(c.Args().First())
	if err != nil {
		return err
	}
	printRing(c.App.Writer, ring)
	return nil
}

// RenderAction is the corresponding Action for 'render'. The pose file is rendered as is; use
// 'plan' or 'run' to create it.
func RenderAction(c *cli.Context) error {
	if c.NArg() > 3 {
		return errors.Errorf("render takes at most 3 arguments but got %d", c.NArg())
	}
	cfg, err := renderConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate("flags"); err != nil {
		return err
	}
	return runSession(c, cfg.Session())
}

func renderConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	cfg.Ring = nil
	args := c.Args()
	if args.Len() > 0 {
		cfg.PoseFilePath = args.Get(0)
	}
	if args.Len() > 1 {
		cfg.ScenePath = args.Get(1)
	}
	if args.Len() > 2 {
		cfg.OutputDir = args.Get(2)
	}
	cfg.Mode = session.OutputMode(c.String(renderFlagMode))
	cfg.Categories = c.String(renderFlagCategories)
	cfg.Resolution = config.Resolution{Width: c.Int(renderFlagWidth), Height: c.Int(renderFlagHeight)}

	cfg.Engine = config.Engine{Name: c.String(renderFlagEngine), Attributes: engine.Attributes{}}
	if cfg.Engine.Name == external.ModelName {
		cfg.Engine.Attributes["command"] = c.String(renderFlagEngineCmd)
	}

	if name := c.String(renderFlagObject); name != "" {
		position, err := vec3(c, renderFlagPosition)
		if err != nil {
			return nil, err
		}
		rotation, err := vec3(c, renderFlagRotation)
		if err != nil {
			return nil, err
		}
		cfg.Relocation = &config.Relocation{Object: name, Position: position, Rotation: rotation}
	} else if c.IsSet(renderFlagPosition) || c.IsSet(renderFlagRotation) {
		return nil, errors.Errorf("--%s and --%s need --%s", renderFlagPosition, renderFlagRotation, renderFlagObject)
	}

	if c.Bool(renderFlagView) {
		cfg.Viewer = &viewer.Config{Command: viewer.DefaultCommand}
	}
	if path := c.String(renderFlagPreview); path != "" {
		cfg.Preview = &preview.Config{Path: path}
	}
	return cfg, nil
}

// vec3 reads a x,y,z flag, an unset flag is the zero vector.
func vec3(c *cli.Context, name string) ([3]float64, error) {
	var out [3]float64
	if !c.IsSet(name) {
		return out, nil
	}
	values := c.Float64Slice(name)
	if len(values) != 3 {
		return out, errors.Errorf("--%s needs 3 comma separated values but got %d", name, len(values))
	}
	copy(out[:], values)
	return out, nil
}

// SchemaAction is the corresponding Action for 'schema'.
func SchemaAction(c *cli.Context) error {
	var schema interface{} = config.Schema()
	if name := c.Args().First(); name != "" {
		engineSchema, ok := engine.AttributeSchema(name)
		if !ok {
			return errors.Wrapf(engine.ErrUnknownEngine, "%q is not one of %s", name, registeredEngines())
		}
		schema = engineSchema
	}
	md, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode schema")
	}
	printf(c.App.Writer, "%s", md)
	return nil
}

// RunAction is the corresponding Action for 'run'.
func RunAction(c *cli.Context) error {
	cfg, err := config.Read(c.Context, c.String(flagConfig), loggerFrom(c))
	if err != nil {
		return err
	}
	return runSession(c, cfg.Session())
}

func runSession(c *cli.Context, cfg *session.Config) error {
	summary, err := session.Run(c.Context, cfg, loggerFrom(c))
	if summary != nil {
		printSummary(c.App.Writer, summary)
	}
	return err
}

func printRing(w io.Writer, ring camring.Ring) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "X", "Y", "Z", "RX", "RY", "RZ"})
	for i, p := range ring {
		fields := strings.Fields(camring.FormatPose(p))
		row := table.Row{i}
		for _, f := range fields {
			row = append(row, f)
		}
		t.AppendRow(row)
	}
	printf(w, "%s", t.Render())
}

func printSummary(w io.Writer, summary *session.Summary) {
	printf(w, "run %s: rendered %d frames of %d objects", summary.RunID, summary.Frames, summary.Objects)
	printf(w, "dataset: %s", summary.DataDir)
	if summary.Annotations != "" {
		printf(w, "annotations: %s", summary.Annotations)
	}
	if summary.Preview != "" {
		printf(w, "preview: %s", summary.Preview)
	}
}

func registeredEngines() string {
	return strings.Join(engine.Registered(), ", ")
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
