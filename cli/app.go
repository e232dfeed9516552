// Package cli contains the synthcam command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/config"
	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/engine/external"
	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/session"
)

// Flags.
const (
	flagDebug   = "debug"
	flagLogFile = "log-file"
	flagConfig  = "config"

	planFlagRadius  = "radius"
	planFlagHeight  = "height"
	planFlagSamples = "samples"
	planFlagOut     = "out"
	planFlagPlot    = "plot"

	renderFlagMode       = "mode"
	renderFlagEngine     = "engine"
	renderFlagEngineCmd  = "engine-cmd"
	renderFlagCategories = "categories"
	renderFlagObject     = "object"
	renderFlagPosition   = "position"
	renderFlagRotation   = "rotation"
	renderFlagWidth      = "width"
	renderFlagHeight     = "height"
	renderFlagView       = "view"
	renderFlagPreview    = "preview"
)

const loggerKey = "logger"

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "synthcam",
		Usage:           "render synthetic datasets from a ring of cameras",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Metadata:        map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "additionally write JSON logs to a rotated `FILE`",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "plan",
				Usage:  "plan a ring of cameras and write it as a pose file",
				Action: PlanAction,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  planFlagRadius,
						Usage: "distance of every camera from the ring axis",
						Value: config.DefaultRing.Radius,
					},
					&cli.Float64Flag{
						Name:  planFlagHeight,
						Usage: "height of the ring, must not be 0",
						Value: config.DefaultRing.Height,
					},
					&cli.IntFlag{
						Name:  planFlagSamples,
						Usage: "number of cameras",
						Value: config.DefaultRing.Samples,
					},
					&cli.StringFlag{
						Name:  planFlagOut,
						Usage: "pose `FILE` to write, nothing is written when empty",
						Value: config.DefaultPoseFilePath,
					},
					&cli.StringFlag{
						Name:  planFlagPlot,
						Usage: "also save a top-down plot of the ring to `FILE` (.png, .svg or .pdf)",
					},
				},
			},
			{
				Name:      "render",
				Usage:     "render the poses of a pose file",
				ArgsUsage: "[camera] [scene] [output_dir]",
				Action:    RenderAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  renderFlagMode,
						Usage: "output mode, coco or container",
						Value: string(session.ModeCOCO),
					},
					&cli.StringFlag{
						Name:  renderFlagEngine,
						Usage: "engine to render with, one of " + registeredEngines(),
						Value: external.ModelName,
					},
					&cli.StringFlag{
						Name:  renderFlagEngineCmd,
						Usage: "bridge command of the external engine, {bridge} stands for the bundled BlenderProc script",
						Value: external.DefaultCommand,
					},
					&cli.StringFlag{
						Name:  renderFlagCategories,
						Usage: "how objects are labeled, index or name_prefix",
						Value: scene.TaggerIndex,
					},
					&cli.StringFlag{
						Name:  renderFlagObject,
						Usage: "`NAME` of an object to move before rendering",
					},
					&cli.Float64SliceFlag{
						Name:  renderFlagPosition,
						Usage: "position x,y,z the object is moved to",
					},
					&cli.Float64SliceFlag{
						Name:  renderFlagRotation,
						Usage: "rotation rx,ry,rz in radians the object is moved to",
					},
					&cli.IntFlag{
						Name:  renderFlagWidth,
						Usage: "frame width in pixels",
						Value: engine.DefaultResolution,
					},
					&cli.IntFlag{
						Name:  renderFlagHeight,
						Usage: "frame height in pixels",
						Value: engine.DefaultResolution,
					},
					&cli.BoolFlag{
						Name:  renderFlagView,
						Usage: "open the COCO viewer once the dataset is written",
					},
					&cli.StringFlag{
						Name:  renderFlagPreview,
						Usage: "also encode the color frames into a video `FILE`",
					},
				},
			},
			{
				Name:   "run",
				Usage:  "plan and render as described by a config file",
				Action: RunAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Usage:    "load configuration from `FILE`",
						Required: true,
					},
				},
			},
			{
				Name:      "schema",
				Usage:     "print the JSON schema of config files, or of the attributes of an engine",
				ArgsUsage: "[engine]",
				Action:    SchemaAction,
			},
			{
				Name:      "poses",
				Usage:     "print the poses of a pose file",
				ArgsUsage: "<file>",
				Action:    PosesAction,
			},
		},
	}
}

// ringParams are the plan flags.
func ringParams(c *cli.Context) camring.Params {
	return camring.Params{
		Radius:  c.Float64(planFlagRadius),
		Height:  c.Float64(planFlagHeight),
		Samples: c.Int(planFlagSamples),
	}
}
