// Package main is the CLI command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/synthcam/cli"
	// register engines.
	_ "go.viam.com/synthcam/engine/register"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
