// Package register registers all engines.
package register

import (
	// for engines.
	_ "go.viam.com/synthcam/engine/external"
	_ "go.viam.com/synthcam/engine/fake"
)
