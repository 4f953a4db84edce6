// smartcube - hub daemon and tooling for Bluetooth smart cubes.
package main

import (
	"github.com/cubesense/smartcube/internal/cli"
)

func main() {
	cli.Execute()
}
