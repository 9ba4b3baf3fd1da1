// Command shumzu encodes files into printable QR-code grids and decodes
// them back.
package main

import (
	"os"

	"github.com/shumzu/shumzu/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
