// Relpack packages a source tree and registers it in a package registry.
package main

import (
	"github.com/albertocavalcante/relpack/cmd/relpack/internal/cli"
)

func main() {
	cli.Execute()
}
