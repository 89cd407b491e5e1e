// hotswap runs an application and restarts it whenever its build output
// changes.
package main

import (
	"os"

	"github.com/hupe1980/hotswap/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
