// Command dagctl is the thin CLI host around the engine: it turns
// os.Args into an engine.Dispatch call and renders the engine.Response.
// It implements no engine logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/argus-sh/argus/cmd/dagctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
