// The main package for the seopipeline executable.
package main

import (
	"github.com/auditkit/seopipeline/cmd"
)

func main() {
	cmd.Execute()
}
