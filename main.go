// The main package for the hnsync executable.
package main

import (
	"github.com/JakeFAU/hn-dataset-sync/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
