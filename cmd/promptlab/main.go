// Command promptlab evaluates and benchmarks prompt templates for small
// language models.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
