package main

import (
	"fmt"
	"os"

	"github.com/zeu5/edgeracer/benchmarks"
)

// main entry point to training and comparisons
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
