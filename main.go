package main

import (
	"os"

	"github.com/rtzll/viralscripter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
