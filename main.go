package main

import (
	"os"

	"github.com/wpilibsuite/sphinxext-photofinish/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
