package main

import (
	"os"

	"github.com/quillworks/novelforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
