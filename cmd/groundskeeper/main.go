package main

import (
	"os"

	"github.com/solatis/groundskeeper/cmd/groundskeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
