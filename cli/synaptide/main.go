package main

import (
	"os"

	synaptidecmder "github.com/synaptideco/synaptide/cmd/synaptide"
)

func main() {
	cmd := synaptidecmder.NewSynaptideCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
