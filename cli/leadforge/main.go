package main

import (
	"os"

	leadforgecmder "github.com/leadforgeco/leadforge/cmd/leadforge"
)

func main() {
	cmd := leadforgecmder.NewLeadforgeCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
