package main

import (
	"fmt"
	"os"

	"github.com/tsawler/go-funcinfo/cmd/funcinfo/root"
)

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
