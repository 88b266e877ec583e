package main

import (
	"fmt"
	"os"

	"pyquest-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pyquest:", err)
		os.Exit(1)
	}
}
