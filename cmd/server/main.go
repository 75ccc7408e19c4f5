// Package main provides the entry point for the call-assist server.
package main

import (
	"fmt"
	"os"

	"github.com/raihanakbr/call-assist/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
