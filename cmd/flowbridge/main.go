// Package main provides the flowbridge command-line converter.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	err := newCommand(os.Stdout, os.Stderr).Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
