package main

import (
	"fmt"
	"os"

	"github.com/techspeque/specstudio/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		code := cmd.ExitCode(err)
		if !cmd.IsExitStatus(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(code)
	}
}
