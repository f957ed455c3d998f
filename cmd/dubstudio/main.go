package main

import (
	"fmt"
	"os"

	"dubstudio/cmd/dubstudio/cmd"
	"dubstudio/internal/config"
)

func main() {
	// A missing .env is fine; variables may be set in the environment.
	if _, err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration warning: %v\n", err)
	}

	cmd.Execute()
}
