package main

import (
	"context"
	"os"

	"DailySets/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
