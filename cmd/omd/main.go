package main

import (
	"os"

	"github.com/qazz92/oh-my-droid/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
