package main

import (
	"os"

	"github.com/msto63/condparse/cmd/condparse/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
