package main

import (
	"os"

	"inkwell/cli"
)

var osExit = os.Exit

func main() {
	osExit(cli.Run(os.Args[1:]))
}
