package main

import (
	"os"

	"github.com/partio/partio-go/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
