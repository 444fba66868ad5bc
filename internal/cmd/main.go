package cmd

import (
	"bufio"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/partio/partio-go/internal/version"
)

// defaultCommand runs when the first argument is not a subcommand, so
// `partio-harness http://host:8000 key` behaves like `partio-harness run ...`.
const defaultCommand = "run"

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := args[0]

	log := hclog.New(&hclog.LoggerOptions{
		Name: cliName,
	})

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	return run(args, log, ui)
}

func run(args []string, log hclog.Logger, ui cli.Ui) int {
	cliName := args[0]

	if len(args) == 2 &&
		(args[1] == "-version" ||
			args[1] == "-v") {
		args = []string{cliName, "version"}
	}

	commands := initCommands(log, ui)
	args = withDefaultCommand(args, commands)

	c := &cli.CLI{
		Name:     cliName,
		Args:     args[1:],
		Version:  version.Version,
		Commands: commands,
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	return exitCode
}

// withDefaultCommand inserts the default subcommand when none is given.
func withDefaultCommand(args []string, commands map[string]cli.CommandFactory) []string {
	if len(args) == 1 {
		return append(args, defaultCommand)
	}
	first := args[1]
	if _, ok := commands[first]; ok {
		return args
	}
	if strings.HasPrefix(first, "-") {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], defaultCommand)
	return append(out, args[1:]...)
}
