package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/partio/partio-go/internal/cmd/base"
	runcmd "github.com/partio/partio-go/internal/cmd/commands/run"
	"github.com/partio/partio-go/internal/cmd/commands/version"
)

func initCommands(log hclog.Logger, ui cli.Ui) map[string]cli.CommandFactory {
	b := base.NewCommand(log, ui)

	return map[string]cli.CommandFactory{
		"run": func() (cli.Command, error) {
			return &runcmd.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
