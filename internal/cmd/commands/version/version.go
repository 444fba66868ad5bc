package version

import (
	"fmt"

	"github.com/partio/partio-go/internal/cmd/base"
	"github.com/partio/partio-go/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the harness version"
}

func (c *Command) Help() string {
	return `Usage: partio-harness version

  Print the version of the harness and the client library it exercises.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(fmt.Sprintf("partio-harness v%s", version.Version))
	return 0
}
