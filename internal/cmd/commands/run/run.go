package run

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/partio/partio-go/internal/cmd/base"
	"github.com/partio/partio-go/internal/config"
	"github.com/partio/partio-go/internal/harness"
)

type Command struct {
	*base.Command

	// Loader reads the configuration. Defaults to config.NewLoader().
	Loader *config.Loader

	// Transport overrides the HTTP transport of the harness clients.
	Transport http.RoundTripper
}

func (c *Command) Synopsis() string {
	return "Run the conformance suite against a Partio deployment"
}

func (c *Command) Help() string {
	return `Usage: partio-harness [run] [endpoint-url] [admin-key]

  Run every conformance step in order against the Partio platform at
  endpoint-url, authenticating with admin-key, and print one line per step
  followed by a summary. Exits 0 only when no step failed.

  endpoint-url defaults to ` + config.DefaultEndpoint + ` and admin-key to
  ` + config.DefaultAdminKey + `. Both can also be set with ` + config.EnvEndpoint + `
  and ` + config.EnvAdminKey + `, in a .env file, or in the HCL file named by
  ` + config.EnvConfigFile + `.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	return base.NewFlagSet(flag.NewFlagSet("run", flag.ContinueOnError))
}

func (c *Command) Run(args []string) int {
	logger, ui := c.Log, c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	loader := c.Loader
	if loader == nil {
		loader = config.NewLoader()
	}
	cfg, err := loader.Load(flags.Args())
	if err != nil {
		ui.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	logger.SetLevel(cfg.Level())

	ui.Output("Partio Go SDK Test Harness")
	ui.Output("Endpoint: " + cfg.Endpoint)
	ui.Output("Admin Key: " + cfg.AdminKey)
	ui.Output("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suite, err := harness.NewSuite(harness.SuiteConfig{
		Endpoint:      cfg.Endpoint,
		AdminKey:      cfg.AdminKey,
		Timeout:       cfg.Timeout,
		TLSSkipVerify: cfg.TLSSkipVerify,
		Transport:     c.Transport,
		Logger:        logger,
	})
	if err != nil {
		ui.Error(fmt.Sprintf("error creating suite: %v", err))
		return 1
	}
	defer suite.Close()

	if err := harness.WaitForHealthy(ctx, suite.Client(), cfg.WaitForHealthy, logger); err != nil {
		ui.Error(err.Error())
		return 1
	}

	runner := harness.NewRunner(harness.RunnerOptions{
		UI:                   ui,
		Logger:               logger,
		CountSkipsAsFailures: cfg.CountSkipsAsFailures,
	})
	summary := suite.Run(ctx, runner)

	ui.Output("")
	ui.Output(strings.TrimRight(summary.String(), "\n"))

	logger.Debug("suite finished",
		"total", summary.Total,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"runtime", summary.Runtime,
	)
	return summary.ExitCode()
}
