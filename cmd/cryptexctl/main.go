package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/RowanDark/cryptex/internal/config"
	"github.com/RowanDark/cryptex/internal/logging"
)

// Version will be set during build time
var Version = "dev"

// ctl holds the state shared by every command of one invocation.
type ctl struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg    config.Config
	logger logging.Logger
}

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	x := &ctl{in: in, out: out, errOut: errOut, logger: logging.NewNop()}

	app := cli.NewApp()
	app.Name = "cryptexctl"
	app.Usage = "encode, decode and inspect classical cipher text"
	app.Version = Version
	app.Reader = in
	app.Writer = out
	app.ErrWriter = errOut
	// Step and param values carry their own commas.
	app.DisableSliceFlagSeparator = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    configFlagName,
			Aliases: []string{"c"},
			Usage:   "path to a cryptex YAML configuration file",
			EnvVars: []string{"CRYPTEX_CONFIG"},
		},
		&cli.StringFlag{
			Name:  logLevelFlagName,
			Usage: "override log.level (debug, info, warn, error)",
		},
	}
	app.Before = x.setup
	app.After = func(*cli.Context) error {
		return x.logger.Close()
	}
	app.Commands = cli.Commands{
		x.opsCmd(),
		x.execCmd(),
		x.pipelineCmd(),
		x.convertCmd(),
		x.affineKeyCmd(),
		x.detectCmd(),
		x.recipeCmd(),
		x.remoteCmd(),
		x.versionCmd(),
	}
	return app
}

// setup resolves the configuration and logger before any command runs.
func (x *ctl) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFlagName))
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if level := c.String(logLevelFlagName); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := cfg.NewLogger(logging.WithWriter(x.errOut))
	if err != nil {
		return err
	}
	x.cfg = cfg
	x.logger = logger
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Debug("loaded configuration")
	}
	return nil
}
