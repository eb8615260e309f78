package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"

	"github.com/RowanDark/cryptex/internal/api"
	"github.com/RowanDark/cryptex/internal/cipher"
	"github.com/RowanDark/cryptex/internal/config"
	"github.com/RowanDark/cryptex/internal/health"
	"github.com/RowanDark/cryptex/internal/logging"
)

// Version is set during build time.
var Version = "dev"

const grpcStopTimeout = 2 * time.Second

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a cryptex YAML configuration file",
		EnvVars: []string{"CRYPTEX_CONFIG"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "override log.level (debug, info, warn, error)",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "cryptexd"
	app.Usage = "serve the cryptex cipher API"
	app.Version = Version
	app.Flags = []cli.Flag{configFlag, logLevelFlag}
	app.Action = mainAction

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainAction(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if level := c.String(logLevelFlag.Name); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Close()
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Info("loaded configuration")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, logger)
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	httpLis, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr, err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}
	defer httpLis.Close()
	defer grpcLis.Close()

	return serve(ctx, cfg, logger, httpLis, grpcLis)
}

// serve runs the HTTP API on httpLis and the health service on grpcLis
// until ctx is cancelled or either server fails.
func serve(ctx context.Context, cfg config.Config, logger logging.Logger, httpLis, grpcLis net.Listener) error {
	if err := cipher.SetDefaultRadixCacheSize(cfg.Cache.RadixSize); err != nil {
		return err
	}

	recipes := cipher.NewRecipeManager(cfg.Recipes.Dir)
	if err := recipes.LoadRecipes(); err != nil {
		return fmt.Errorf("load recipes: %w", err)
	}
	logger.WithFields(log.Fields{
		"dir":     cfg.Recipes.Dir,
		"recipes": len(recipes.ListRecipes()),
	}).Info("recipes loaded")

	apiServer, err := api.NewServer(api.Config{
		Addr:           cfg.HTTP.Addr,
		MaxConnections: cfg.HTTP.MaxConnections,
		Recipes:        recipes,
		Logger:         logger,
		Metrics:        metrics.NewRegistry(),
	})
	if err != nil {
		return err
	}

	healthSvc := health.New()
	grpcServer := grpc.NewServer()
	healthSvc.Register(grpcServer)

	grpcErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", grpcLis.Addr().String()).Info("health service listening")
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			grpcErr <- err
			return
		}
		grpcErr <- nil
	}()

	apiCtx, cancelAPI := context.WithCancel(ctx)
	defer cancelAPI()
	apiErr := make(chan error, 1)
	go func() {
		apiErr <- apiServer.Serve(apiCtx, httpLis)
	}()
	healthSvc.SetServing()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-apiErr:
		apiErr = nil
	case runErr = <-grpcErr:
		grpcErr = nil
	}

	logger.Info("shutting down")
	healthSvc.Shutdown()
	cancelAPI()
	if apiErr != nil {
		if err := <-apiErr; err != nil && runErr == nil {
			runErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grpcStopTimeout):
		grpcServer.Stop()
	}
	if grpcErr != nil {
		if err := <-grpcErr; err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
