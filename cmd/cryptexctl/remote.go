package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/RowanDark/cryptex/internal/client"
)

func (x *ctl) remoteCmd() *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Talk to a running cryptexd",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: serverFlagName, Usage: "cryptexd HTTP address (defaults to client.server)"},
			&cli.StringFlag{Name: grpcFlagName, Usage: "cryptexd gRPC health address (defaults to grpc.addr)"},
			&cli.DurationFlag{Name: timeoutFlagName, Usage: "per-request timeout (defaults to client.timeout)"},
			&cli.IntFlag{Name: retriesFlagName, Usage: "retries for transient failures (defaults to client.retries)", Value: -1},
		},
		Subcommands: cli.Commands{
			{
				Name:      "exec",
				Usage:     "Run one operation on the server",
				ArgsUsage: "<operation> [input]",
				Flags:     []cli.Flag{paramFlag()},
				Action:    x.remoteExecAction,
			},
			{
				Name:      "pipeline",
				Usage:     "Run a pipeline on the server",
				ArgsUsage: "[input]",
				Flags:     []cli.Flag{stepFlag(true), reverseFlag()},
				Action:    x.remotePipelineAction,
			},
			{
				Name:   "ops",
				Usage:  "List the operations the server offers",
				Action: x.remoteOpsAction,
			},
			{
				Name:   "health",
				Usage:  "Check the server's HTTP and gRPC health",
				Action: x.remoteHealthAction,
			},
		},
	}
}

// remoteClient builds an API client from the config, with the remote
// command's flags taking precedence.
func (x *ctl) remoteClient(c *cli.Context) (*client.Client, error) {
	cfg := client.Config{
		Server:  x.cfg.Client.Server,
		Timeout: x.cfg.Client.Timeout,
		Retries: x.cfg.Client.Retries,
		Backoff: x.cfg.Client.Backoff,
		Logger:  x.logger,
	}
	if s := c.String(serverFlagName); s != "" {
		cfg.Server = s
	}
	if d := c.Duration(timeoutFlagName); d > 0 {
		cfg.Timeout = d
	}
	if r := c.Int(retriesFlagName); r >= 0 {
		cfg.Retries = r
	}
	return client.New(cfg)
}

func (x *ctl) remoteExecAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing operation name")
	}
	params, err := parseParams(c.StringSlice(paramFlagName))
	if err != nil {
		return err
	}
	input, err := x.readInput(c, 1)
	if err != nil {
		return err
	}
	cl, err := x.remoteClient(c)
	if err != nil {
		return err
	}
	out, err := cl.Execute(c.Context, c.Args().First(), input, params)
	if err != nil {
		return err
	}
	fmt.Fprintln(x.out, out)
	return nil
}

func (x *ctl) remotePipelineAction(c *cli.Context) error {
	steps, err := parseSteps(c.StringSlice(stepFlagName))
	if err != nil {
		return err
	}
	input, err := x.readInput(c, 0)
	if err != nil {
		return err
	}
	cl, err := x.remoteClient(c)
	if err != nil {
		return err
	}
	out, err := cl.Pipeline(c.Context, input, steps, c.Bool(reverseFlagName))
	if err != nil {
		return err
	}
	fmt.Fprintln(x.out, out)
	return nil
}

func (x *ctl) remoteOpsAction(c *cli.Context) error {
	cl, err := x.remoteClient(c)
	if err != nil {
		return err
	}
	ops, err := cl.Operations(c.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(x.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tINSECURE\tDESCRIPTION")
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", op.Name, op.Type, op.Insecure, op.Description)
	}
	return w.Flush()
}

func (x *ctl) remoteHealthAction(c *cli.Context) error {
	cl, err := x.remoteClient(c)
	if err != nil {
		return err
	}
	if err := cl.Health(c.Context); err != nil {
		return fmt.Errorf("http health: %w", err)
	}
	fmt.Fprintln(x.out, "http: ok")

	addr := c.String(grpcFlagName)
	if addr == "" {
		addr = x.cfg.GRPC.Addr
	}
	resp, err := checkGRPCHealth(c.Context, addr, x.cfg.Client.Timeout)
	if err != nil {
		return fmt.Errorf("grpc health: %w", err)
	}
	data, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(resp)
	if err != nil {
		return err
	}
	fmt.Fprintf(x.out, "grpc: %s\n", data)
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc health: server reports %s", resp.GetStatus())
	}
	return nil
}

func checkGRPCHealth(ctx context.Context, addr string, timeout time.Duration) (*grpc_health_v1.HealthCheckResponse, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
}
