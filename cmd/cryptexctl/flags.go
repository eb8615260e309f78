package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/RowanDark/cryptex/internal/cipher"
)

const (
	configFlagName      = "config"
	logLevelFlagName    = "log-level"
	paramFlagName       = "param"
	stepFlagName        = "step"
	reverseFlagName     = "reverse"
	typeFlagName        = "type"
	fromFlagName        = "from"
	toFlagName          = "to"
	widthFlagName       = "width"
	alphabetFlagName    = "alphabet"
	decodeFlagName      = "decode"
	nameFlagName        = "name"
	descriptionFlagName = "description"
	tagFlagName         = "tag"
	reversibleFlagName  = "reversible"
	fileFlagName        = "file"
	queryFlagName       = "query"
	formatFlagName      = "format"
	outputFlagName      = "output"
	serverFlagName      = "server"
	grpcFlagName        = "grpc"
	timeoutFlagName     = "timeout"
	retriesFlagName     = "retries"
)

func paramFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    paramFlagName,
		Aliases: []string{"p"},
		Usage:   "operation parameter as key=value (repeatable)",
	}
}

func stepFlag(required bool) *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:     stepFlagName,
		Aliases:  []string{"s"},
		Usage:    "pipeline step as op[:key=value,key=value] (repeatable, applied in order)",
		Required: required,
	}
}

func reverseFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    reverseFlagName,
		Aliases: []string{"r"},
		Usage:   "run the inverse steps in reverse order",
	}
}

// parseParams turns key=value pairs into an operation parameter map. Values
// stay strings; the registry converts them to the parameter's type.
func parseParams(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

// parseStep parses "op" or "op:key=value,key=value".
func parseStep(arg string) (cipher.OperationConfig, error) {
	name, rest, hasParams := strings.Cut(arg, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return cipher.OperationConfig{}, fmt.Errorf("invalid step %q: missing operation name", arg)
	}
	step := cipher.OperationConfig{Name: name}
	if !hasParams || rest == "" {
		return step, nil
	}
	params, err := parseParams(strings.Split(rest, ","))
	if err != nil {
		return cipher.OperationConfig{}, fmt.Errorf("step %s: %w", name, err)
	}
	step.Parameters = params
	return step, nil
}

func parseSteps(args []string) ([]cipher.OperationConfig, error) {
	steps := make([]cipher.OperationConfig, 0, len(args))
	for _, arg := range args {
		step, err := parseStep(arg)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// readInput returns the positional argument at index, or stdin with one
// trailing newline removed when the argument is absent.
func (x *ctl) readInput(c *cli.Context, index int) (string, error) {
	if c.NArg() > index {
		return c.Args().Get(index), nil
	}
	data, err := io.ReadAll(bufio.NewReader(x.in))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}
