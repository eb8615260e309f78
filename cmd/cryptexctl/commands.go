package main

import (
	"fmt"
	"runtime"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/RowanDark/cryptex/internal/cipher"
)

func (x *ctl) opsCmd() *cli.Command {
	return &cli.Command{
		Name:  "ops",
		Usage: "List the registered operations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  typeFlagName,
				Usage: "only list operations of this type (encode, decode, convert)",
			},
		},
		Action: x.opsAction,
	}
}

func (x *ctl) opsAction(c *cli.Context) error {
	ops := cipher.ListOperations()
	if t := c.String(typeFlagName); t != "" {
		ops = cipher.ListOperationsByType(cipher.OperationType(t))
	}
	w := tabwriter.NewWriter(x.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tINSECURE\tDESCRIPTION")
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", op.Name(), op.Type(), op.Insecure(), op.Description())
	}
	return w.Flush()
}

func (x *ctl) execCmd() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Run one operation on the input",
		ArgsUsage: "<operation> [input]",
		Flags:     []cli.Flag{paramFlag()},
		Action:    x.execAction,
	}
}

func (x *ctl) execAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing operation name")
	}
	op, err := cipher.LookupOperation(c.Args().First())
	if err != nil {
		return err
	}
	params, err := parseParams(c.StringSlice(paramFlagName))
	if err != nil {
		return err
	}
	input, err := x.readInput(c, 1)
	if err != nil {
		return err
	}
	if op.Insecure() {
		x.logger.WithField("operation", op.Name()).Debug("operation provides no confidentiality")
	}
	out, err := op.Execute(c.Context, []byte(input), params)
	if err != nil {
		return err
	}
	fmt.Fprintln(x.out, string(out))
	return nil
}

func (x *ctl) pipelineCmd() *cli.Command {
	return &cli.Command{
		Name:      "pipeline",
		Usage:     "Chain operations over the input",
		ArgsUsage: "[input]",
		Flags:     []cli.Flag{stepFlag(true), reverseFlag()},
		Action:    x.pipelineAction,
	}
}

func (x *ctl) pipelineAction(c *cli.Context) error {
	steps, err := parseSteps(c.StringSlice(stepFlagName))
	if err != nil {
		return err
	}
	input, err := x.readInput(c, 0)
	if err != nil {
		return err
	}
	out, err := runPipeline(c, &cipher.Pipeline{Operations: steps, Reversible: true}, input, c.Bool(reverseFlagName))
	if err != nil {
		return err
	}
	fmt.Fprintln(x.out, out)
	return nil
}

func runPipeline(c *cli.Context, pipeline *cipher.Pipeline, input string, reverse bool) (string, error) {
	if reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			return "", err
		}
		pipeline = reversed
	}
	out, err := pipeline.Execute(c.Context, []byte(input))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (x *ctl) convertCmd() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a number between radices 2 to 16",
		ArgsUsage: "<value>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: fromFlagName, Usage: "radix of the input value", Value: 10},
			&cli.IntFlag{Name: toFlagName, Usage: "radix of the output value", Value: 2},
			&cli.IntFlag{Name: widthFlagName, Usage: "left-pad the output with zeros to this width"},
		},
		Action: x.convertAction,
	}
}

func (x *ctl) convertAction(c *cli.Context) error {
	value, err := x.readInput(c, 0)
	if err != nil {
		return err
	}
	out, err := cipher.Convert(value, c.Int(fromFlagName), c.Int(toFlagName))
	if err != nil {
		return err
	}
	fmt.Fprintln(x.out, cipher.PadDigits(out, c.Int(widthFlagName)))
	return nil
}

func (x *ctl) affineKeyCmd() *cli.Command {
	return &cli.Command{
		Name:  "affine-key",
		Usage: "Generate a random valid affine key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  alphabetFlagName,
				Usage: "alphabet the key is generated for",
				Value: cipher.PrintableAlphabet,
			},
		},
		Action: x.affineKeyAction,
	}
}

func (x *ctl) affineKeyAction(c *cli.Context) error {
	alphabet := c.String(alphabetFlagName)
	key, err := cipher.GenerateAffineKey(alphabet)
	if err != nil {
		return err
	}
	fmt.Fprintf(x.out, "%d\t%s\n", key, cipher.DescribeAffineKey(key, alphabet))
	return nil
}

func (x *ctl) detectCmd() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Guess which encoding produced the input",
		ArgsUsage: "[input]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: decodeFlagName, Usage: "also try every suggested decoder"},
		},
		Action: x.detectAction,
	}
}

func (x *ctl) detectAction(c *cli.Context) error {
	input, err := x.readInput(c, 0)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(x.out, 0, 4, 2, ' ', 0)
	if c.Bool(decodeFlagName) {
		results, err := cipher.DecodeAll(c.Context, []byte(input))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ENCODING\tCONFIDENCE\tDECODED")
		for _, r := range results {
			decoded := r.Decoded
			if !r.Success {
				decoded = "error: " + r.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Detection.Encoding, percent(r.Detection.Confidence), decoded)
		}
		return w.Flush()
	}

	detections, err := cipher.NewSmartDetector().Detect(c.Context, []byte(input))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ENCODING\tCONFIDENCE\tOPERATION\tREASONING")
	for _, d := range detections {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Encoding, percent(d.Confidence), d.Operation, d.Reasoning)
	}
	return w.Flush()
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

func (x *ctl) versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(x.out, "cryptexctl %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
