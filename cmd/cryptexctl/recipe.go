package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	atomicfile "github.com/natefinch/atomic"
	"github.com/urfave/cli/v2"

	"github.com/RowanDark/cryptex/internal/cipher"
)

func (x *ctl) recipeCmd() *cli.Command {
	return &cli.Command{
		Name:  "recipe",
		Usage: "Manage saved pipelines",
		Subcommands: cli.Commands{
			{
				Name:  "save",
				Usage: "Save a pipeline as a named recipe, from flags or a JSON/YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: nameFlagName, Aliases: []string{"n"}, Usage: "recipe name"},
					&cli.StringFlag{Name: descriptionFlagName, Aliases: []string{"d"}, Usage: "recipe description"},
					&cli.StringSliceFlag{Name: tagFlagName, Usage: "recipe tag (repeatable)"},
					stepFlag(false),
					&cli.BoolFlag{Name: reversibleFlagName, Usage: "allow the recipe to run in reverse", Value: true},
					&cli.StringFlag{Name: fileFlagName, Aliases: []string{"f"}, Usage: "import the recipe from a .json, .yaml or .yml file"},
				},
				Action: x.recipeSaveAction,
			},
			{
				Name:  "list",
				Usage: "List saved recipes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: queryFlagName, Aliases: []string{"q"}, Usage: "only list recipes whose name, description or tags match"},
				},
				Action: x.recipeListAction,
			},
			{
				Name:      "show",
				Usage:     "Print a recipe as JSON",
				ArgsUsage: "<name>",
				Action:    x.recipeShowAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a recipe",
				ArgsUsage: "<name>",
				Action:    x.recipeDeleteAction,
			},
			{
				Name:      "run",
				Usage:     "Run a recipe over the input",
				ArgsUsage: "<name> [input]",
				Flags:     []cli.Flag{reverseFlag()},
				Action:    x.recipeRunAction,
			},
			{
				Name:      "export",
				Usage:     "Export a recipe as YAML",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: outputFlagName, Aliases: []string{"o"}, Usage: "write to this file instead of stdout"},
				},
				Action: x.recipeExportAction,
			},
		},
	}
}

func (x *ctl) recipes() (*cipher.RecipeManager, error) {
	rm := cipher.NewRecipeManager(x.cfg.Recipes.Dir)
	if err := rm.LoadRecipes(); err != nil {
		return nil, err
	}
	return rm, nil
}

func (x *ctl) lookupRecipe(c *cli.Context) (*cipher.Recipe, *cipher.RecipeManager, error) {
	if c.NArg() < 1 {
		return nil, nil, fmt.Errorf("missing recipe name")
	}
	rm, err := x.recipes()
	if err != nil {
		return nil, nil, err
	}
	name := c.Args().First()
	recipe, ok := rm.GetRecipe(name)
	if !ok {
		return nil, nil, fmt.Errorf("recipe %q not found", name)
	}
	return recipe, rm, nil
}

func (x *ctl) recipeSaveAction(c *cli.Context) error {
	var recipe *cipher.Recipe
	if path := c.String(fileFlagName); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if recipe, err = cipher.ParseRecipe(data, filepath.Ext(path)); err != nil {
			return err
		}
		if name := c.String(nameFlagName); name != "" {
			recipe.Name = name
		}
	} else {
		steps, err := parseSteps(c.StringSlice(stepFlagName))
		if err != nil {
			return err
		}
		recipe = &cipher.Recipe{
			Name:        c.String(nameFlagName),
			Description: c.String(descriptionFlagName),
			Tags:        c.StringSlice(tagFlagName),
			Pipeline: cipher.Pipeline{
				Operations: steps,
				Reversible: c.Bool(reversibleFlagName),
			},
		}
	}

	rm, err := x.recipes()
	if err != nil {
		return err
	}
	if err := rm.SaveRecipe(recipe); err != nil {
		return err
	}
	x.logger.WithField("recipe", recipe.Name).Info("recipe saved")
	fmt.Fprintf(x.out, "saved recipe %s (%d steps)\n", recipe.Name, len(recipe.Pipeline.Operations))
	return nil
}

func (x *ctl) recipeListAction(c *cli.Context) error {
	rm, err := x.recipes()
	if err != nil {
		return err
	}
	recipes := rm.ListRecipes()
	if q := c.String(queryFlagName); q != "" {
		recipes = rm.SearchRecipes(q)
	}
	w := tabwriter.NewWriter(x.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tREVERSIBLE\tUPDATED\tDESCRIPTION")
	for _, r := range recipes {
		fmt.Fprintf(w, "%s\t%d\t%t\t%s\t%s\n",
			r.Name,
			len(r.Pipeline.Operations),
			r.Pipeline.Reversible,
			updatedAgo(r.UpdatedAt),
			r.Description,
		)
	}
	return w.Flush()
}

func updatedAgo(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return "-"
	}
	return humanize.Time(t)
}

func (x *ctl) recipeShowAction(c *cli.Context) error {
	recipe, _, err := x.lookupRecipe(c)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(x.out)
	enc.SetIndent("", "  ")
	return enc.Encode(recipe)
}

func (x *ctl) recipeDeleteAction(c *cli.Context) error {
	recipe, rm, err := x.lookupRecipe(c)
	if err != nil {
		return err
	}
	if err := rm.DeleteRecipe(recipe.Name); err != nil {
		return err
	}
	fmt.Fprintf(x.out, "deleted recipe %s\n", recipe.Name)
	return nil
}

func (x *ctl) recipeRunAction(c *cli.Context) error {
	recipe, _, err := x.lookupRecipe(c)
	if err != nil {
		return err
	}
	input, err := x.readInput(c, 1)
	if err != nil {
		return err
	}
	pipeline := recipe.Pipeline
	out, err := runPipeline(c, &pipeline, input, c.Bool(reverseFlagName))
	if err != nil {
		return fmt.Errorf("recipe %s: %w", recipe.Name, err)
	}
	fmt.Fprintln(x.out, out)
	return nil
}

func (x *ctl) recipeExportAction(c *cli.Context) error {
	recipe, _, err := x.lookupRecipe(c)
	if err != nil {
		return err
	}
	data, err := cipher.ExportYAML(recipe)
	if err != nil {
		return err
	}
	path := strings.TrimSpace(c.String(outputFlagName))
	if path == "" {
		_, err = x.out.Write(data)
		return err
	}
	if err := atomicfile.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	fmt.Fprintf(x.out, "exported recipe %s to %s\n", recipe.Name, path)
	return nil
}
