package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boothplan/pkg/io"
	"github.com/matzehuels/boothplan/pkg/pipeline"
	"github.com/matzehuels/boothplan/pkg/render"
)

// allocateOpts holds the flags of the allocate command.
type allocateOpts struct {
	floorPlan string // floor plan file, floorplan.toml when empty
	output    string // result JSON path
	svgDir    string // directory for one SVG per map
	chart     string // HTML usage chart path
	refresh   bool   // recompute even when cached
	lockKey   string // run lock name, the floor plan hash when empty
	backend   backendOpts
}

// allocateCommand creates the allocate command.
func (c *CLI) allocateCommand() *cobra.Command {
	var opts allocateOpts

	cmd := &cobra.Command{
		Use:   "allocate <projects>",
		Short: "Place projects on the floor plan",
		Long: `Allocate reads the projects (.csv, .json or .xlsx) and places them in
file order: each project goes to the cluster offering the best score for
its footprint. Projects no cluster can take are listed as skipped.`,
		Example: `  boothplan allocate projects.csv -f examples/floorplan.toml -o result.json --svg out/
  boothplan allocate projects.xlsx --redis redis://localhost:6379/0 --chart usage.html`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFiles("csv", "json", "xlsx"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAllocate(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.floorPlan, "floorplan", "f", "", "floor plan file (default floorplan.toml)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result as JSON to this file")
	cmd.Flags().StringVar(&opts.svgDir, "svg", "", "write one SVG overlay per map into this directory")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "write an HTML cluster usage chart to this file")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if the result is cached")
	cmd.Flags().StringVar(&opts.lockKey, "lock-key", "", "name of the run lock (default: hash of the floor plan)")
	opts.backend.register(cmd)
	_ = cmd.RegisterFlagCompletionFunc("floorplan", completeFiles("toml", "yaml", "yml", "json"))

	return cmd
}

func (c *CLI) runAllocate(ctx context.Context, projectsPath string, opts allocateOpts) error {
	fp, err := loadFloorPlan(opts.floorPlan)
	if err != nil {
		return err
	}
	projects, err := io.ImportDemands(projectsPath)
	if err != nil {
		return err
	}
	c.Logger.Debug("inputs loaded", "maps", len(fp.Maps), "clusters", len(fp.Clusters), "projects", len(projects))

	runner, closeBackend, err := c.newRunner(ctx, opts.backend)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			c.Logger.Warn("close backend", "err", err)
		}
	}()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Allocating %d projects", len(projects)))
	spinner.Start()
	res, err := runner.Run(ctx, fp.Input(projects), pipeline.Options{
		Alloc:   fp.Options(),
		LockKey: opts.lockKey,
		Refresh: opts.refresh,
	})
	if err != nil {
		spinner.StopWithError("Allocation failed")
		return err
	}
	spinner.Stop()
	prog.done("allocation finished", "placed", res.Stats.Placed, "cached", res.CacheHit)

	printResult(res)
	return writeAllocateOutputs(res, opts)
}

func writeAllocateOutputs(res *pipeline.Result, opts allocateOpts) error {
	var wrote bool
	fmt.Println()

	if opts.output != "" {
		if err := io.ExportResult(opts.output, res); err != nil {
			return err
		}
		printFile(opts.output)
		wrote = true
	}
	if opts.svgDir != "" {
		paths, err := writeMaps(opts.svgDir, res, mapOutputOpts{formats: []string{formatSVG}, background: true})
		if err != nil {
			return err
		}
		for _, p := range paths {
			printFile(p)
		}
		wrote = true
	}
	if opts.chart != "" {
		html, err := render.UsageChart(res.Usage)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.chart, html, 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		printFile(opts.chart)
		wrote = true
	}

	if !wrote {
		printNextStep("Save the result", fmt.Sprintf("%s allocate <projects> -f %s -o result.json", appName, floorPlanArg(opts.floorPlan)))
	} else if opts.output != "" {
		printNextStep("Render it later", fmt.Sprintf("%s render %s -o maps/", appName, opts.output))
	}
	return nil
}

func floorPlanArg(path string) string {
	if path == "" {
		return defaultFloorPlan
	}
	return path
}
