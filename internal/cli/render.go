package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/io"
	"github.com/matzehuels/boothplan/pkg/pipeline"
	"github.com/matzehuels/boothplan/pkg/render"
)

const (
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"

	defaultPNGScale = 2.0
)

var validFormats = []string{formatSVG, formatPDF, formatPNG}

// mapOutputOpts controls how writeMaps draws each map.
type mapOutputOpts struct {
	formats    []string
	background bool    // draw the map image under the overlay
	scale      float64 // PNG scale factor
}

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output  string
	formats string
	chart   string
	mapOutputOpts
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{output: ".", formats: formatSVG}
	opts.scale = defaultPNGScale
	opts.background = true

	cmd := &cobra.Command{
		Use:   "render <result.json>",
		Short: "Draw a saved allocation result",
		Long: `Render draws every map of a result written by "allocate -o": booths as
filled polygons labelled with their project, cluster outlines with their
usage, on top of the map image when the floor plan gives its URL.

PDF and PNG output require librsvg (rsvg-convert).`,
		Example: `  boothplan render result.json -o maps/
  boothplan render result.json --format svg,png --scale 1 --chart usage.html`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFiles("json"),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(opts.formats)
			if err != nil {
				return err
			}
			opts.mapOutputOpts.formats = formats
			return c.runRender(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output directory")
	cmd.Flags().StringVar(&opts.formats, "format", opts.formats, "output format(s): svg, pdf, png (comma-separated)")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "also write an HTML cluster usage chart to this file")
	cmd.Flags().BoolVar(&opts.background, "background", opts.background, "draw the map image under the overlay")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")

	return cmd
}

func (c *CLI) runRender(resultPath string, opts renderOpts) error {
	res, err := io.ImportResult(resultPath)
	if err != nil {
		return err
	}
	c.Logger.Debug("result loaded", "run", res.RunID, "maps", len(res.Maps), "placements", len(res.Placements))

	paths, err := writeMaps(opts.output, res, opts.mapOutputOpts)
	if err != nil {
		return err
	}
	printSuccess("Rendered run %s", StyleValue.Render(res.RunID))
	for _, p := range paths {
		printFile(p)
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
	}
	return nil
}

// parseFormats splits and checks the --format flag.
func parseFormats(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{formatSVG}, nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(validFormats, f) {
			return nil, errs.New(errs.ErrCodeInvalidInput, "unknown format %q (must be svg, pdf or png)", f)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// writeMaps draws every map of res into dir and returns the written paths.
// Maps without placements are drawn too, so empty levels show their
// clusters.
func writeMaps(dir string, res *pipeline.Result, opts mapOutputOpts) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	for _, m := range res.Maps {
		svgOpts := []render.SVGOption{render.WithClusters(res.UsageOn(m.ID))}
		if opts.background && m.URL != "" {
			svgOpts = append(svgOpts, render.WithBackground(m.URL))
		}
		svg := render.SVG(m, 0, 0, res.PlacementsOn(m.ID), svgOpts...)

		for _, format := range opts.formats {
			data, err := convert(svg, format, opts.scale)
			if err != nil {
				return paths, err
			}
			path := filepath.Join(dir, mapFileName(m.ID, format))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return paths, fmt.Errorf("write %s: %w", path, err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func convert(svg []byte, format string, scale float64) ([]byte, error) {
	switch format {
	case formatPDF:
		return render.ToPDF(svg)
	case formatPNG:
		return render.ToPNG(svg, scale)
	default:
		return svg, nil
	}
}

// mapFileName turns a map ID into a safe file name such as "map-1.svg".
func mapFileName(id, format string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
	return "map-" + safe + "." + format
}
