// Package config loads floor plans: the maps of a venue, the clusters drawn
// on them and the allocation settings.
//
// Floor plans are written in TOML, YAML or JSON with the same field names:
//
//	[settings]
//	basic_unit_size = 2.0
//	margin = 5
//	edge_rule = "outer"
//
//	[[maps]]
//	id = "1"
//	scale = 0.025
//
//	[[clusters]]
//	name = "atrium-north"
//	map = "1"
//	start = [2400, 2150]
//	end = [3100, 2150]
//	score = 100
//	rows = 3
//
// Load and Parse validate the plan before returning it, and report every
// problem at once rather than the first.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"sigs.k8s.io/yaml"

	"github.com/matzehuels/boothplan/pkg/alloc"
	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/geom"
	"github.com/matzehuels/boothplan/pkg/pipeline"
)

// Format is a floor plan encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "unsupported floor plan extension %q (must be .toml, .yaml, .yml or .json)", filepath.Ext(path))
}

// FloorPlan is a decoded floor plan file.
type FloorPlan struct {
	Settings Settings        `toml:"settings" json:"settings"`
	Maps     []MapConfig     `toml:"maps" json:"maps"`
	Clusters []ClusterConfig `toml:"clusters" json:"clusters"`
}

// Settings holds the allocation options. Unset fields take the defaults
// of alloc.DefaultOptions.
type Settings struct {
	BasicUnitSize float64  `toml:"basic_unit_size" json:"basic_unit_size,omitempty"`
	Margin        *float64 `toml:"margin" json:"margin,omitempty"`
	EdgeRule      string   `toml:"edge_rule" json:"edge_rule,omitempty"`
}

// MapConfig is one floor plan image. Width and Height size rendered
// overlays; when unset the renderer fits the clusters.
type MapConfig struct {
	ID     string  `toml:"id" json:"id"`
	Name   string  `toml:"name" json:"name,omitempty"`
	Scale  float64 `toml:"scale" json:"scale"`
	URL    string  `toml:"url" json:"url,omitempty"`
	Level  int     `toml:"level" json:"level,omitempty"`
	Width  int     `toml:"width" json:"width,omitempty"`
	Height int     `toml:"height" json:"height,omitempty"`
}

// ClusterConfig is one placement region. Start and End are [x, y] pairs in
// map pixels.
type ClusterConfig struct {
	Name  string    `toml:"name" json:"name"`
	Map   string    `toml:"map" json:"map"`
	Start []float64 `toml:"start" json:"start"`
	End   []float64 `toml:"end" json:"end"`
	Score float64   `toml:"score" json:"score"`
	Rows  int       `toml:"rows" json:"rows,omitempty"`
}

// Default returns an empty floor plan carrying the default settings.
func Default() *FloorPlan {
	d := alloc.DefaultOptions()
	margin := d.Margin
	return &FloorPlan{Settings: Settings{
		BasicUnitSize: d.BasicUnitSize,
		Margin:        &margin,
		EdgeRule:      string(d.EdgeRule),
	}}
}

// Load reads, decodes and validates the floor plan at path.
func Load(path string) (*FloorPlan, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "floor plan %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read floor plan: %w", err)
	}
	fp, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fp, nil
}

// Parse decodes data in format and validates the result. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Parse(data []byte, format Format) (*FloorPlan, error) {
	var fp FloorPlan
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&fp)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
		}
	case FormatYAML, FormatJSON:
		if err := yaml.UnmarshalStrict(data, &fp); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "decode %s", format)
		}
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported floor plan format %q", format)
	}
	if err := fp.Validate(); err != nil {
		return nil, err
	}
	return &fp, nil
}

// Options returns the allocation options with defaults applied.
func (fp *FloorPlan) Options() alloc.Options {
	opts := alloc.Options{
		BasicUnitSize: fp.Settings.BasicUnitSize,
		Margin:        alloc.DefaultMargin,
		EdgeRule:      alloc.EdgeRule(fp.Settings.EdgeRule),
	}
	if fp.Settings.Margin != nil {
		opts.Margin = *fp.Settings.Margin
	}
	opts.SetDefaults()
	return opts
}

// AllocMaps converts the maps in file order.
func (fp *FloorPlan) AllocMaps() []alloc.Map {
	out := make([]alloc.Map, len(fp.Maps))
	for i, m := range fp.Maps {
		out[i] = alloc.Map{
			ID:     m.ID,
			Name:   m.Name,
			Scale:  m.Scale,
			URL:    m.URL,
			Level:  m.Level,
			Width:  m.Width,
			Height: m.Height,
		}
	}
	return out
}

// ClusterSpecs converts the clusters in file order, which is also the
// tie-break order of the allocator.
func (fp *FloorPlan) ClusterSpecs() []alloc.ClusterSpec {
	out := make([]alloc.ClusterSpec, len(fp.Clusters))
	for i, c := range fp.Clusters {
		out[i] = c.spec()
	}
	return out
}

func (c ClusterConfig) spec() alloc.ClusterSpec {
	return alloc.ClusterSpec{
		Name:  c.Name,
		MapID: c.Map,
		Start: point(c.Start),
		End:   point(c.End),
		Score: c.Score,
		Rows:  c.Rows,
	}
}

func point(xy []float64) geom.Point {
	if len(xy) != 2 {
		return geom.Point{}
	}
	return geom.Pt(xy[0], xy[1])
}

// Input pairs the floor plan with a list of projects for a run.
func (fp *FloorPlan) Input(projects []alloc.Demand) pipeline.Input {
	return pipeline.Input{
		Maps:     fp.AllocMaps(),
		Clusters: fp.ClusterSpecs(),
		Projects: projects,
	}
}

// Map returns the map with the given ID.
func (fp *FloorPlan) Map(id string) (alloc.Map, bool) {
	for _, m := range fp.AllocMaps() {
		if m.ID == id {
			return m, true
		}
	}
	return alloc.Map{}, false
}

// BuildClusters builds fresh clusters for the plan, e.g. to print their grids.
// Allocation runs build their own through the pipeline.
func (fp *FloorPlan) BuildClusters() ([]*alloc.Cluster, error) {
	maps := make(map[string]alloc.Map, len(fp.Maps))
	for _, m := range fp.AllocMaps() {
		maps[m.ID] = m
	}
	opts := fp.Options()
	out := make([]*alloc.Cluster, 0, len(fp.Clusters))
	for _, spec := range fp.ClusterSpecs() {
		c, err := alloc.NewCluster(maps[spec.MapID], spec, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
