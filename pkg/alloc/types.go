package alloc

import (
	"math"

	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/geom"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultBasicUnitSize is the physical edge length of one placement unit
	// in metres.
	DefaultBasicUnitSize = 2.0

	// DefaultMargin is trimmed from each side length of a placed booth, in
	// output pixels, so neighbouring booths do not touch on the rendered map.
	DefaultMargin = 5.0

	// scoreFalloff is the fraction of a cluster's score lost at its far ends.
	scoreFalloff = 0.3
)

// =============================================================================
// Inputs
// =============================================================================

// Demand is one project's footprint request. Width and Depth are in the same
// physical unit as Options.BasicUnitSize (metres in the reference floor plan).
type Demand struct {
	ID    string  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Width float64 `json:"space_x"`
	Depth float64 `json:"space_y"`
}

// Validate rejects demands that would turn into empty or nonsensical blocks.
func (d Demand) Validate() error {
	if err := errs.ValidateID("project", d.ID); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidDemand, err, "invalid project")
	}
	if !positive(d.Width) {
		return errs.New(errs.ErrCodeInvalidDemand, "project %s: space_x must be a positive number, got %v", d.ID, d.Width)
	}
	if !positive(d.Depth) {
		return errs.New(errs.ErrCodeInvalidDemand, "project %s: space_y must be a positive number, got %v", d.ID, d.Depth)
	}
	return nil
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Map is a floor plan image that clusters are anchored to. Scale is the
// physical distance covered by one output pixel.
type Map struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Scale  float64 `json:"scale"`
	URL    string  `json:"url,omitempty"`
	Level  int     `json:"level,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// ClusterSpec describes one placement region before it is turned into a grid.
// Start and End are the centerline endpoints in the map's output coordinates.
type ClusterSpec struct {
	Name  string     `json:"name"`
	MapID string     `json:"map"`
	Start geom.Point `json:"start"`
	End   geom.Point `json:"end"`
	Score float64    `json:"score"`
	Rows  int        `json:"rows,omitempty"`
}

// =============================================================================
// Options
// =============================================================================

// EdgeRule decides which blocks count as facing the outside of a cluster.
type EdgeRule string

const (
	// EdgeRuleOuter requires a block to touch the boundary along an axis that
	// is longer than one unit. A single-row strip only accepts blocks at its
	// two ends. The only unit of a 1x1 cluster always qualifies.
	EdgeRuleOuter EdgeRule = "outer"

	// EdgeRuleAnyBoundary accepts any block touching the first or last row or
	// column, even when the cluster is a single row or column wide.
	EdgeRuleAnyBoundary EdgeRule = "any"
)

// Valid reports whether r is a known rule. The empty rule means EdgeRuleOuter.
func (r EdgeRule) Valid() bool {
	return r == "" || r == EdgeRuleOuter || r == EdgeRuleAnyBoundary
}

// Options holds the allocation settings shared by every cluster of a run.
type Options struct {
	// BasicUnitSize is the physical size of one unit. Zero means
	// DefaultBasicUnitSize.
	BasicUnitSize float64 `json:"basic_unit_size"`

	// Margin is subtracted from both side lengths of a placed booth, in output
	// pixels. Zero disables it. NewCluster rejects a margin that is not
	// smaller than the cluster's unit in pixels, so the default 5 px needs
	// units of at least 6 px.
	Margin float64 `json:"margin"`

	// EdgeRule selects the edge-facing rule. Empty means EdgeRuleOuter.
	EdgeRule EdgeRule `json:"edge_rule,omitempty"`
}

// DefaultOptions returns the reference settings: 2 m units, 5 px margin.
func DefaultOptions() Options {
	return Options{
		BasicUnitSize: DefaultBasicUnitSize,
		Margin:        DefaultMargin,
		EdgeRule:      EdgeRuleOuter,
	}
}

// SetDefaults fills zero-valued fields that have a non-zero default.
// Margin is left alone: zero is a meaningful margin.
func (o *Options) SetDefaults() {
	if o.BasicUnitSize == 0 {
		o.BasicUnitSize = DefaultBasicUnitSize
	}
	if o.EdgeRule == "" {
		o.EdgeRule = EdgeRuleOuter
	}
}

// Validate checks the settings independently of any cluster.
func (o Options) Validate() error {
	if !positive(o.BasicUnitSize) {
		return errs.New(errs.ErrCodeInvalidConfig, "basic_unit_size must be positive, got %v", o.BasicUnitSize)
	}
	if o.Margin < 0 || math.IsNaN(o.Margin) || math.IsInf(o.Margin, 0) {
		return errs.New(errs.ErrCodeInvalidConfig, "margin must be zero or positive, got %v", o.Margin)
	}
	if !o.EdgeRule.Valid() {
		return errs.New(errs.ErrCodeInvalidConfig, "unknown edge_rule %q (must be one of: outer, any)", o.EdgeRule)
	}
	return nil
}

// =============================================================================
// Outputs
// =============================================================================

// Block is a rectangle of grid units: X is the column, Y the row of its
// top-left unit.
type Block struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Overlaps reports whether b and o share at least one unit.
func (b Block) Overlaps(o Block) bool {
	return b.X < o.X+o.Width && o.X < b.X+b.Width &&
		b.Y < o.Y+o.Height && o.Y < b.Y+b.Height
}

// Slot is a committed placement inside one cluster.
type Slot struct {
	Block Block     `json:"block"`
	Rect  geom.Rect `json:"rect"`
	Score float64   `json:"score"`
}
