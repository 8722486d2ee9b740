package alloc

import (
	"maps"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/geom"
)

// Cluster is one placement region: a strip of units laid along the segment
// from Start to End, Rows units deep. A Cluster belongs to a single
// allocation run; claimed units are never released.
type Cluster struct {
	name  string
	m     Map
	opts  Options
	score float64

	start, end geom.Point
	center     geom.Point
	rotation   float64
	length     float64

	unitPx  int
	columns int
	rows    int

	grid       *grid
	placements map[string]Slot
}

// NewCluster derives the unit grid of spec on map m.
//
// It fails with INVALID_CONFIG when the geometry cannot hold a single unit:
// a non-positive map scale, a unit that shrinks to zero pixels, a zero-length
// centerline, a centerline shorter than one unit, or a margin that would
// swallow a whole unit.
func NewCluster(m Map, spec ClusterSpec, opts Options) (*Cluster, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !positive(m.Scale) {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: map %s has non-positive scale %v", spec.Name, m.ID, m.Scale)
	}

	rows := spec.Rows
	if rows == 0 {
		rows = 1
	}
	if rows < 0 {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: rows must be positive, got %d", spec.Name, spec.Rows)
	}
	if spec.Score < 0 || math.IsNaN(spec.Score) {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: score must not be negative, got %v", spec.Name, spec.Score)
	}

	unitPx := int(math.Floor(opts.BasicUnitSize / m.Scale))
	if unitPx <= 0 {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: unit of %v at scale %v is smaller than one pixel", spec.Name, opts.BasicUnitSize, m.Scale)
	}
	if opts.Margin >= float64(unitPx) {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: margin %v swallows a %d px unit", spec.Name, opts.Margin, unitPx)
	}

	d := r2.Sub(spec.End, spec.Start)
	length := r2.Norm(d)
	if length == 0 {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: start and end coincide", spec.Name)
	}
	columns := int(math.Floor(length / float64(unitPx)))
	if columns == 0 {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: centerline of %.1f px is shorter than one %d px unit", spec.Name, length, unitPx)
	}

	return &Cluster{
		name:       spec.Name,
		m:          m,
		opts:       opts,
		score:      spec.Score,
		start:      spec.Start,
		end:        spec.End,
		center:     r2.Add(spec.Start, r2.Scale(0.5, d)),
		rotation:   math.Atan2(d.Y, d.X),
		length:     length,
		unitPx:     unitPx,
		columns:    columns,
		rows:       rows,
		grid:       newGrid(rows, columns),
		placements: make(map[string]Slot),
	}, nil
}

// =============================================================================
// Geometry accessors
// =============================================================================

func (c *Cluster) Name() string          { return c.name }
func (c *Cluster) Map() Map              { return c.m }
func (c *Cluster) InitialScore() float64 { return c.score }
func (c *Cluster) Columns() int          { return c.columns }
func (c *Cluster) Rows() int             { return c.rows }
func (c *Cluster) UnitPx() int           { return c.unitPx }
func (c *Cluster) Rotation() float64     { return c.rotation }
func (c *Cluster) Center() geom.Point    { return c.center }
func (c *Cluster) Length() float64       { return c.length }

// Width is the depth of the strip across its centerline, in pixels.
func (c *Cluster) Width() int { return c.rows * c.unitPx }

// Outline returns the rectangle covered by the unit grid.
func (c *Cluster) Outline() geom.Rect {
	return geom.Rect{
		Center:   c.center,
		Width:    float64(c.columns * c.unitPx),
		Height:   float64(c.Width()),
		Rotation: c.rotation,
	}
}

// =============================================================================
// Capacity
// =============================================================================

// TotalUnits is the number of units in the grid.
func (c *Cluster) TotalUnits() int { return c.grid.total() }

// ClaimedUnits is the number of units covered by placements.
func (c *Cluster) ClaimedUnits() int { return c.grid.claimed }

// FreeUnits is the number of units still available.
func (c *Cluster) FreeUnits() int { return c.grid.total() - c.grid.claimed }

// Placements returns a copy of the committed slots keyed by project ID.
func (c *Cluster) Placements() map[string]Slot {
	return maps.Clone(c.placements)
}

// =============================================================================
// Scoring
// =============================================================================

// UnitsRequired converts d's footprint into whole units, rounding up on both
// axes so a project is never given less floor than it asked for.
func (c *Cluster) UnitsRequired(d Demand) (x, y int) {
	x = int(math.Ceil(d.Width / c.opts.BasicUnitSize))
	y = int(math.Ceil(d.Depth / c.opts.BasicUnitSize))
	return x, y
}

// CheckAvailability reports whether the xs by ys block with top-left unit
// (x, y) lies inside the grid and is entirely free.
func (c *Cluster) CheckAvailability(x, y, xs, ys int) bool {
	return c.grid.fits(Block{X: x, Y: y, Width: xs, Height: ys})
}

// UnitScore rates the block at (x, y). Blocks that are taken, out of bounds
// or not facing the outside of the cluster score 0. Otherwise the cluster's
// score falls off linearly by up to 30% towards either end of the strip.
func (c *Cluster) UnitScore(x, y, xs, ys int) float64 {
	if !c.CheckAvailability(x, y, xs, ys) {
		return 0
	}
	if !c.facesOut(x, y, xs, ys) {
		return 0
	}
	half := float64(c.columns) / 2
	offset := math.Abs(float64(x)+float64(xs)/2-half) / half
	return c.score * (1 - scoreFalloff*offset)
}

func (c *Cluster) facesOut(x, y, xs, ys int) bool {
	alongColumns := x == 0 || x+xs == c.columns
	alongRows := y == 0 || y+ys == c.rows

	if c.opts.EdgeRule == EdgeRuleAnyBoundary {
		return alongColumns || alongRows
	}
	if c.columns == 1 && c.rows == 1 {
		return true
	}
	return (c.columns > 1 && alongColumns) || (c.rows > 1 && alongRows)
}

// BestUnitFor scans every top-left position row by row and returns the block
// with the highest score. Only a strictly higher score replaces the current
// best, so ties go to the first position in row-major order. A zero score
// means nothing fits.
func (c *Cluster) BestUnitFor(xs, ys int) (Block, float64) {
	var (
		best      Block
		bestScore float64
	)
	for y := 0; y+ys <= c.rows; y++ {
		for x := 0; x+xs <= c.columns; x++ {
			if s := c.UnitScore(x, y, xs, ys); s > bestScore {
				best = Block{X: x, Y: y, Width: xs, Height: ys}
				bestScore = s
			}
		}
	}
	return best, bestScore
}

// ScoreFor returns the best score d could get in this cluster right now.
// It never changes the cluster.
func (c *Cluster) ScoreFor(d Demand) float64 {
	xs, ys := c.UnitsRequired(d)
	_, score := c.BestUnitFor(xs, ys)
	return score
}

// =============================================================================
// Placement
// =============================================================================

// Allocate claims the best block for d and records it under d.ID. It returns
// false, leaving the cluster untouched, when no block scores above zero.
func (c *Cluster) Allocate(d Demand) (Slot, bool) {
	xs, ys := c.UnitsRequired(d)
	b, score := c.BestUnitFor(xs, ys)
	if score <= 0 {
		return Slot{}, false
	}

	c.grid.claim(b)
	slot := Slot{
		Block: b,
		Rect: geom.Rect{
			Center:   c.UnitToOutputPosition(b.X, b.Y, xs, ys),
			Width:    float64(c.unitPx*xs) - c.opts.Margin,
			Height:   float64(c.unitPx*ys) - c.opts.Margin,
			Rotation: c.rotation,
		},
		Score: score,
	}
	c.placements[d.ID] = slot
	return slot, true
}

// UnitToOutputPosition maps the centre of the xs by ys block at (x, y) to
// output coordinates: the offset from the grid centre is scaled to pixels,
// rotated with the cluster and moved onto the cluster's centre.
func (c *Cluster) UnitToOutputPosition(x, y, xs, ys int) geom.Point {
	rel := geom.Pt(
		(float64(x)+float64(xs)/2-float64(c.columns)/2)*float64(c.unitPx),
		(float64(y)+float64(ys)/2-float64(c.rows)/2)*float64(c.unitPx),
	)
	return r2.Add(c.center, geom.Rotate(rel, c.rotation))
}
