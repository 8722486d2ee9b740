// Package pipeline runs allocations end to end.
//
// [Allocate] is the single entry point into the allocation core: it checks
// the projects, builds fresh clusters for the floor plan and places every
// project in order, returning placements and the projects that did not fit.
//
// [Runner] wraps Allocate for the CLI and the HTTP service. It looks the run
// up in a result cache first and otherwise holds the floor plan's run lock
// while allocating, so concurrent runs cannot hand out the same stands.
//
//	runner := pipeline.NewRunner(fileCache, nil, runlock.NewLocal(), logger)
//	res, err := runner.Run(ctx, fp.Input(projects), pipeline.Options{Alloc: fp.Options()})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Stats.Placed, "placed,", res.Stats.Skipped, "skipped")
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boothplan/pkg/alloc"
	"github.com/matzehuels/boothplan/pkg/cache"
	"github.com/matzehuels/boothplan/pkg/geom"
)

// =============================================================================
// Input and options
// =============================================================================

// Input is everything one run reads: the floor plan and the projects in
// allocation order.
type Input struct {
	Maps     []alloc.Map         `json:"maps"`
	Clusters []alloc.ClusterSpec `json:"clusters"`
	Projects []alloc.Demand      `json:"projects"`
}

// floorPlan is the part of Input that identifies a venue for locking.
type floorPlan struct {
	Maps     []alloc.Map         `json:"maps"`
	Clusters []alloc.ClusterSpec `json:"clusters"`
}

// Options configures a run.
type Options struct {
	Alloc alloc.Options `json:"alloc"`

	// LockKey names the floor plan for the run lock. Empty means the hash
	// of the maps and clusters.
	LockKey string `json:"-"`

	// Refresh skips the cache lookup. The fresh result is still stored.
	Refresh bool `json:"-"`

	Logger *log.Logger `json:"-"`
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	o.Alloc.SetDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the allocation settings.
func (o *Options) Validate() error {
	return o.Alloc.Validate()
}

// KeyOpts returns the options that take part in the cache key.
func (o *Options) KeyOpts() cache.AllocationKeyOpts {
	return cache.AllocationKeyOpts{
		BasicUnitSize: o.Alloc.BasicUnitSize,
		Margin:        o.Alloc.Margin,
		EdgeRule:      string(o.Alloc.EdgeRule),
	}
}

// =============================================================================
// Results
// =============================================================================

// Placement is one project's stand.
type Placement struct {
	ProjectID string        `json:"project_id"`
	Name      string        `json:"name,omitempty"`
	MapID     string        `json:"map_id"`
	Cluster   string        `json:"cluster"`
	Polygon   geom.Polygon  `json:"polygon"`
	Centre    geom.IntPoint `json:"centre"`
	Score     float64       `json:"score"`
	Block     alloc.Block   `json:"block"`
}

// ClusterUsage summarises one cluster after the run.
type ClusterUsage struct {
	Cluster      string       `json:"cluster"`
	MapID        string       `json:"map_id"`
	Columns      int          `json:"columns"`
	Rows         int          `json:"rows"`
	UnitPx       int          `json:"unit_px"`
	TotalUnits   int          `json:"total_units"`
	ClaimedUnits int          `json:"claimed_units"`
	Placements   int          `json:"placements"`
	Outline      geom.Polygon `json:"outline"`
}

// FreeUnits is the number of units left after the run.
func (u ClusterUsage) FreeUnits() int { return u.TotalUnits - u.ClaimedUnits }

// Stats are the run's counters and timing.
type Stats struct {
	Projects int           `json:"projects"`
	Placed   int           `json:"placed"`
	Skipped  int           `json:"skipped"`
	Clusters int           `json:"clusters"`
	Duration time.Duration `json:"duration_ns"`
}

// Result is the outcome of one run.
type Result struct {
	RunID      string         `json:"run_id"`
	CreatedAt  time.Time      `json:"created_at"`
	Maps       []alloc.Map    `json:"maps"`
	Placements []Placement    `json:"placements"`
	Skipped    []string       `json:"skipped"`
	Usage      []ClusterUsage `json:"usage"`
	Stats      Stats          `json:"stats"`

	// CacheHit is set when the result was served from the cache. The run ID
	// is then the one of the run that produced it.
	CacheHit bool `json:"cache_hit"`
}

// PlacementsOn returns the placements on map mapID in allocation order.
func (r *Result) PlacementsOn(mapID string) []Placement {
	var out []Placement
	for _, p := range r.Placements {
		if p.MapID == mapID {
			out = append(out, p)
		}
	}
	return out
}

// UsageOn returns the usage of the clusters on map mapID.
func (r *Result) UsageOn(mapID string) []ClusterUsage {
	var out []ClusterUsage
	for _, u := range r.Usage {
		if u.MapID == mapID {
			out = append(out, u)
		}
	}
	return out
}

// Placement returns the placement of project id.
func (r *Result) Placement(id string) (Placement, bool) {
	for _, p := range r.Placements {
		if p.ProjectID == id {
			return p, true
		}
	}
	return Placement{}, false
}
