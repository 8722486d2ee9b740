package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/boothplan/pkg/alloc"
	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/geom"
	"github.com/matzehuels/boothplan/pkg/observability"
)

// Allocate runs one allocation over in without caching or locking.
//
// Every project is checked before anything is placed, so a bad project
// fails the run with INVALID_DEMAND and no partial result. Cluster geometry
// problems fail with INVALID_CONFIG. Projects are then placed in input order;
// a project no cluster can take is listed in Result.Skipped. Cancellation is
// checked between projects.
func Allocate(ctx context.Context, in Input, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateProjects(in.Projects); err != nil {
		return nil, err
	}
	clusters, err := BuildClusters(in.Maps, in.Clusters, opts.Alloc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{
		RunID:      uuid.NewString(),
		CreatedAt:  start.UTC(),
		Maps:       in.Maps,
		Placements: make([]Placement, 0, len(in.Projects)),
		Skipped:    []string{},
	}
	hooks := observability.Allocation()
	hooks.OnRunStart(ctx, res.RunID, len(in.Projects), len(clusters))

	err = place(ctx, alloc.NewAllocator(clusters), in.Projects, res, opts)

	res.Usage = usage(clusters)
	res.Stats = Stats{
		Projects: len(in.Projects),
		Placed:   len(res.Placements),
		Skipped:  len(res.Skipped),
		Clusters: len(clusters),
		Duration: time.Since(start),
	}
	hooks.OnRunComplete(ctx, res.RunID, res.Stats.Placed, res.Stats.Skipped, res.Stats.Duration, err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("allocated projects",
		"run", res.RunID,
		"placed", res.Stats.Placed,
		"skipped", res.Stats.Skipped,
		"duration", res.Stats.Duration)
	return res, nil
}

func place(ctx context.Context, a *alloc.Allocator, projects []alloc.Demand, res *Result, opts Options) error {
	hooks := observability.Allocation()
	for _, d := range projects {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("allocation interrupted after %d of %d projects: %w",
				len(res.Placements)+len(res.Skipped), len(projects), err)
		}

		as, ok := a.Allocate(d)
		if !ok {
			res.Skipped = append(res.Skipped, d.ID)
			hooks.OnSkipped(ctx, d.ID)
			opts.Logger.Debug("no room for project", "project", d.ID, "space_x", d.Width, "space_y", d.Depth)
			continue
		}

		// Rounding can flatten a booth only a pixel or two deep, so the centre
		// comes from the unrounded rectangle.
		centre := geom.Round(as.Slot.Rect.Center)
		if _, err := as.Polygon.Centroid(); err != nil {
			opts.Logger.Debug("booth polygon has no area", "project", d.ID, "cluster", as.Cluster.Name(), "err", err)
		}
		m := as.Map()
		res.Placements = append(res.Placements, Placement{
			ProjectID: d.ID,
			Name:      d.Name,
			MapID:     m.ID,
			Cluster:   as.Cluster.Name(),
			Polygon:   as.Polygon,
			Centre:    centre,
			Score:     as.Slot.Score,
			Block:     as.Slot.Block,
		})
		hooks.OnPlaced(ctx, d.ID, m.ID, as.Cluster.Name(), as.Slot.Score)
		opts.Logger.Debug("placed project",
			"project", d.ID,
			"map", m.ID,
			"cluster", as.Cluster.Name(),
			"score", as.Slot.Score)
	}
	return nil
}

// ValidateProjects checks every demand and rejects duplicate IDs.
func ValidateProjects(projects []alloc.Demand) error {
	seen := make(map[string]bool, len(projects))
	for _, d := range projects {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.ID] {
			return errs.New(errs.ErrCodeInvalidDemand, "duplicate project id %q", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// BuildClusters creates fresh clusters in spec order. A spec naming an
// unknown map fails with INVALID_CONFIG.
func BuildClusters(maps []alloc.Map, specs []alloc.ClusterSpec, opts alloc.Options) ([]*alloc.Cluster, error) {
	byID := make(map[string]alloc.Map, len(maps))
	for _, m := range maps {
		byID[m.ID] = m
	}
	out := make([]*alloc.Cluster, 0, len(specs))
	for _, spec := range specs {
		m, ok := byID[spec.MapID]
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidConfig, "cluster %s: unknown map %q", spec.Name, spec.MapID)
		}
		c, err := alloc.NewCluster(m, spec, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func usage(clusters []*alloc.Cluster) []ClusterUsage {
	out := make([]ClusterUsage, len(clusters))
	for i, c := range clusters {
		out[i] = ClusterUsage{
			Cluster:      c.Name(),
			MapID:        c.Map().ID,
			Columns:      c.Columns(),
			Rows:         c.Rows(),
			UnitPx:       c.UnitPx(),
			TotalUnits:   c.TotalUnits(),
			ClaimedUnits: c.ClaimedUnits(),
			Placements:   len(c.Placements()),
			Outline:      c.Outline().Polygon(),
		}
	}
	return out
}
