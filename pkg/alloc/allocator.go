package alloc

import "github.com/matzehuels/boothplan/pkg/geom"

// Allocator assigns projects to the best-scoring cluster of one run.
//
// Selection is greedy per project: every cluster is scored, the first
// cluster with the strictly highest score wins and commits immediately.
// Nothing is re-balanced later, so earlier projects get first pick.
type Allocator struct {
	clusters []*Cluster
}

// NewAllocator creates an allocator over clusters. Cluster order is the
// tie-break order.
func NewAllocator(clusters []*Cluster) *Allocator {
	return &Allocator{clusters: clusters}
}

// Clusters returns the clusters in tie-break order.
func (a *Allocator) Clusters() []*Cluster { return a.clusters }

// Assignment is a successful placement as seen from the allocator.
type Assignment struct {
	Cluster *Cluster
	Slot    Slot
	Polygon geom.Polygon
}

// Map returns the map the assignment landed on.
func (a Assignment) Map() Map { return a.Cluster.Map() }

// Allocate places d in the cluster that currently offers it the best score.
// It returns false when no cluster has a block for d.
func (a *Allocator) Allocate(d Demand) (Assignment, bool) {
	var (
		best      *Cluster
		bestScore float64
	)
	for _, c := range a.clusters {
		if s := c.ScoreFor(d); s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == nil {
		return Assignment{}, false
	}

	slot, ok := best.Allocate(d)
	if !ok {
		return Assignment{}, false
	}
	return Assignment{
		Cluster: best,
		Slot:    slot,
		Polygon: slot.Rect.Polygon(),
	}, true
}
