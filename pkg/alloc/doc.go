// Package alloc places exhibition projects into floor plan clusters.
//
// # Clusters
//
// A [Cluster] is a strip laid along a centerline segment on a [Map]. The
// strip is cut into square units of Options.BasicUnitSize (2 m by default),
// converted to pixels with the map's scale, giving a grid of Rows by
// Columns units. Every unit starts free; a placement claims a rectangular
// block of units for the rest of the run.
//
// A project's footprint is rounded up to whole units on both axes. The
// cluster then scans every block of that size:
//
//   - taken or out-of-bounds blocks score 0
//   - blocks that do not face the outside of the cluster score 0 (see [EdgeRule])
//   - otherwise the cluster's initial score, reduced linearly by up to 30%
//     as the block moves from the middle of the strip towards either end
//
// The highest score wins; ties go to the first block in row-major order.
//
// # Allocator
//
// An [Allocator] holds the clusters of one run. For each project it asks
// every cluster for its best score, picks the first cluster with the
// highest one and commits the placement there. A project no cluster can
// take is reported as not allocated. The caller records it as skipped.
//
// # Example
//
//	level1 := alloc.Map{ID: "1", Scale: 0.025}
//	c, err := alloc.NewCluster(level1, alloc.ClusterSpec{
//	    Name:  "atrium",
//	    Start: geom.Pt(2400, 2150),
//	    End:   geom.Pt(3100, 2150),
//	    Score: 100,
//	    Rows:  3,
//	}, alloc.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	a := alloc.NewAllocator([]*alloc.Cluster{c})
//	if as, ok := a.Allocate(alloc.Demand{ID: "7", Width: 3, Depth: 2}); ok {
//	    fmt.Println(as.Map().ID, as.Polygon)
//	}
//
// Clusters are cheap to build and must not be shared between runs.
package alloc
