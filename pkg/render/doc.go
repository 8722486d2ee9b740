// Package render draws allocation results.
//
// [SVG] produces one overlay per map: every placed booth as a filled
// polygon labelled with its project ID at the centroid, optionally on top
// of the map's floor plan image and the outlines of the clusters. The SVG
// is sized in the map's output pixels, so it lines up with the image the
// polygon coordinates were computed for.
//
//	svg := render.SVG(m, 0, 0, res.PlacementsOn(m.ID),
//	    render.WithClusters(res.UsageOn(m.ID)),
//	    render.WithBackground(m.URL),
//	)
//
// [ToPDF] and [ToPNG] convert an SVG with the external rsvg-convert tool
// (from librsvg).
//
// [UsageChart] renders an HTML page with a stacked bar chart of claimed
// and free units per cluster.
package render
