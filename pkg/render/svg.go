package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/matzehuels/boothplan/pkg/alloc"
	"github.com/matzehuels/boothplan/pkg/geom"
	"github.com/matzehuels/boothplan/pkg/pipeline"
)

// padding is added around the content when the map has no known size.
const padding = 20

var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	clusters   []pipeline.ClusterUsage
	background string
	labels     bool
}

// WithClusters draws the outline and name of every cluster in usage.
func WithClusters(usage []pipeline.ClusterUsage) SVGOption {
	return func(r *svgRenderer) { r.clusters = usage }
}

// WithBackground places the image at url under the overlay.
func WithBackground(url string) SVGOption {
	return func(r *svgRenderer) { r.background = url }
}

// WithoutLabels omits the project IDs.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// SVG renders the placements on map m. A zero width or height falls back
// to the map's size and then to the bounding box of everything drawn.
func SVG(m alloc.Map, width, height int, placements []pipeline.Placement, opts ...SVGOption) []byte {
	r := svgRenderer{labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	if width <= 0 || height <= 0 {
		width, height = m.Width, m.Height
	}
	if width <= 0 || height <= 0 {
		width, height = r.extent(placements)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		width, height, width, height)
	if m.Name != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(m.Name))
	}
	renderStyle(&buf)

	if r.background != "" {
		fmt.Fprintf(&buf, `  <image href="%s" x="0" y="0" width="%d" height="%d" preserveAspectRatio="none"/>`+"\n",
			html.EscapeString(r.background), width, height)
	}

	colors := clusterColors(r.clusters, placements)
	for _, u := range r.clusters {
		renderCluster(&buf, u)
	}
	for _, p := range placements {
		renderBooth(&buf, p, colors[p.Cluster], r.labels)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// extent is the bounding box of the placements and cluster outlines plus
// padding, anchored at the origin.
func (r svgRenderer) extent(placements []pipeline.Placement) (int, int) {
	var maxX, maxY int
	grow := func(p geom.Polygon) {
		if len(p) == 0 {
			return
		}
		_, hi := p.Bounds()
		maxX = max(maxX, hi.X)
		maxY = max(maxY, hi.Y)
	}
	for _, p := range placements {
		grow(p.Polygon)
	}
	for _, u := range r.clusters {
		grow(u.Outline)
	}
	return maxX + padding, maxY + padding
}

func renderStyle(buf *bytes.Buffer) {
	buf.WriteString(`  <style>
    .cluster { fill: none; stroke: #555; stroke-width: 2; stroke-dasharray: 8 4; }
    .cluster-name { font: 12px sans-serif; fill: #555; }
    .booth { fill-opacity: 0.75; stroke: #222; stroke-width: 1; }
    .booth-label { font: bold 12px sans-serif; fill: #111; text-anchor: middle; dominant-baseline: central; }
  </style>
`)
}

func renderCluster(buf *bytes.Buffer, u pipeline.ClusterUsage) {
	if len(u.Outline) == 0 {
		return
	}
	fmt.Fprintf(buf, `  <polygon class="cluster" id="cluster-%s" points="%s"/>`+"\n", html.EscapeString(u.Cluster), points(u.Outline))
	lo, _ := u.Outline.Bounds()
	fmt.Fprintf(buf, `  <text class="cluster-name" x="%d" y="%d">%s (%d/%d)</text>`+"\n",
		lo.X, lo.Y-4, html.EscapeString(u.Cluster), u.ClaimedUnits, u.TotalUnits)
}

func renderBooth(buf *bytes.Buffer, p pipeline.Placement, color string, label bool) {
	id := html.EscapeString(p.ProjectID)
	fmt.Fprintf(buf, `  <polygon class="booth" id="booth-%s" points="%s" fill="%s">`, id, points(p.Polygon), color)
	title := p.ProjectID
	if p.Name != "" {
		title += ": " + p.Name
	}
	fmt.Fprintf(buf, "<title>%s</title></polygon>\n", html.EscapeString(title))
	if label {
		fmt.Fprintf(buf, `  <text class="booth-label" x="%d" y="%d">%s</text>`+"\n", p.Centre.X, p.Centre.Y, id)
	}
}

func points(p geom.Polygon) string {
	parts := make([]string, len(p))
	for i, pt := range p {
		parts[i] = fmt.Sprintf("%d,%d", pt.X, pt.Y)
	}
	return strings.Join(parts, " ")
}

// clusterColors assigns palette colours in order of first appearance, so
// the same inputs always produce the same picture.
func clusterColors(usage []pipeline.ClusterUsage, placements []pipeline.Placement) map[string]string {
	colors := map[string]string{}
	assign := func(name string) {
		if _, ok := colors[name]; !ok {
			colors[name] = palette[len(colors)%len(palette)]
		}
	}
	for _, u := range usage {
		assign(u.Cluster)
	}
	for _, p := range placements {
		assign(p.Cluster)
	}
	return colors
}
