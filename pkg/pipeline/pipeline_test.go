package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/boothplan/pkg/alloc"
	"github.com/matzehuels/boothplan/pkg/cache"
	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/geom"
	"github.com/matzehuels/boothplan/pkg/observability"
	"github.com/matzehuels/boothplan/pkg/runlock"
)

func strip(name string, columns, rows int, score float64) alloc.ClusterSpec {
	return alloc.ClusterSpec{
		Name:  name,
		MapID: "m",
		Start: geom.Pt(0, 0),
		End:   geom.Pt(float64(columns), 0),
		Score: score,
		Rows:  rows,
	}
}

func unitOptions(rule alloc.EdgeRule) Options {
	return Options{Alloc: alloc.Options{BasicUnitSize: 1, EdgeRule: rule}}
}

func projects(n int, w, d float64) []alloc.Demand {
	out := make([]alloc.Demand, n)
	for i := range out {
		out[i] = alloc.Demand{ID: fmt.Sprint(i), Width: w, Depth: d}
	}
	return out
}

var unitMap = []alloc.Map{{ID: "m", Scale: 1}}

func TestAllocateSkipsWhatDoesNotFit(t *testing.T) {
	in := Input{
		Maps:     unitMap,
		Clusters: []alloc.ClusterSpec{strip("row", 15, 1, 100)},
		Projects: projects(20, 1, 1),
	}
	res, err := Allocate(context.Background(), in, unitOptions(alloc.EdgeRuleAnyBoundary))
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	if res.Stats.Placed != 15 || res.Stats.Skipped != 5 {
		t.Fatalf("placed/skipped = %d/%d, want 15/5", res.Stats.Placed, res.Stats.Skipped)
	}
	if diff := cmp.Diff([]string{"15", "16", "17", "18", "19"}, res.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}

	seen := map[alloc.Block]string{}
	for _, p := range res.Placements {
		if other, dup := seen[p.Block]; dup {
			t.Errorf("projects %s and %s share block %+v", other, p.ProjectID, p.Block)
		}
		seen[p.Block] = p.ProjectID
	}
	if len(seen) != 15 {
		t.Errorf("distinct blocks = %d, want 15", len(seen))
	}
}

func TestAllocateReservedUnitLeavesFifteen(t *testing.T) {
	demands := append([]alloc.Demand{{ID: "reserved", Width: 1, Depth: 1}}, projects(20, 1, 1)...)
	in := Input{
		Maps:     unitMap,
		Clusters: []alloc.ClusterSpec{strip("hall", 8, 2, 100)},
		Projects: demands,
	}
	res, err := Allocate(context.Background(), in, unitOptions(alloc.EdgeRuleOuter))
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if res.Stats.Placed != 16 || len(res.Skipped) != 5 {
		t.Errorf("placed/skipped = %d/%d, want 16 (15 after the reservation)/5", res.Stats.Placed, len(res.Skipped))
	}
	if u := res.Usage[0]; u.FreeUnits() != 0 || u.Placements != 16 {
		t.Errorf("usage = %+v, want full cluster with 16 placements", u)
	}
}

func TestAllocateRejectsBadProjects(t *testing.T) {
	tests := []struct {
		name     string
		projects []alloc.Demand
	}{
		{"zero width", []alloc.Demand{{ID: "1", Width: 0, Depth: 2}}},
		{"missing id", []alloc.Demand{{Width: 2, Depth: 2}}},
		{"duplicate id", []alloc.Demand{{ID: "1", Width: 2, Depth: 2}, {ID: "1", Width: 1, Depth: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{Maps: unitMap, Clusters: []alloc.ClusterSpec{strip("c", 10, 1, 1)}, Projects: tt.projects}
			res, err := Allocate(context.Background(), in, unitOptions(""))
			if !errs.Is(err, errs.ErrCodeInvalidDemand) {
				t.Errorf("Allocate() error = %v, want INVALID_DEMAND", err)
			}
			if res != nil {
				t.Error("Allocate() returned a partial result")
			}
		})
	}
}

func TestAllocateRejectsBadFloorPlan(t *testing.T) {
	tests := []struct {
		name     string
		clusters []alloc.ClusterSpec
		opts     Options
	}{
		{"unknown map", []alloc.ClusterSpec{{Name: "c", MapID: "nope", End: geom.Pt(10, 0), Score: 1}}, unitOptions("")},
		{"degenerate cluster", []alloc.ClusterSpec{{Name: "c", MapID: "m", Score: 1}}, unitOptions("")},
		{"bad edge rule", []alloc.ClusterSpec{strip("c", 10, 1, 1)}, unitOptions("diagonal")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{Maps: unitMap, Clusters: tt.clusters, Projects: projects(1, 1, 1)}
			if _, err := Allocate(context.Background(), in, tt.opts); !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("Allocate() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestAllocateNoProjects(t *testing.T) {
	in := Input{Maps: unitMap, Clusters: []alloc.ClusterSpec{strip("c", 4, 1, 1)}}
	res, err := Allocate(context.Background(), in, unitOptions(""))
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if len(res.Placements) != 0 || len(res.Skipped) != 0 || len(res.Usage) != 1 {
		t.Errorf("result = %+v, want empty run over one cluster", res)
	}
}

func TestAllocateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := Input{Maps: unitMap, Clusters: []alloc.ClusterSpec{strip("c", 4, 1, 1)}, Projects: projects(2, 1, 1)}
	if _, err := Allocate(ctx, in, unitOptions("")); !errors.Is(err, context.Canceled) {
		t.Errorf("Allocate() error = %v, want context.Canceled", err)
	}
}

func TestAllocateIsDeterministic(t *testing.T) {
	in := Input{
		Maps: unitMap,
		Clusters: []alloc.ClusterSpec{
			strip("north", 12, 3, 100),
			strip("south", 9, 2, 100),
			strip("annex", 5, 1, 40),
		},
	}
	for i := 0; i < 40; i++ {
		in.Projects = append(in.Projects, alloc.Demand{ID: fmt.Sprint(i), Width: float64(1 + i%3), Depth: float64(1 + (i/3)%2)})
	}

	first, err := Allocate(context.Background(), in, unitOptions(""))
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	second, err := Allocate(context.Background(), in, unitOptions(""))
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if diff := cmp.Diff(first.Placements, second.Placements); diff != "" {
		t.Errorf("placements differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Skipped, second.Skipped); diff != "" {
		t.Errorf("skipped differ between runs (-first +second):\n%s", diff)
	}
	if first.RunID == second.RunID {
		t.Error("two runs share a run ID")
	}
}

func TestAllocatePlacementGeometry(t *testing.T) {
	in := Input{
		Maps:     []alloc.Map{{ID: "1", Scale: 1}},
		Clusters: []alloc.ClusterSpec{{Name: "hall", MapID: "1", End: geom.Pt(100, 0), Score: 100, Rows: 1}},
		Projects: []alloc.Demand{{ID: "p", Name: "Solar Car", Width: 2, Depth: 2}},
	}
	res, err := Allocate(context.Background(), in, Options{Alloc: alloc.Options{BasicUnitSize: 2}})
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	p, ok := res.Placement("p")
	if !ok {
		t.Fatal("Placement(p) not found")
	}
	want := Placement{
		ProjectID: "p",
		Name:      "Solar Car",
		MapID:     "1",
		Cluster:   "hall",
		Polygon:   geom.Polygon{{X: 0, Y: -1}, {X: 2, Y: -1}, {X: 2, Y: 1}, {X: 0, Y: 1}},
		Centre:    geom.IntPoint{X: 1, Y: 0},
		Score:     p.Score,
		Block:     alloc.Block{X: 0, Y: 0, Width: 1, Height: 1},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("placement mismatch (-want +got):\n%s", diff)
	}
	if col := p.Centre.X / res.Usage[0].UnitPx; col != 0 && col != 49 {
		t.Errorf("centre in column %d, want 0 or 49", col)
	}
}

func TestAllocateOnePixelUnits(t *testing.T) {
	in := Input{
		Maps:     unitMap,
		Clusters: []alloc.ClusterSpec{strip("c", 4, 1, 100)},
		Projects: []alloc.Demand{{ID: "p", Width: 1, Depth: 1}},
	}
	opts := Options{Alloc: alloc.Options{BasicUnitSize: 1, Margin: 0.5}}
	res, err := Allocate(context.Background(), in, opts)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	p, ok := res.Placement("p")
	if !ok {
		t.Fatalf("Placement(p) not found, skipped = %v", res.Skipped)
	}
	// The half pixel booth rounds to a flat polygon; the centre still
	// comes from its rectangle.
	if want := (geom.IntPoint{X: 0, Y: 0}); p.Centre != want {
		t.Errorf("Centre = %v, want %v", p.Centre, want)
	}
	if len(p.Polygon) != 4 {
		t.Errorf("len(Polygon) = %d, want 4", len(p.Polygon))
	}
}

func TestAllocateFiftyColumnStripUsesTheEnds(t *testing.T) {
	in := Input{
		Maps:     []alloc.Map{{ID: "1", Scale: 1}},
		Clusters: []alloc.ClusterSpec{{Name: "hall", MapID: "1", Start: geom.Pt(0, 0), End: geom.Pt(100, 0), Score: 100, Rows: 1}},
		Projects: []alloc.Demand{{ID: "a", Width: 2, Depth: 2}, {ID: "b", Width: 2, Depth: 2}},
	}
	res, err := Allocate(context.Background(), in, Options{Alloc: alloc.Options{BasicUnitSize: 2}})
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if u := res.Usage[0]; u.Columns != 50 || u.UnitPx != 2 {
		t.Fatalf("grid = %d columns of %d px, want 50 of 2 px", u.Columns, u.UnitPx)
	}

	tests := []struct {
		id     string
		column int
	}{
		{"a", 0},
		{"b", 49},
	}
	for _, tt := range tests {
		p, ok := res.Placement(tt.id)
		if !ok {
			t.Fatalf("Placement(%s) not found", tt.id)
		}
		centroid, err := p.Polygon.Centroid()
		if err != nil {
			t.Fatalf("Centroid() error: %v", err)
		}
		if centroid != p.Centre {
			t.Errorf("%s: polygon centroid %v, Centre %v", tt.id, centroid, p.Centre)
		}
		if col := centroid.X / 2; col != tt.column {
			t.Errorf("%s: centroid in column %d, want %d", tt.id, col, tt.column)
		}
	}
}

func TestResultFilters(t *testing.T) {
	res := &Result{
		Placements: []Placement{{ProjectID: "1", MapID: "a"}, {ProjectID: "2", MapID: "b"}, {ProjectID: "3", MapID: "a"}},
		Usage:      []ClusterUsage{{Cluster: "x", MapID: "a"}, {Cluster: "y", MapID: "b"}},
	}
	if got := res.PlacementsOn("a"); len(got) != 2 || got[1].ProjectID != "3" {
		t.Errorf("PlacementsOn(a) = %+v", got)
	}
	if got := res.UsageOn("b"); len(got) != 1 || got[0].Cluster != "y" {
		t.Errorf("UsageOn(b) = %+v", got)
	}
	if _, ok := res.Placement("9"); ok {
		t.Error("Placement(9) found")
	}
}

type recordingHooks struct {
	observability.NoopAllocationHooks
	starts, placed, skipped, completes int
}

func (h *recordingHooks) OnRunStart(context.Context, string, int, int) { h.starts++ }
func (h *recordingHooks) OnPlaced(context.Context, string, string, string, float64) {
	h.placed++
}
func (h *recordingHooks) OnSkipped(context.Context, string) { h.skipped++ }
func (h *recordingHooks) OnRunComplete(context.Context, string, int, int, time.Duration, error) {
	h.completes++
}

func TestAllocateFiresHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	h := &recordingHooks{}
	observability.SetAllocationHooks(h)

	in := Input{Maps: unitMap, Clusters: []alloc.ClusterSpec{strip("c", 3, 1, 1)}, Projects: projects(5, 1, 1)}
	if _, err := Allocate(context.Background(), in, unitOptions(alloc.EdgeRuleAnyBoundary)); err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if h.starts != 1 || h.completes != 1 || h.placed != 3 || h.skipped != 2 {
		t.Errorf("hooks = %+v, want 1 start, 3 placed, 2 skipped, 1 complete", *h)
	}
}

func TestRunnerCachesResults(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	r := NewRunner(fc, nil, nil, nil)
	defer r.Close()

	in := Input{Maps: unitMap, Clusters: []alloc.ClusterSpec{strip("c", 10, 2, 50)}, Projects: projects(6, 2, 1)}

	first, err := r.Run(ctx, in, unitOptions(""))
	if err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if first.CacheHit {
		t.Error("first Run() reported a cache hit")
	}

	second, err := r.Run(ctx, in, unitOptions(""))
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if !second.CacheHit {
		t.Error("second Run() missed the cache")
	}
	if second.RunID != first.RunID {
		t.Errorf("cached RunID = %s, want %s", second.RunID, first.RunID)
	}
	if diff := cmp.Diff(first.Placements, second.Placements); diff != "" {
		t.Errorf("cached placements differ (-fresh +cached):\n%s", diff)
	}

	opts := unitOptions("")
	opts.Refresh = true
	third, err := r.Run(ctx, in, opts)
	if err != nil {
		t.Fatalf("refresh Run() error: %v", err)
	}
	if third.CacheHit || third.RunID == first.RunID {
		t.Error("refresh Run() served the cached result")
	}

	in.Projects = in.Projects[:5]
	fourth, err := r.Run(ctx, in, unitOptions(""))
	if err != nil {
		t.Fatalf("changed input Run() error: %v", err)
	}
	if fourth.CacheHit {
		t.Error("Run() with different projects hit the cache")
	}
}

func TestRunnerHonoursRunLock(t *testing.T) {
	ctx := context.Background()
	locker := runlock.NewLocal()
	release, err := locker.Acquire(ctx, "expo")
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	r := NewRunner(nil, nil, locker, nil)
	in := Input{Maps: unitMap, Clusters: []alloc.ClusterSpec{strip("c", 4, 1, 1)}, Projects: projects(1, 1, 1)}
	opts := unitOptions("")
	opts.LockKey = "expo"

	if _, err := r.Run(ctx, in, opts); !errs.Is(err, errs.ErrCodeLocked) {
		t.Fatalf("Run() error = %v, want LOCKED", err)
	}
	release(ctx)
	if _, err := r.Run(ctx, in, opts); err != nil {
		t.Fatalf("Run() after release error: %v", err)
	}
	if locker.Held("expo") {
		t.Error("Run() did not release the lock")
	}
}

func TestRunnerValidatesBeforeLocking(t *testing.T) {
	locker := runlock.NewLocal()
	r := NewRunner(nil, nil, locker, nil)
	in := Input{Maps: unitMap, Clusters: []alloc.ClusterSpec{strip("c", 4, 1, 1)}, Projects: []alloc.Demand{{ID: "x"}}}
	opts := unitOptions("")
	opts.LockKey = "expo"

	if _, err := r.Run(context.Background(), in, opts); !errs.Is(err, errs.ErrCodeInvalidDemand) {
		t.Errorf("Run() error = %v, want INVALID_DEMAND", err)
	}
	if locker.Held("expo") {
		t.Error("lock held after validation failure")
	}
}
