package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/boothplan/pkg/alloc"
	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/geom"
)

func TestLoadReferenceFloorPlan(t *testing.T) {
	fp, err := Load(filepath.Join("..", "..", "examples", "floorplan.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(fp.Maps) != 2 {
		t.Errorf("len(Maps) = %d, want 2", len(fp.Maps))
	}
	if len(fp.Clusters) != 18 {
		t.Errorf("len(Clusters) = %d, want 18", len(fp.Clusters))
	}
	if diff := cmp.Diff(alloc.DefaultOptions(), fp.Options()); diff != "" {
		t.Errorf("Options() mismatch (-want +got):\n%s", diff)
	}

	clusters, err := fp.BuildClusters()
	if err != nil {
		t.Fatalf("Clusters() error: %v", err)
	}
	first := clusters[0]
	if first.Name() != "l1-atrium-south" || first.Columns() != 8 || first.Rows() != 3 || first.UnitPx() != 80 {
		t.Errorf("first cluster = %s %dx%d @%dpx, want l1-atrium-south 8x3 @80px",
			first.Name(), first.Columns(), first.Rows(), first.UnitPx())
	}
	if got := clusters[12].UnitPx(); got != 117 {
		t.Errorf("level 2 UnitPx() = %d, want 117", got)
	}
}

func TestReferenceFloorPlanSingleRowCapacity(t *testing.T) {
	fp, err := Load(filepath.Join("..", "..", "examples", "floorplan.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		rule   alloc.EdgeRule
		perRow func(columns int) int
	}{
		{alloc.EdgeRuleOuter, func(columns int) int { return min(columns, 2) }},
		{alloc.EdgeRuleAnyBoundary, func(columns int) int { return columns }},
	}
	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			plan := *fp
			plan.Settings.EdgeRule = string(tt.rule)
			clusters, err := plan.BuildClusters()
			if err != nil {
				t.Fatalf("BuildClusters() error: %v", err)
			}

			singleRow := 0
			for _, c := range clusters {
				if c.Rows() != 1 {
					continue
				}
				singleRow++
				placed := 0
				for i := 0; i < c.Columns(); i++ {
					if _, ok := c.Allocate(alloc.Demand{ID: fmt.Sprint(i), Width: 2, Depth: 2}); ok {
						placed++
					}
				}
				if want := tt.perRow(c.Columns()); placed != want {
					t.Errorf("%s (%d columns): placed %d booths, want %d", c.Name(), c.Columns(), placed, want)
				}
			}
			if singleRow != 14 {
				t.Errorf("single-row clusters = %d, want 14", singleRow)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	fp, err := Load(filepath.Join("..", "..", "examples", "floorplan.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	m, ok := fp.Map("hall")
	if !ok {
		t.Fatal("Map(hall) not found")
	}
	if m.Scale != 0.02 || m.Width != 3000 {
		t.Errorf("Map(hall) = %+v", m)
	}
	specs := fp.ClusterSpecs()
	want := alloc.ClusterSpec{Name: "main-aisle", MapID: "hall", Start: geom.Pt(500, 1000), End: geom.Pt(2500, 1000), Score: 100, Rows: 2}
	if diff := cmp.Diff(want, specs[0]); diff != "" {
		t.Errorf("ClusterSpecs()[0] mismatch (-want +got):\n%s", diff)
	}
	if fp.Options().EdgeRule != alloc.EdgeRuleOuter {
		t.Errorf("EdgeRule = %q, want outer default", fp.Options().EdgeRule)
	}
}

const minimalJSON = `{
  "settings": {"margin": 0, "edge_rule": "any"},
  "maps": [{"id": "m", "scale": 1}],
  "clusters": [{"name": "c", "map": "m", "start": [0, 0], "end": [10, 0], "score": 10}]
}`

func TestParseJSON(t *testing.T) {
	fp, err := Parse([]byte(minimalJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	opts := fp.Options()
	if opts.Margin != 0 {
		t.Errorf("Margin = %v, want explicit 0", opts.Margin)
	}
	if opts.EdgeRule != alloc.EdgeRuleAnyBoundary {
		t.Errorf("EdgeRule = %q, want any", opts.EdgeRule)
	}
	if opts.BasicUnitSize != alloc.DefaultBasicUnitSize {
		t.Errorf("BasicUnitSize = %v, want default", opts.BasicUnitSize)
	}

	in := fp.Input([]alloc.Demand{{ID: "1", Width: 2, Depth: 2}})
	if len(in.Maps) != 1 || len(in.Clusters) != 1 || len(in.Projects) != 1 {
		t.Errorf("Input() = %+v", in)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"toml", FormatTOML, `
[settings]
basic_unit = 2
[[maps]]
id = "m"
scale = 1
[[clusters]]
name = "c"
map = "m"
start = [0, 0]
end = [10, 0]
`},
		{"yaml", FormatYAML, `
maps: [{id: m, scale: 1, colour: red}]
clusters: [{name: c, map: m, start: [0, 0], end: [10, 0]}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("Parse() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte("[[maps]\nid ="), FormatTOML); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("Parse(toml) error = %v, want INVALID_CONFIG", err)
	}
	if _, err := Parse([]byte("{"), FormatJSON); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("Parse(json) error = %v, want INVALID_CONFIG", err)
	}
	if _, err := Parse([]byte("{}"), "ini"); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("Parse(ini) error = %v, want INVALID_FORMAT", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fp := &FloorPlan{
		Settings: Settings{EdgeRule: "sideways"},
		Maps: []MapConfig{
			{ID: "1", Scale: 0.025},
			{ID: "1", Scale: 0.017},
			{ID: "2", Scale: 0},
		},
		Clusters: []ClusterConfig{
			{Name: "a", Map: "1", Start: []float64{0, 0}, End: []float64{100, 0}, Score: 10},
			{Name: "a", Map: "1", Start: []float64{0, 0}, End: []float64{100, 0}, Score: 10},
			{Name: "b", Map: "9", Start: []float64{0, 0}, End: []float64{100, 0}, Score: 10},
			{Name: "c", Map: "1", Start: []float64{0}, End: []float64{100, 0}, Score: 10},
			{Name: "", Map: "1", Start: []float64{0, 0}, End: []float64{100, 0}},
		},
	}

	err := fp.Validate()
	if !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Fatalf("Validate() error = %v, want INVALID_CONFIG", err)
	}

	problems := Problems(err)
	wantFragments := []string{
		"edge_rule",
		"duplicate map id",
		"scale must be positive",
		"duplicate cluster name",
		"unknown map",
		"[x, y] pairs",
		"cluster id cannot be empty",
	}
	if len(problems) != len(wantFragments) {
		t.Errorf("len(Problems()) = %d, want %d: %v", len(problems), len(wantFragments), problems)
	}
	joined := err.Error()
	for _, frag := range wantFragments {
		if !strings.Contains(joined, frag) {
			t.Errorf("Validate() error lacks %q:\n%s", frag, joined)
		}
	}
}

func TestValidateCatchesClusterGeometry(t *testing.T) {
	fp := &FloorPlan{
		Maps: []MapConfig{{ID: "1", Scale: 0.025}},
		Clusters: []ClusterConfig{
			{Name: "stub", Map: "1", Start: []float64{0, 0}, End: []float64{40, 0}, Score: 10},
		},
	}
	err := fp.Validate()
	if err == nil || !strings.Contains(err.Error(), "shorter than one") {
		t.Errorf("Validate() error = %v, want centerline too short", err)
	}
}

func TestValidateEmptyPlan(t *testing.T) {
	problems := Problems(Default().Validate())
	if len(problems) != 2 {
		t.Errorf("Problems() = %v, want missing maps and clusters", problems)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"plan.toml", FormatTOML, true},
		{"plan.YAML", FormatYAML, true},
		{"plan.yml", FormatYAML, true},
		{"dir/plan.json", FormatJSON, true},
		{"plan.ini", "", false},
		{"plan", "", false},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FormatFromPath(%q) = %q, %v", tt.path, got, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("Load() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"maps": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("Load() error = %v, want it to name %s", err, path)
	}
}
