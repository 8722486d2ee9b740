package geom

import (
	"errors"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRotate(t *testing.T) {
	tests := []struct {
		name  string
		v     Point
		angle float64
		want  Point
	}{
		{"zero angle", Pt(3, 4), 0, Pt(3, 4)},
		{"quarter turn", Pt(1, 0), math.Pi / 2, Pt(0, 1)},
		{"half turn", Pt(2, -1), math.Pi, Pt(-2, 1)},
		{"negative quarter", Pt(0, 5), -math.Pi / 2, Pt(5, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rotate(tt.v, tt.angle)
			if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
				t.Errorf("Rotate(%v, %v) = %v, want %v", tt.v, tt.angle, got, tt.want)
			}
		})
	}
}

func TestRectPolygonWinding(t *testing.T) {
	r := Rect{Center: Pt(100, 50), Width: 20, Height: 10}
	got := r.Polygon()
	want := Polygon{{90, 45}, {110, 45}, {110, 55}, {90, 55}}

	if len(got) != len(want) {
		t.Fatalf("len(Polygon()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("corner %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRectPolygonRotated(t *testing.T) {
	// A quarter turn maps the pre-rotation bottom-left (-w/2,-h/2) to (h/2,-w/2).
	r := Rect{Center: Pt(0, 0), Width: 20, Height: 10, Rotation: math.Pi / 2}
	got := r.Polygon()
	want := Polygon{{5, -10}, {5, 10}, {-5, 10}, {-5, -10}}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("corner %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRectPolygonRoundsHalfToEven(t *testing.T) {
	r := Rect{Center: Pt(0, 0), Width: 5, Height: 7}
	got := r.Polygon()

	// -2.5 -> -2, 2.5 -> 2, -3.5 -> -4, 3.5 -> 4
	want := Polygon{{-2, -4}, {2, -4}, {2, 4}, {-2, 4}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("corner %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPolygonCentroid(t *testing.T) {
	tests := []struct {
		name string
		p    Polygon
		want IntPoint
	}{
		{"square", Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, IntPoint{5, 5}},
		{"clockwise square", Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, IntPoint{5, 5}},
		{"offset rect", Polygon{{90, 45}, {110, 45}, {110, 55}, {90, 55}}, IntPoint{100, 50}},
		{"triangle", Polygon{{0, 0}, {6, 0}, {0, 6}}, IntPoint{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.p.Centroid()
			if err != nil {
				t.Fatalf("Centroid() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Centroid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolygonCentroidDegenerate(t *testing.T) {
	tests := []struct {
		name string
		p    Polygon
	}{
		{"empty", nil},
		{"two points", Polygon{{0, 0}, {1, 1}}},
		{"collinear", Polygon{{0, 0}, {5, 0}, {10, 0}, {5, 0}}},
		{"collapsed rect", Rect{Center: Pt(3, 3)}.Polygon()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.p.Centroid(); !errors.Is(err, ErrDegenerate) {
				t.Errorf("Centroid() error = %v, want ErrDegenerate", err)
			}
		})
	}
}

func TestPolygonBounds(t *testing.T) {
	p := Rect{Center: Pt(50, 50), Width: 20, Height: 10, Rotation: math.Pi / 4}.Polygon()
	lo, hi := p.Bounds()
	if lo.X >= 50 || lo.Y >= 50 || hi.X <= 50 || hi.Y <= 50 {
		t.Errorf("Bounds() = %v..%v, want box around (50,50)", lo, hi)
	}

	lo, hi = Polygon(nil).Bounds()
	if lo != (IntPoint{}) || hi != (IntPoint{}) {
		t.Errorf("Bounds() of empty polygon = %v..%v, want zero", lo, hi)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		p    Point
		want IntPoint
	}{
		{Pt(0.5, -0.5), IntPoint{X: 0, Y: 0}},
		{Pt(1.5, 2.5), IntPoint{X: 2, Y: 2}},
		{Pt(-1.6, 3.4), IntPoint{X: -2, Y: 3}},
	}
	for _, tt := range tests {
		if got := Round(tt.p); got != tt.want {
			t.Errorf("Round(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
