package alloc

// grid tracks which units of a cluster are still free. Cells are stored
// row-major; true means free.
type grid struct {
	rows, columns int
	free          []bool
	claimed       int
}

func newGrid(rows, columns int) *grid {
	free := make([]bool, rows*columns)
	for i := range free {
		free[i] = true
	}
	return &grid{rows: rows, columns: columns, free: free}
}

// fits reports whether b lies inside the grid and every unit in it is free.
func (g *grid) fits(b Block) bool {
	if b.X < 0 || b.Y < 0 || b.Width <= 0 || b.Height <= 0 {
		return false
	}
	if b.X+b.Width > g.columns || b.Y+b.Height > g.rows {
		return false
	}
	for y := b.Y; y < b.Y+b.Height; y++ {
		row := g.free[y*g.columns : (y+1)*g.columns]
		for x := b.X; x < b.X+b.Width; x++ {
			if !row[x] {
				return false
			}
		}
	}
	return true
}

// claim marks every unit of b as taken. Callers check fits first.
func (g *grid) claim(b Block) {
	for y := b.Y; y < b.Y+b.Height; y++ {
		for x := b.X; x < b.X+b.Width; x++ {
			g.free[y*g.columns+x] = false
		}
	}
	g.claimed += b.Width * b.Height
}

func (g *grid) total() int { return len(g.free) }
