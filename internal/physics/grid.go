package physics

import (
	"cmp"
	"math"
	"slices"

	"github.com/acidgo/acid/internal/core/ecs"
)

// maxCellSpan bounds how many cells per axis one body may cover. Larger
// bodies go to the oversized list and are tested against everything.
const maxCellSpan = 16

type cellKey struct {
	x, y, z int32
}

// Pair is an unordered pair of entities, stored with A < B.
type Pair struct {
	A, B ecs.EntityID
}

func makePair(a, b ecs.EntityID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func comparePairs(x, y Pair) int {
	if c := cmp.Compare(x.A, y.A); c != 0 {
		return c
	}
	return cmp.Compare(x.B, y.B)
}

type gridItem struct {
	id  ecs.EntityID
	box AABB
}

// grid is a uniform broadphase: bodies are bucketed into cubic cells and
// only bodies sharing a cell are tested against each other.
// Rebuilt every tick; accessed only from the engine loop goroutine.
type grid struct {
	size      float32
	cells     map[cellKey][]int
	items     []gridItem
	oversized []int
}

func newGrid(cellSize float32) *grid {
	if cellSize <= 0 {
		cellSize = 4
	}
	return &grid{size: cellSize, cells: make(map[cellKey][]int)}
}

// cellRange maps [lo, hi] on one axis to cell indices. ok is false when the
// span is too wide or leaves the int32 cell space.
func (g *grid) cellRange(lo, hi float32) (int32, int32, bool) {
	l := math.Floor(float64(lo) / float64(g.size))
	h := math.Floor(float64(hi) / float64(g.size))
	if !(h-l < maxCellSpan) || l < math.MinInt32 || h > math.MaxInt32 {
		return 0, 0, false
	}
	return int32(l), int32(h), true
}

func (g *grid) reset() {
	clear(g.cells)
	g.items = g.items[:0]
	g.oversized = g.oversized[:0]
}

func (g *grid) insert(id ecs.EntityID, box AABB) {
	idx := len(g.items)
	g.items = append(g.items, gridItem{id: id, box: box})

	var lo, hi [3]int32
	for i := range 3 {
		l, h, ok := g.cellRange(box.Min[i], box.Max[i])
		if !ok {
			g.oversized = append(g.oversized, idx)
			return
		}
		lo[i], hi[i] = l, h
	}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				k := cellKey{x, y, z}
				g.cells[k] = append(g.cells[k], idx)
			}
		}
	}
}

// overlapping returns every pair whose bounds intersect, sorted.
func (g *grid) overlapping() []Pair {
	seen := make(map[Pair]struct{})
	test := func(i, j int) {
		a, b := g.items[i], g.items[j]
		if a.id == b.id {
			return
		}
		p := makePair(a.id, b.id)
		if _, ok := seen[p]; ok {
			return
		}
		if a.box.Overlaps(b.box) {
			seen[p] = struct{}{}
		}
	}
	for _, cell := range g.cells {
		for i := 0; i < len(cell); i++ {
			for j := i + 1; j < len(cell); j++ {
				test(cell[i], cell[j])
			}
		}
	}
	for _, o := range g.oversized {
		for j := range g.items {
			test(o, j)
		}
	}

	out := make([]Pair, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.SortFunc(out, comparePairs)
	return out
}
