package graph

import (
	"github.com/sameraamar/HNSW/internal/queue"
)

// SearchKnn returns up to k nearest labels for query, farthest first.
// Fewer than k results are returned when the graph cannot supply them.
func (g *Graph) SearchKnn(query []float32, k int) ([]Result, error) {
	if g.closed.Load() {
		return nil, ErrClosed
	}
	if len(query) != g.dim {
		return nil, &ErrDimensionMismatch{Expected: g.dim, Actual: len(query)}
	}
	if k < 1 {
		return nil, ErrInvalidK
	}

	ep, maxLevel := g.entry()
	if ep < 0 {
		return nil, nil
	}

	ctx := g.getContext()
	defer g.ctxPool.Put(ctx)

	cur := uint32(ep)
	curDist := g.dist(query, g.nodes[cur].vector)
	for level := maxLevel; level > 0; level-- {
		cur, curDist = g.greedy(ctx, query, cur, curDist, level)
	}

	g.searchLayer(ctx, query, cur, 0, max(g.Ef(), k))
	for ctx.top.Len() > k {
		ctx.top.Pop()
	}

	results := make([]Result, 0, ctx.top.Len())
	for ctx.top.Len() > 0 {
		item, _ := ctx.top.Pop()
		results = append(results, Result{Distance: item.Distance, Label: g.nodes[item.ID].label})
	}
	return results, nil
}

// greedy walks level from cur towards query and returns the closest node found.
func (g *Graph) greedy(ctx *searchContext, query []float32, cur uint32, curDist float32, level int) (uint32, float32) {
	for changed := true; changed; {
		changed = false
		for _, id := range g.linksOf(ctx, cur, level) {
			if d := g.dist(query, g.nodes[id].vector); d < curDist {
				cur, curDist = id, d
				changed = true
			}
		}
	}
	return cur, curDist
}

// searchLayer runs a best-first search on one level starting at ep and
// leaves the ef closest nodes in ctx.top.
func (g *Graph) searchLayer(ctx *searchContext, query []float32, ep uint32, level, ef int) {
	visited, candidates, top := ctx.visited, ctx.candidates, ctx.top
	visited.ClearAll()
	candidates.Reset()
	top.Reset()

	d := g.dist(query, g.nodes[ep].vector)
	visited.Set(uint(ep))
	candidates.Push(queue.Item{ID: ep, Distance: d})
	top.Push(queue.Item{ID: ep, Distance: d})

	for candidates.Len() > 0 {
		c, _ := candidates.Pop()
		worst, _ := top.Top()
		if c.Distance > worst.Distance {
			break
		}

		for _, id := range g.linksOf(ctx, c.ID, level) {
			if visited.Test(uint(id)) {
				continue
			}
			visited.Set(uint(id))

			d := g.dist(query, g.nodes[id].vector)
			worst, _ := top.Top()
			if top.Len() < ef || d < worst.Distance {
				candidates.Push(queue.Item{ID: id, Distance: d})
				top.Push(queue.Item{ID: id, Distance: d})
				if top.Len() > ef {
					top.Pop()
				}
			}
		}
	}
}
