// Package dijkstra implements multi-source Dijkstra over weighted undirected
// graphs.
//
// The parallel engine exports the graph once to CSR form and runs one
// independent single-source Dijkstra per source vertex on a bounded
// errgroup pool. Each run writes only its own row of the distance matrix, so
// no locking is needed.
//
// Complexity (per source):
//
//   - Time:  O((V + E) log V)
//   - Each vertex is extracted at most once: V extractions from the heap.
//   - Each edge relaxation may push a new entry into the heap: up to E pushes.
//   - Space: O(V + E) for the heap under "lazy-decrease-key" plus the visited bitset.
//
// Notes on implementation choices:
//
//   - Weights are validated at graph insertion, so no negative-weight scan is needed here.
//   - We stop exploring once the minimum distance in the heap exceeds MaxDistance.
//   - We use a "lazy" decrease-key strategy: pushing duplicates into the heap and ignoring stale entries.
package dijkstra

import (
	"container/heap"
	"context"
	"time"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/hsisomap/hsisomap/graph"
	"github.com/hsisomap/hsisomap/matrix"
)

// parallelEngine solves sources concurrently over a CSR snapshot.
type parallelEngine struct {
	base
	g *graph.AdjacencyList
}

// Run computes the distance matrix for the configured sources.
//
// Steps:
//  1. Snapshot the graph as a read-only CSR array.
//  2. Allocate the (sources × vertices) result.
//  3. Fan out one runner per source; each fills its own row.
//  4. Publish the result only if every runner succeeded.
func (e *parallelEngine) Run(ctx context.Context) error {
	start := time.Now()
	e.result = nil

	// 1) Snapshot.
	arr := e.g.Array()

	// 2) Allocate.
	out := matrix.Zeros(len(e.sources), e.n)

	// 3) Fan out.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	var (
		row int
		src int
	)
	for row, src = range e.sources {
		row, src := row, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := &runner{
				arr:     arr,
				maxDist: e.cfg.MaxDistance,
				dist:    out.RawRow(row),
				visited: bitset.New(uint(e.n)),
				pq:      make(nodePQ, 0, e.n),
			}
			r.init(src)
			r.process()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// 4) Publish.
	e.result = out
	e.cfg.Logger.Debug("dijkstra solved",
		"implementation", ImplementationParallel.String(),
		"sources", len(e.sources),
		"vertices", e.n,
		"elapsed", time.Since(start))

	return nil
}

// runner holds the mutable state for a single-source execution.
type runner struct {
	arr     *graph.Array   // read-only CSR graph
	maxDist float64        // exploration cap
	dist    []float64      // output row; Sentinel until reached
	visited *bitset.BitSet // finalized vertices
	pq      nodePQ         // min-heap of *nodeItem for lazy priority queue
}

// init sets every distance to Sentinel, the source to zero, and seeds the heap.
func (r *runner) init(src int) {
	var i int
	for i = range r.dist {
		r.dist[i] = matrix.Sentinel
	}
	r.dist[src] = 0
	heap.Init(&r.pq)
	heap.Push(&r.pq, &nodeItem{id: src, dist: 0})
}

// process is the core loop: pop the closest unfinalized vertex, finalize
// it, relax its edges.
func (r *runner) process() {
	var (
		item *nodeItem
		u    int
	)
	for r.pq.Len() > 0 {
		// 1) Pop the smallest-distance item from the heap.
		item = heap.Pop(&r.pq).(*nodeItem)
		u = item.id

		// 2) Skip stale entries.
		if r.visited.Test(uint(u)) {
			continue
		}

		// 3) Stop once the frontier passes the cap.
		if item.dist > r.maxDist {
			break
		}

		// 4) Finalize and relax.
		r.visited.Set(uint(u))
		r.relax(u)
	}

	// Anything tentatively reached beyond the cap stays unreachable.
	var v int
	for v = range r.dist {
		if r.dist[v] > r.maxDist {
			r.dist[v] = matrix.Sentinel
		}
	}
}

// relax examines each edge incident to u and improves neighbour distances.
func (r *runner) relax(u int) {
	var (
		k       int
		v       int
		newDist float64
	)
	du := r.dist[u]
	for k = r.arr.Offsets[u]; k < r.arr.Offsets[u+1]; k++ {
		v = r.arr.Neighbors[k]
		if r.visited.Test(uint(v)) {
			continue
		}
		newDist = du + r.arr.Weights[k]
		// Strictly better only; equal distances do not re-push.
		if newDist >= r.dist[v] {
			continue
		}
		r.dist[v] = newDist
		heap.Push(&r.pq, &nodeItem{id: v, dist: newDist})
	}
}

// nodeItem represents a vertex and its tentative distance from the source.
type nodeItem struct {
	id   int
	dist float64
}

// nodePQ is a min-heap of *nodeItem ordered by dist ascending.
type nodePQ []*nodeItem

// Len returns the number of items in the heap.
func (pq nodePQ) Len() int { return len(pq) }

// Less defines the comparison: smaller dist → higher priority.
func (pq nodePQ) Less(i, j int) bool { return pq[i].dist < pq[j].dist }

// Swap swaps two elements in the heap.
func (pq nodePQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

// Push adds a new element x onto the heap.
func (pq *nodePQ) Push(x interface{}) { *pq = append(*pq, x.(*nodeItem)) }

// Pop removes and returns the smallest element from the heap.
func (pq *nodePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}
