package knngraph

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hsisomap/hsisomap/graph"
	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/unionfind"
	"github.com/hsisomap/hsisomap/vptree"
)

// buildParams parameterizes the shared two-pass build.
type buildParams struct {
	kOf     func(row int) int // neighbour count of a row
	pool    int               // candidate pool depth per row
	poolKey string            // property key reported on augmentation failure
	backend graph.Backend
	workers int
	seed    int64
	logger  *logging.Logger
}

// edge is a deferred candidate.
type edge struct {
	a, b   int
	weight float64
}

// neighbourhood is one row's candidate pool, nearest first, self excluded.
type neighbourhood struct {
	rows  []int
	dists []float64
}

// build runs the primary pass and the augmentation pass.
func build(ctx context.Context, data *matrix.Dense, p buildParams) (*result, error) {
	n := data.Rows()
	g, err := graph.New(p.backend, n)
	if err != nil {
		return nil, err
	}

	// 1) Candidate pools, one query per row.
	pools, err := queryPools(ctx, data, p.pool, p.workers, p.seed)
	if err != nil {
		return nil, err
	}

	// 2) Primary pass.
	uf := unionfind.New(n)
	var (
		deferred []edge
		i, j, k  int
	)
	for i = 0; i < n; i++ {
		k = p.kOf(i)
		nb := pools[i]
		for j = range nb.rows {
			if j < k {
				if err = g.Connect(i, nb.rows[j], nb.dists[j]); err != nil {
					return nil, fmt.Errorf("knngraph: connect %d-%d: %w", i, nb.rows[j], err)
				}
				uf.Connect(i, nb.rows[j])
				continue
			}
			deferred = append(deferred, edge{a: i, b: nb.rows[j], weight: nb.dists[j]})
		}
	}
	r := &result{g: g, components: uf.Count()}
	p.logger.Info("kNN primary pass done", "rows", n, "edges", g.NumEdges(), "components", r.components)
	if r.components == 1 {
		return r, nil
	}

	// 3) Kruskal augmentation over the deferred candidates.
	sort.SliceStable(deferred, func(a, b int) bool { return deferred[a].weight < deferred[b].weight })
	var e edge
	for _, e = range deferred {
		if !uf.Connect(e.a, e.b) {
			continue
		}
		if err = g.Connect(e.a, e.b, e.weight); err != nil {
			return nil, fmt.Errorf("knngraph: connect %d-%d: %w", e.a, e.b, err)
		}
		r.augmented++
		if uf.Count() == 1 {
			break
		}
	}
	p.logger.Info("MST augmentation done", "augmented", r.augmented, "components", uf.Count())
	if uf.Count() != 1 {
		return nil, fmt.Errorf("%w: %d components remain, increase %s", ErrAugmentationFailed, uf.Count(), p.poolKey)
	}

	return r, nil
}

// queryPools finds, for every row, its pool nearest other rows. Rows are
// matched to themselves by index, so duplicates of a row stay candidates.
func queryPools(ctx context.Context, data *matrix.Dense, pool, workers int, seed int64) ([]neighbourhood, error) {
	pts := vptree.RowPoints(data)
	tree := vptree.NewPointTree(pts, vptree.WithSeed(seed))
	out := make([]neighbourhood, len(pts))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	var i int
	for i = range pts {
		if egCtx.Err() != nil {
			break
		}
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			found, dists := tree.Search(pts[i], pool+1)
			nb := neighbourhood{rows: make([]int, 0, pool), dists: make([]float64, 0, pool)}
			var j int
			for j = range found {
				if found[j].Index == i {
					continue
				}
				if len(nb.rows) == pool {
					break
				}
				nb.rows = append(nb.rows, found[j].Index)
				nb.dists = append(nb.dists, dists[j])
			}
			out[i] = nb
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
