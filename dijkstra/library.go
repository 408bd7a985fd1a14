package dijkstra

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/hsisomap/hsisomap/graph"
	"github.com/hsisomap/hsisomap/matrix"
)

// libraryEngine delegates each single-source solve to gonum.
type libraryEngine struct {
	base
	g *graph.Library
}

// Run computes the distance matrix with path.DijkstraFrom, one source per
// pool slot. gonum reports unreachable vertices as +Inf, which is mapped to
// matrix.Sentinel.
func (e *libraryEngine) Run(ctx context.Context) error {
	start := time.Now()
	e.result = nil

	out := matrix.Zeros(len(e.sources), e.n)
	gg := e.g.Gonum()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	var row, src int
	for row, src = range e.sources {
		row, src := row, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sh := path.DijkstraFrom(simple.Node(int64(src)), gg)
			dst := out.RawRow(row)
			var v int
			for v = range dst {
				dst[v] = e.capDistance(sh.WeightTo(int64(v)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.result = out
	e.cfg.Logger.Debug("dijkstra solved",
		"implementation", ImplementationLibrary.String(),
		"sources", len(e.sources),
		"vertices", e.n,
		"elapsed", time.Since(start))

	return nil
}
