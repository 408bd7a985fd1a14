package backbone

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/vptree"
)

// tierNames label the search tiers in log events.
var tierNames = [...]string{"primary", "secondary", "exhaustive"}

// PrepareNNCache records the k nearest backbone rows of every non-backbone
// row and stores the cache on b.
//
// The search runs over a tree of the whole image: a query for r results
// returns the r nearest rows of any kind, of which the backbone ones are
// kept. When fewer than k survive, the query is repeated with the secondary
// and finally with every row.
//
// Errors: ErrInvalidArgument when k is outside [1, backbone size], or the
// context error.
func (b *Backbone) PrepareNNCache(ctx context.Context, k int) error {
	// 1) Validate and resolve tiers.
	n := b.data.Rows()
	if k < 1 || k > len(b.indices) {
		return fmt.Errorf("%w: neighbourhood size %d with %d backbone rows", ErrInvalidArgument, k, len(b.indices))
	}
	primary, secondary := b.cfg.PrimaryRange, b.cfg.SecondaryRange
	if primary == 0 {
		primary = min(primaryFactor*k, n)
	}
	if secondary == 0 {
		secondary = min(secondaryFactor*k, n)
	}
	ranges := [...]int{primary, secondary, n}

	// 2) Whole-image tree.
	rest := b.outsiders()
	cache := matrix.Zeros(len(rest), k+1)
	if len(rest) == 0 {
		b.cache = cache
		return nil
	}
	b.cfg.Logger.Info("building VP-tree for the whole image", "rows", n, "backbone", len(b.indices))
	pts := vptree.RowPoints(b.data)
	tree := vptree.NewPointTree(pts, vptree.WithSeed(b.cfg.Seed))

	// 3) One query chain per non-backbone row.
	var escalated [len(ranges)]atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.cfg.Workers)
	var ri int
	for ri = range rest {
		if egCtx.Err() != nil {
			break
		}
		ri := ri
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			row := cache.RawRow(ri)
			full := rest[ri]
			row[0] = float64(full)
			var tier, found, j int
			for tier = range ranges {
				found = 0
				res, _ := tree.Search(pts[full], ranges[tier])
				for j = range res {
					if !b.members.Contains(uint32(res[j].Index)) {
						continue
					}
					found++
					row[found] = float64(res[j].Index)
					if found == k {
						break
					}
				}
				if found == k {
					return nil
				}
				escalated[tier].Add(1)
				b.cfg.Logger.Debug("search range under-delivered",
					"row", full, "tier", tierNames[tier], "found", found, "want", k)
			}

			return fmt.Errorf("%w: row %d has %d backbone neighbours, want %d", ErrInvalidArgument, full, found, k)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if e := escalated[0].Load(); e > 0 {
		b.cfg.Logger.Warn("NN cache searches escalated",
			"from_primary", e, "from_secondary", escalated[1].Load(), "rows", len(rest))
	}
	b.cfg.Logger.Info("NN cache created", "rows", len(rest), "neighbours", k)
	b.cache = cache

	return nil
}

// SetNNCache installs a precomputed cache after checking its layout.
//
// Errors: ErrDimensionMismatch for a wrong row or column count,
// ErrInvalidArgument for rows that do not match the backbone.
func (b *Backbone) SetNNCache(cache *matrix.Dense) error {
	if cache == nil {
		return matrix.ErrNilMatrix
	}
	rest := b.outsiders()
	r, c := cache.Dims()
	if r != len(rest) || c < 2 {
		return fmt.Errorf("%w: cache %dx%d for %d non-backbone rows", ErrDimensionMismatch, r, c, len(rest))
	}
	var i, j int
	for i = 0; i < r; i++ {
		row := cache.RawRow(i)
		if int(row[0]) != rest[i] {
			return fmt.Errorf("%w: cache row %d is pixel %g, want %d", ErrInvalidArgument, i, row[0], rest[i])
		}
		for j = 1; j < c; j++ {
			if _, ok := b.local[int(row[j])]; !ok || row[j] != float64(int(row[j])) {
				return fmt.Errorf("%w: cache row %d neighbour %g is not a backbone row", ErrInvalidArgument, i, row[j])
			}
		}
	}
	b.cache = cache.Clone()

	return nil
}
