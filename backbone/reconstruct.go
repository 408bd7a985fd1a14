package backbone

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/matrix"
)

// Reconstruct maps input, one row per backbone row in Indices order, to
// every row of the full data.
//
// Backbone rows are copied. Every other row is Σ w_k·input(nb_k) over its
// first rc.Neighbors cached neighbours, with the weights of
// ReconstructionWeights. Without a cache one is prepared first.
//
// Errors: ErrUnsupported (adaptive strategy), ErrInvalidArgument,
// ErrDimensionMismatch, or the context error.
func (b *Backbone) Reconstruct(ctx context.Context, input *matrix.Dense, rc Reconstruction) (*matrix.Dense, error) {
	// 1) Validate.
	if input == nil {
		return nil, matrix.ErrNilMatrix
	}
	if input.Rows() != len(b.indices) {
		return nil, fmt.Errorf("%w: input has %d rows for %d backbone rows", ErrDimensionMismatch, input.Rows(), len(b.indices))
	}
	w, err := b.ReconstructionWeights(ctx, rc)
	if err != nil {
		return nil, err
	}

	// 2) Backbone rows.
	out := matrix.Zeros(b.data.Rows(), input.Cols())
	var i int
	for i = range b.indices {
		copy(out.RawRow(b.indices[i]), input.RawRow(i))
	}

	// 3) Weighted neighbours.
	var j, c int
	for i = 0; i < w.Rows(); i++ {
		cached := b.cache.RawRow(i)
		dst := out.RawRow(int(cached[0]))
		ws := w.RawRow(i)
		for j = range ws {
			src := input.RawRow(b.local[int(cached[j+1])])
			for c = range dst {
				dst[c] += ws[j] * src[c]
			}
		}
	}
	b.cfg.Logger.Info("reconstruction done", "rows", out.Rows(), "cols", out.Cols(), "rebuilt", w.Rows())

	return out, nil
}

// ReconstructionWeights returns one row of affine weights per cache row,
// aligned with the cache's neighbour columns.
//
// For a pixel x with neighbours n_1..n_k: D holds the rows x − n_j,
// C = D·Dᵀ, and the weights are the row sums of pinv(C) scaled to sum to 1.
// A total that cancels to zero falls back to uniform weights.
func (b *Backbone) ReconstructionWeights(ctx context.Context, rc Reconstruction) (*matrix.Dense, error) {
	// 1) Strategy and neighbourhood size.
	if rc.Strategy == StrategyAdaptive {
		return nil, fmt.Errorf("%w: %w: %s strategy", ErrInvalidArgument, ErrUnsupported, rc.Strategy)
	}
	if rc.Strategy != StrategyFixed {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, rc.Strategy)
	}
	k := rc.Neighbors
	if b.cache == nil {
		if k == 0 {
			return nil, fmt.Errorf("%w: %s is required without an NN cache", ErrInvalidArgument, KeyFixedNumber)
		}
		if err := b.PrepareNNCache(ctx, k); err != nil {
			return nil, err
		}
	}
	width := b.cache.Cols() - 1
	if k == 0 {
		k = width
	}
	if k < 1 || k > width {
		return nil, fmt.Errorf("%w: neighbourhood size %d with cache width %d", ErrInvalidArgument, k, width)
	}

	// 2) Per-row weights.
	rows := b.cache.Rows()
	w := matrix.Zeros(rows, k)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.cfg.Workers)
	var i int
	for i = 0; i < rows; i++ {
		if egCtx.Err() != nil {
			break
		}
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return b.localWeights(b.cache.RawRow(i)[:k+1], w.RawRow(i))
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return w, nil
}

// cancellationLimit bounds |Σw| relative to the entry mass of pinv(C)
// below which the weight total is treated as zero.
const cancellationLimit = 1e-12

// localWeights fills dst with the weights of cached[0] over cached[1:].
func (b *Backbone) localWeights(cached, dst []float64) error {
	k := len(dst)
	x := b.data.RawRow(int(cached[0]))
	dd := mat.NewDense(k, len(x), nil)
	var j int
	for j = 0; j < k; j++ {
		row := dd.RawRowView(j)
		floats.SubTo(row, x, b.data.RawRow(int(cached[j+1])))
	}
	var gram mat.Dense
	gram.Mul(dd, dd.T())
	inv, err := embedding.PseudoInverse(&gram, PseudoInverseCutoff)
	if err != nil {
		return fmt.Errorf("backbone: weights of row %d: %w", int(cached[0]), err)
	}

	for j = 0; j < k; j++ {
		dst[j] = floats.Sum(inv.RawRow(j))
	}
	total := floats.Sum(dst)
	if math.Abs(total) <= cancellationLimit*floats.Norm(inv.RawData(), 1) || math.IsNaN(total) || math.IsInf(total, 0) {
		for j = range dst {
			dst[j] = 1 / float64(k)
		}
		return nil
	}
	floats.Scale(1/total, dst)

	return nil
}
