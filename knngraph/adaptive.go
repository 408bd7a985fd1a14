package knngraph

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/subsetter"
	"github.com/hsisomap/hsisomap/vptree"
)

// Candidate k range and sub-sample sizes of the edge-length regression.
const (
	minCandidateK = 3
	maxCandidateK = 22
	minSampleSize = 10
	maxSampleSize = 100
)

// AdaptiveK is the adaptive-k builder.
type AdaptiveK struct {
	result
	subsets   [][]int
	dims      []float64
	optimalK  []int
	k1, k2    int
	fallbackK int
}

// OptimalK returns the neighbour count chosen for each subset.
func (a *AdaptiveK) OptimalK() []int { return append([]int(nil), a.optimalK...) }

// IntrinsicDimensionality returns the estimate of each subset; NaN when a
// subset was too small to estimate.
func (a *AdaptiveK) IntrinsicDimensionality() []float64 { return append([]float64(nil), a.dims...) }

// Subsets returns the row groups the estimates refer to.
func (a *AdaptiveK) Subsets() [][]int {
	out := make([][]int, len(a.subsets))
	var i int
	for i = range a.subsets {
		out[i] = append([]int(nil), a.subsets[i]...)
	}

	return out
}

// ratioOrders returns the neighbour orders (K1, K2) of the distance-ratio
// estimator. Finer partitions have smaller subsets, so lower orders are used.
func ratioOrders(subsets int) (int, int) {
	switch {
	case subsets > 199:
		return 2, 1
	case subsets > 74:
		return 3, 1
	default:
		return 4, 2
	}
}

// newAdaptiveK estimates k per subset and builds the graph.
//
// Steps:
//  1. Slice the rows into cfg.Subsets groups (first-mean PCA slicing).
//  2. Per subset, in parallel: estimate the intrinsic dimensionality m and
//     pick the k in [3, 22] whose log N vs log(2L) slope is closest to
//     1 − 1/m, where L is the total kNN edge length of N random rows.
//  3. Run the shared build with each row's subset k.
func newAdaptiveK(ctx context.Context, data *matrix.Dense, cfg Options) (*AdaptiveK, error) {
	// 1) Subsets.
	s, err := subsetter.New(subsetter.KindEmbedding, data,
		subsetter.WithSubsets(cfg.Subsets),
		subsetter.WithSlicingMode(subsetter.SlicingFirstMean),
		subsetter.WithLogger(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("knngraph: subsetting: %w", err)
	}
	a := &AdaptiveK{subsets: s.Subsets(), fallbackK: cfg.K}
	a.k1, a.k2 = ratioOrders(len(a.subsets))
	a.dims = make([]float64, len(a.subsets))
	a.optimalK = make([]int, len(a.subsets))
	cfg.Logger.Info("adaptive k subsets", "subsets", len(a.subsets), "k1", a.k1, "k2", a.k2)

	// 2) Per-subset estimates.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)
	var si int
	for si = range a.subsets {
		si := si
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			rows := a.subsets[si]
			a.dims[si] = intrinsicDimensionality(data, rows, a.k1, a.k2, cfg.Seed)
			k, ok := optimalK(egCtx, data, rows, a.dims[si], cfg.Seed, si)
			if !ok {
				k = a.fallbackK
			}
			a.optimalK[si] = k
			cfg.Logger.Debug("subset estimate", "subset", si, "rows", len(rows), "dimensionality", a.dims[si], "k", k, "fallback", !ok)
			return egCtx.Err()
		})
	}
	if err = eg.Wait(); err != nil {
		return nil, err
	}

	// 3) Build.
	kByRow := make([]int, data.Rows())
	var r int
	for si = range a.subsets {
		for _, r = range a.subsets[si] {
			kByRow[r] = a.optimalK[si]
		}
	}
	res, err := build(ctx, data, buildParams{
		kOf:     func(row int) int { return kByRow[row] },
		pool:    cfg.AdaptivePoolDepth,
		poolKey: KeyAdaptiveKPoolDepth,
		backend: cfg.Backend,
		workers: cfg.Workers,
		seed:    cfg.Seed,
		logger:  cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.result = *res

	return a, nil
}

// intrinsicDimensionality averages 2·log(K1/K2) / log(d²(K1)/d²(K2)) over
// the rows of a subset, where d(K) is the distance to the K-th nearest
// other row. Rows with fewer than K1 neighbours or degenerate distances
// are skipped; NaN means no row qualified.
func intrinsicDimensionality(data *matrix.Dense, rows []int, k1, k2 int, seed int64) float64 {
	pts := vptree.SelectPoints(data, rows)
	tree := vptree.NewPointTree(pts, vptree.WithSeed(seed))
	logRatio := math.Log(float64(k1) / float64(k2))

	var (
		sum   float64
		count int
		p     vptree.Point
	)
	for _, p = range pts {
		_, dists := tree.Search(p, k1+1)
		if len(dists) <= k1 {
			continue
		}
		q := math.Log((dists[k1] * dists[k1]) / (dists[k2] * dists[k2]))
		if q == 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			continue
		}
		sum += 2 * logRatio / q
		count++
	}
	if count == 0 {
		return math.NaN()
	}

	return sum / float64(count)
}

// optimalK regresses log(2L) on log N for every candidate k and returns the
// k whose slope is closest to 1 − 1/dim. ok is false when dim is unusable
// or the subset is smaller than minSampleSize+1 rows.
func optimalK(ctx context.Context, data *matrix.Dense, rows []int, dim float64, seed int64, subset int) (int, bool) {
	hi := maxSampleSize
	if len(rows) < hi {
		hi = len(rows)
	}
	if math.IsNaN(dim) || dim == 0 || hi-minSampleSize+1 < 2 {
		return 0, false
	}
	target := 1 - 1/dim

	var (
		best     = 0
		bestDiff = math.Inf(1)
		k        int
	)
	for k = minCandidateK; k <= maxCandidateK; k++ {
		if ctx.Err() != nil {
			return 0, false
		}
		slope := edgeLengthSlope(data, rows, k, hi, streamRNG(seed, subset, k))
		if diff := math.Abs(target - slope); diff < bestDiff {
			best, bestDiff = k, diff
		}
	}

	return best, best != 0
}

// edgeLengthSlope samples N rows for N in [minSampleSize, hi], builds the
// symmetric k-NN graph of each sample and fits log(2L) against log N.
func edgeLengthSlope(data *matrix.Dense, rows []int, k, hi int, rng *rand.Rand) float64 {
	shuffled := append([]int(nil), rows...)
	xs := make([]float64, 0, hi-minSampleSize+1)
	ys := make([]float64, 0, hi-minSampleSize+1)

	var n, i, j int
	for n = minSampleSize; n <= hi; n++ {
		shuffleIntsInPlace(shuffled, rng)
		pts := vptree.SelectPoints(data, shuffled[:n])
		for i = range pts {
			pts[i].Index = i
		}
		tree := vptree.NewPointTree(pts, vptree.WithSeed(rng.Int63()))

		// Symmetric edge weights; a pair found from both ends counts once.
		w := make([]float64, n*n)
		for i = range pts {
			found, dists := tree.Search(pts[i], k+1)
			for j = range found {
				m := found[j].Index
				if m == i {
					continue
				}
				w[i*n+m] = dists[j]
				w[m*n+i] = dists[j]
			}
		}
		var total float64
		for i = 0; i < n; i++ {
			for j = i + 1; j < n; j++ {
				total += w[i*n+j]
			}
		}
		xs = append(xs, math.Log(float64(n)))
		ys = append(ys, math.Log(2*total))
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)

	return beta
}
