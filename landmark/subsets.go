package landmark

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/subsetter"
)

// Coverage constants. Data with more than lowBandLimit bands is assumed to
// have about five major local dimensions; narrower data is a toy case with
// two.
const (
	lowBandLimit      = 5
	divider           = 10.0
	lowBandDivider    = 4.0
	coveredDims       = 5
	lowBandCoveredDim = 2
)

// Subsets is the geometric-coverage selector.
type Subsets struct {
	selection
	subsets [][]int
	padded  int
}

// SubsetIndices returns the row groups landmarks were drawn from.
func (s *Subsets) SubsetIndices() [][]int {
	out := make([][]int, len(s.subsets))
	var i int
	for i = range s.subsets {
		out[i] = append([]int(nil), s.subsets[i]...)
	}

	return out
}

// Padded returns how many landmarks were drawn at random.
func (s *Subsets) Padded() int { return s.padded }

// newSubsets selects landmarks subset by subset.
//
// Steps:
//  1. Slice the rows into ⌊Count/divider⌋ subsets (at least one).
//  2. Per subset: MNF with nearest-neighbour noise, optional noise
//     exclusion, then the max and min rows of each covered component.
//  3. Pad with shuffled unused rows until Count landmarks exist, or drop
//     the trailing picks when a single subset already covers more.
func newSubsets(data *matrix.Dense, cfg Options) (*Subsets, error) {
	// 1) Validate.
	n, bands := data.Dims()
	if cfg.Count < 1 || cfg.Count > n {
		return nil, fmt.Errorf("%w: %s=%d with %d rows", ErrInvalidArgument, KeyCount, cfg.Count, n)
	}
	if cfg.NoiseModel != NoiseModelMNF {
		return nil, fmt.Errorf("%w: %s=%d", ErrUnsupported, KeyNoiseModel, cfg.NoiseModel)
	}
	if cfg.NoiseExclusion < 0 || cfg.NoiseExclusion >= 1 {
		return nil, fmt.Errorf("%w: %s=%g", ErrInvalidArgument, KeyNoiseExclusionPercent, cfg.NoiseExclusion)
	}
	if cfg.NoiseExclusion > 0 && (cfg.NoiseDimensions < 1 || cfg.NoiseDimensions > bands) {
		return nil, fmt.Errorf("%w: %s=%d with %d bands", ErrInvalidArgument, KeyNoiseExclusionDimension, cfg.NoiseDimensions, bands)
	}

	div, covered := divider, coveredDims
	if bands <= lowBandLimit {
		div, covered = lowBandDivider, lowBandCoveredDim
	}
	if covered > bands {
		covered = bands
	}
	count := int(float64(cfg.Count) / div)
	if count < 1 {
		count = 1
	}

	// 2) Subsets.
	ss, err := subsetter.New(subsetter.KindEmbedding, data,
		subsetter.WithSubsets(count),
		subsetter.WithSlicingMode(subsetter.SlicingFirstMean),
		subsetter.WithLogger(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("landmark: subsetting: %w", err)
	}
	s := &Subsets{selection: selection{data: data}, subsets: ss.Subsets()}

	used := roaring.New()
	var si int
	for si = range s.subsets {
		picked, err := s.cover(s.subsets[si], covered, cfg, used)
		if err != nil {
			return nil, fmt.Errorf("landmark: subset %d/%d: %w", si, len(s.subsets), err)
		}
		s.indices = append(s.indices, picked...)
	}
	cfg.Logger.Info("landmarks selected from subsets", "landmarks", len(s.indices), "subsets", len(s.subsets))

	// 3) Trim or pad.
	if len(s.indices) > cfg.Count {
		cfg.Logger.Info("trimmed landmarks to count", "picked", len(s.indices), "count", cfg.Count)
		s.indices = s.indices[:cfg.Count]
	}
	if need := cfg.Count - len(s.indices); need > 0 {
		free := roaring.New()
		free.AddRange(0, uint64(n))
		free.AndNot(used)
		pool := free.ToArray()
		rng := rand.New(rand.NewSource(cfg.Seed))
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		var i int
		for i = 0; i < need; i++ {
			s.indices = append(s.indices, int(pool[i]))
		}
		s.padded = need
		cfg.Logger.Info("padded with random landmarks", "padded", need)
	}

	return s, nil
}

// cover picks the extremal rows of one subset. used collects every picked
// row across subsets.
func (s *Subsets) cover(rows []int, covered int, cfg Options, used *roaring.Bitmap) ([]int, error) {
	sub, err := s.data.SelectRows(rows)
	if err != nil {
		return nil, err
	}
	noise, err := embedding.NearestNeighborNoiseEstimation(sub)
	if err != nil {
		return nil, variationError(err)
	}
	e, err := embedding.MNF(sub, noise, 0)
	if err != nil {
		return nil, variationError(err)
	}

	// Preselection: positions into rows, quietest first when excluding.
	pos := make([]int, len(rows))
	var i int
	for i = range pos {
		pos[i] = i
	}
	if cfg.NoiseExclusion > 0 {
		bands := e.Space.Cols()
		norms := make([]float64, len(rows))
		for i = range norms {
			norms[i] = floats.Norm(e.Space.RawRow(i)[bands-cfg.NoiseDimensions:], 2)
		}
		sort.SliceStable(pos, func(a, b int) bool { return norms[pos[a]] < norms[pos[b]] })
		pos = pos[:len(pos)-int(cfg.NoiseExclusion*float64(len(rows)))]
		if len(pos) < 2 {
			return nil, fmt.Errorf("%w: %d rows left after noise exclusion", ErrInsufficientVariation, len(pos))
		}
	}

	var (
		picked = make([]int, 0, 2*covered)
		col    = make([]float64, len(pos))
		c      int
	)
	mark := func(r int) {
		picked = append(picked, r)
		used.Add(uint32(r))
	}
	for c = 0; c < covered; c++ {
		for i = range pos {
			col[i] = e.Space.At(pos[i], c)
		}
		maxRow := rows[pos[floats.MaxIdx(col)]]
		minRow := rows[pos[floats.MinIdx(col)]]
		if maxRow == minRow {
			return nil, fmt.Errorf("%w: component %d", ErrInsufficientVariation, c)
		}
		if !used.Contains(uint32(maxRow)) && !used.Contains(uint32(minRow)) {
			mark(maxRow)
			mark(minRow)
			continue
		}

		// Collision: walk the sorted component for the nearest unused extrema.
		order := make([]int, len(pos))
		for i = range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return col[order[a]] < col[order[b]] })
		lo := 0
		for lo < len(order) && used.Contains(uint32(rows[pos[order[lo]]])) {
			lo++
		}
		if lo == len(order) {
			return nil, fmt.Errorf("%w: component %d", ErrInsufficientVariation, c)
		}
		mark(rows[pos[order[lo]]])
		hi := len(order) - 1
		for hi >= 0 && used.Contains(uint32(rows[pos[order[hi]]])) {
			hi--
		}
		if hi < 0 {
			return nil, fmt.Errorf("%w: component %d", ErrInsufficientVariation, c)
		}
		mark(rows[pos[order[hi]]])
	}

	return picked, nil
}

// variationError reports a subset too small to embed as
// ErrInsufficientVariation, keeping the embedding error in the chain.
func variationError(err error) error {
	if errors.Is(err, embedding.ErrTooFewSamples) {
		return fmt.Errorf("%w: %w", ErrInsufficientVariation, err)
	}

	return err
}
