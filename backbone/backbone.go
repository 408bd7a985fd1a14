// Package backbone holds the subsampled "backbone" of an image and maps
// values computed on it back to every row of the full data.
//
// A Backbone is built from the full data matrix and the unique row indices
// of the backbone pixels. PrepareNNCache records, for every non-backbone
// row, its nearest backbone rows (searched in a VP-tree over the whole
// image with escalating result counts). Reconstruct copies backbone values
// verbatim and rebuilds every other row as an affine combination of its
// cached backbone neighbours, with locally linear weights computed in the
// original data space.
//
// NN cache layout: one row per non-backbone pixel in ascending row order;
// column 0 is the pixel's row index, columns 1..k its backbone neighbours
// (full-data row indices), nearest first.
package backbone

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/property"
)

// Property keys understood by WithProperties and ReconstructionFromProperties.
const (
	KeyStrategy       = "BACKBONE_RECONSTRUCTION_NEIGHBORHOOD_STRATEGY"
	KeyFixedNumber    = "BACKBONE_RECONSTRUCTION_NEIGHBORHOOD_FIXED_NUMBER"
	KeyAdaptiveLower  = "BACKBONE_RECONSTRUCTION_NEIGHBORHOOD_ADAPTIVE_NUMBER_LOWER_LIMIT"
	KeyAdaptiveUpper  = "BACKBONE_RECONSTRUCTION_NEIGHBORHOOD_ADAPTIVE_NUMBER_UPPER_LIMIT"
	KeyPrimaryRange   = "BACKBONE_NNCACHE_PRIMARY_SEARCH_RANGE"
	KeySecondaryRange = "BACKBONE_NNCACHE_SECONDARY_SEARCH_RANGE"
)

// PseudoInverseCutoff discards singular values of the local Gram matrix at
// or below this value.
const PseudoInverseCutoff = 1e-10

// Search range multipliers of the neighbourhood size.
const (
	primaryFactor   = 10
	secondaryFactor = 20
)

// Sentinel errors.
var (
	// ErrInvalidArgument indicates a bad index, size or option.
	ErrInvalidArgument = errors.New("backbone: invalid argument")

	// ErrDuplicateIndex indicates a repeated backbone row.
	ErrDuplicateIndex = errors.New("backbone: no repeated sampling allowed")

	// ErrDimensionMismatch indicates an input or cache of the wrong shape.
	ErrDimensionMismatch = errors.New("backbone: dimension mismatch")

	// ErrUnsupported marks declared but unimplemented strategies.
	ErrUnsupported = errors.New("backbone: not supported")
)

// Strategy selects how reconstruction neighbourhoods are sized.
type Strategy int

const (
	// StrategyFixed uses the same neighbourhood size for every row.
	StrategyFixed Strategy = iota
	// StrategyAdaptive is declared but not implemented.
	StrategyAdaptive
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategyFixed:
		return "fixed"
	case StrategyAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "fixed":
		return StrategyFixed, nil
	case "adaptive":
		return StrategyAdaptive, nil
	default:
		return 0, fmt.Errorf("%w: strategy %q", ErrInvalidArgument, s)
	}
}

// Reconstruction configures Reconstruct.
type Reconstruction struct {
	Strategy  Strategy
	Neighbors int // fixed neighbourhood size; 0 means the cache width
}

// ReconstructionFromProperties reads KeyStrategy and KeyFixedNumber.
func ReconstructionFromProperties(p property.List) Reconstruction {
	return Reconstruction{
		Strategy:  Strategy(p.Int(KeyStrategy, int(StrategyFixed))),
		Neighbors: p.Int(KeyFixedNumber, 0),
	}
}

// Options configures a Backbone.
type Options struct {
	PrimaryRange   int // first-tier result count; 0 means min(10·k, rows)
	SecondaryRange int // second-tier result count; 0 means min(20·k, rows)
	Workers        int // parallel cache and reconstruction rows
	Seed           int64
	Logger         *logging.Logger
}

// Option represents a functional option for New.
type Option func(*Options)

// WithSearchRanges overrides the first two NN cache tiers.
func WithSearchRanges(primary, secondary int) Option {
	return func(o *Options) {
		o.PrimaryRange = primary
		o.SecondaryRange = secondary
	}
}

// WithWorkers sets the number of rows processed concurrently.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithSeed fixes the VP-tree pivot seed.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithLogger injects a logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithProperties applies the BACKBONE_NNCACHE_* keys present in p.
func WithProperties(p property.List) Option {
	return func(o *Options) {
		if v, ok := p.Lookup(KeyPrimaryRange); ok {
			o.PrimaryRange = int(v)
		}
		if v, ok := p.Lookup(KeySecondaryRange); ok {
			o.SecondaryRange = int(v)
		}
	}
}

// DefaultOptions returns derived search ranges, GOMAXPROCS workers, seed 1
// and a discarding logger.
func DefaultOptions() Options {
	return Options{
		Workers: runtime.GOMAXPROCS(0),
		Seed:    1,
		Logger:  logging.Discard(),
	}
}

// Backbone is a subsample of the rows of a data matrix.
type Backbone struct {
	data    *matrix.Dense
	indices []int
	members *roaring.Bitmap
	local   map[int]int // full row → backbone position
	sampled *matrix.Dense
	cache   *matrix.Dense
	cfg     Options
}

// New builds a backbone over the listed rows of data. A nil indices slice
// selects every row.
//
// Errors: ErrInvalidArgument (bad index or option), ErrDuplicateIndex.
func New(data *matrix.Dense, indices []int, opts ...Option) (*Backbone, error) {
	// 1) Options.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	cfg.Logger = logging.OrDiscard(cfg.Logger).WithComponent("backbone")
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: workers=%d", ErrInvalidArgument, cfg.Workers)
	}
	if cfg.PrimaryRange < 0 || cfg.SecondaryRange < 0 {
		return nil, fmt.Errorf("%w: search ranges %d/%d", ErrInvalidArgument, cfg.PrimaryRange, cfg.SecondaryRange)
	}
	if data == nil {
		return nil, matrix.ErrNilMatrix
	}

	// 2) Indices.
	n := data.Rows()
	if indices == nil {
		indices = make([]int, n)
		var i int
		for i = range indices {
			indices[i] = i
		}
	} else {
		indices = append([]int(nil), indices...)
	}
	b := &Backbone{
		data:    data,
		indices: indices,
		members: roaring.New(),
		local:   make(map[int]int, len(indices)),
		cfg:     cfg,
	}
	var i, r int
	for i, r = range indices {
		if r < 0 || r >= n {
			return nil, fmt.Errorf("%w: index %d with %d rows", ErrInvalidArgument, r, n)
		}
		if !b.members.CheckedAdd(uint32(r)) {
			return nil, fmt.Errorf("%w: row %d", ErrDuplicateIndex, r)
		}
		b.local[r] = i
	}

	// 3) Sampled rows.
	var err error
	if b.sampled, err = data.SelectRows(indices); err != nil {
		return nil, err
	}

	return b, nil
}

// Indices returns a copy of the backbone rows.
func (b *Backbone) Indices() []int { return append([]int(nil), b.indices...) }

// SampledData returns the backbone rows of the data, in Indices order.
func (b *Backbone) SampledData() *matrix.Dense { return b.sampled }

// Contains reports whether row belongs to the backbone.
func (b *Backbone) Contains(row int) bool {
	return row >= 0 && b.members.Contains(uint32(row))
}

// NNCache returns the current cache, or nil before PrepareNNCache or
// SetNNCache.
func (b *Backbone) NNCache() *matrix.Dense { return b.cache }

// outsiders returns the non-backbone rows in ascending order.
func (b *Backbone) outsiders() []int {
	all := roaring.New()
	all.AddRange(0, uint64(b.data.Rows()))
	all.AndNot(b.members)
	out := make([]int, 0, all.GetCardinality())
	it := all.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}

	return out
}
