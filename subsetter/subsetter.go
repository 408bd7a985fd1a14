// Package subsetter partitions the rows of a data matrix into geometric
// subsets.
//
// Two strategies are available:
//
//   - KindEmbedding: recursive binary slicing. Every group is projected on
//     its own first principal component and split by the sign of the score
//     (SlicingFirstMean) or by the score median (SlicingFirstMedian). Groups
//     are processed largest first, level by level, until the requested
//     number of subsets exists. The result is fully deterministic.
//   - KindRandomSkeleton: repeatedly draws a random centre among the
//     remaining rows and removes it together with its ⌊n/subsets⌋−1 nearest
//     remaining rows. Draws come from an injected seed.
//
// Subsets hold row indices of the input matrix; every row appears in
// exactly one subset.
package subsetter

import (
	"errors"
	"fmt"

	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/property"
)

// Property keys understood by WithProperties.
const (
	KeySubsets          = "SUBSETTER_SUBSETS"
	KeyDefaultEmbedding = "SUBSETTER_DEFAULT_EMBEDDING"
	KeyEmbeddingSlicing = "SUBSETTER_DEFAULT_EMBEDDING_SLICING_MODE"
)

const (
	defaultSeed int64 = 1

	// embeddingPCAProperty is the KeyDefaultEmbedding value selecting PCA.
	embeddingPCAProperty = 0
)

// Sentinel errors returned by New.
var (
	// ErrInvalidArgument indicates an out-of-range option or empty input.
	ErrInvalidArgument = errors.New("subsetter: invalid argument")

	// ErrUnknownKind indicates an unsupported Kind value.
	ErrUnknownKind = errors.New("subsetter: unknown kind")

	// ErrUnsupported indicates a projection other than PCA.
	ErrUnsupported = errors.New("subsetter: not supported")
)

// Kind selects a subsetting strategy.
type Kind int

const (
	// KindRandomSkeleton grows subsets around random centres.
	KindRandomSkeleton Kind = iota
	// KindEmbedding slices recursively along the first principal component.
	KindEmbedding
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindRandomSkeleton:
		return "random-skeleton"
	case KindEmbedding:
		return "embedding"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SlicingMode selects the split point of KindEmbedding.
type SlicingMode int

const (
	// SlicingFirstMedian splits at the median first-component score.
	SlicingFirstMedian SlicingMode = iota
	// SlicingFirstMean splits at zero, the mean of the centred scores.
	SlicingFirstMean
)

// Subsetter exposes the computed partition.
type Subsetter interface {
	// Subsets returns the row-index groups. The slice is owned by the caller.
	Subsets() [][]int
}

// Options configures New.
type Options struct {
	Subsets    int             // requested number of subsets, ≥ 1
	Slicing    SlicingMode     // split rule for KindEmbedding
	Projection int             // 1-D projection for KindEmbedding; only 0 (PCA)
	Seed       int64           // RNG seed for KindRandomSkeleton; 0 means 1
	Logger     *logging.Logger // structured logger
}

// Option represents a functional option for New.
type Option func(*Options)

// WithSubsets sets the requested number of subsets.
func WithSubsets(n int) Option {
	return func(o *Options) { o.Subsets = n }
}

// WithSlicingMode sets the split rule of the embedding strategy.
func WithSlicingMode(m SlicingMode) Option {
	return func(o *Options) { o.Slicing = m }
}

// WithSeed fixes the random-skeleton centre draws.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithLogger injects a logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithProperties applies the SUBSETTER_* keys present in p. Absent keys
// leave the current values untouched.
func WithProperties(p property.List) Option {
	return func(o *Options) {
		if v, ok := p.Lookup(KeySubsets); ok {
			o.Subsets = int(v)
		}
		if v, ok := p.Lookup(KeyEmbeddingSlicing); ok {
			o.Slicing = SlicingMode(v)
		}
		if v, ok := p.Lookup(KeyDefaultEmbedding); ok {
			o.Projection = int(v)
		}
	}
}

// DefaultOptions returns one subset, median slicing, PCA projection, seed 1
// and a discarding logger.
func DefaultOptions() Options {
	return Options{
		Subsets:    1,
		Slicing:    SlicingFirstMedian,
		Projection: embeddingPCAProperty,
		Seed:       defaultSeed,
		Logger:     logging.Discard(),
	}
}

// New partitions the rows of data with the selected strategy.
func New(kind Kind, data *matrix.Dense, opts ...Option) (Subsetter, error) {
	// 1) Options.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.Subsets < 1 {
		return nil, fmt.Errorf("%w: %s=%d", ErrInvalidArgument, KeySubsets, cfg.Subsets)
	}
	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}
	cfg.Logger = logging.OrDiscard(cfg.Logger).WithComponent("subsetter")

	// 2) Input.
	if data == nil {
		return nil, matrix.ErrNilMatrix
	}
	if data.Rows() == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidArgument)
	}

	// 3) Dispatch.
	switch kind {
	case KindEmbedding:
		if cfg.Projection != embeddingPCAProperty {
			return nil, fmt.Errorf("%w: projection %d", ErrUnsupported, cfg.Projection)
		}
		if cfg.Slicing != SlicingFirstMedian && cfg.Slicing != SlicingFirstMean {
			return nil, fmt.Errorf("%w: slicing mode %d", ErrInvalidArgument, int(cfg.Slicing))
		}
		return newEmbedding(data, cfg)
	case KindRandomSkeleton:
		return newRandomSkeleton(data, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// partition is the Subsetter shared by both strategies.
type partition struct {
	groups [][]int
}

// Subsets returns a deep copy of the groups.
func (p *partition) Subsets() [][]int {
	out := make([][]int, len(p.groups))
	var i int
	for i = range p.groups {
		out[i] = append([]int(nil), p.groups[i]...)
	}

	return out
}
