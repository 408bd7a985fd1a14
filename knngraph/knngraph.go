// Package knngraph builds connected k-nearest-neighbour graphs over the rows
// of a data matrix.
//
// Every builder runs the same two passes over a VP-tree of all rows:
//
//  1. Primary pass: each row queries a pool of its nearest other rows, links
//     the first k of them and defers the rest as candidate edges.
//  2. Augmentation: while the kNN edges leave more than one component, the
//     deferred edges are replayed in ascending weight (Kruskal order) and
//     every edge that merges two components is added.
//
// If the pool is exhausted before the graph is connected, New fails with
// ErrAugmentationFailed and the pool depth must be increased.
//
// Implementations:
//
//   - ImplementationFixedKMST: one k for every row.
//   - ImplementationAdaptiveK: rows are sliced into subsets, the intrinsic
//     dimensionality of each subset is estimated from neighbour-distance
//     ratios, and k is chosen per subset as the value whose empirical
//     edge-length growth best matches that dimensionality.
//
// Edge weights are Euclidean distances.
package knngraph

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/hsisomap/hsisomap/graph"
	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/property"
)

// Property keys understood by WithProperties.
const (
	KeyFixedK             = "KNNGRAPH_FIXED_K"
	KeyFixedKPoolDepth    = "KNNGRAPH_FIXED_K_WITH_MST_EDGE_POOL_DEPTH"
	KeyAdaptiveKSubsets   = "KNNGRAPH_ADAPTIVE_K_HIDENN_SUBSET_NUMBER"
	KeyAdaptiveKPoolDepth = "KNNGRAPH_ADAPTIVE_K_WITH_MST_EDGE_POOL_DEPTH"
	KeyGraphBackend       = "KNNGRAPH_GRAPH_BACKEND"
)

const (
	defaultK                 = 30
	defaultPoolExtra         = 100 // fixed-k pool depth is K plus this
	defaultAdaptivePoolDepth = 120
	defaultAdaptiveSubsets   = 10
)

// Sentinel errors returned by New.
var (
	// ErrInvalidArgument indicates an out-of-range option or empty input.
	ErrInvalidArgument = errors.New("knngraph: invalid argument")

	// ErrUnknownImplementation indicates an unsupported Implementation value.
	ErrUnknownImplementation = errors.New("knngraph: unknown implementation")

	// ErrAugmentationFailed indicates that the candidate pool could not
	// connect the graph.
	ErrAugmentationFailed = errors.New("knngraph: MST augmentation failed")
)

// Implementation selects a builder.
type Implementation int

const (
	// ImplementationFixedKMST links a fixed k per row, then augments.
	ImplementationFixedKMST Implementation = iota
	// ImplementationAdaptiveK picks k per subset, then augments.
	ImplementationAdaptiveK
)

// String implements fmt.Stringer.
func (i Implementation) String() string {
	switch i {
	case ImplementationFixedKMST:
		return "fixed-k-mst"
	case ImplementationAdaptiveK:
		return "adaptive-k"
	default:
		return fmt.Sprintf("Implementation(%d)", int(i))
	}
}

// ParseImplementation maps a configuration name to an Implementation.
func ParseImplementation(s string) (Implementation, error) {
	switch s {
	case "", "fixed-k-mst", "fixed_k_mst", "fixed":
		return ImplementationFixedKMST, nil
	case "adaptive-k", "adaptive_k", "adaptive", "hidenn":
		return ImplementationAdaptiveK, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownImplementation, s)
	}
}

// Builder is the capability shared by every implementation.
type Builder interface {
	// Graph returns the connected kNN graph.
	Graph() graph.UndirectedWeighted
	// Components is the number of connected components left by the
	// primary pass, before augmentation.
	Components() int
	// AugmentedEdges is the number of edges added by augmentation.
	AugmentedEdges() int
}

// Options configures New.
type Options struct {
	K                 int           // fixed neighbour count; fallback k for adaptive subsets
	PoolDepth         int           // fixed-k candidate pool; 0 means K+100
	AdaptivePoolDepth int           // adaptive-k candidate pool
	Subsets           int           // adaptive-k subset count
	Backend           graph.Backend // graph storage
	Workers           int           // parallel neighbour queries
	Seed              int64         // VP-tree pivots and adaptive sub-sampling; 0 means 1
	Logger            *logging.Logger
}

// Option represents a functional option for New.
type Option func(*Options)

// WithK sets the fixed neighbour count.
func WithK(k int) Option {
	return func(o *Options) { o.K = k }
}

// WithPoolDepth sets the fixed-k candidate pool depth.
func WithPoolDepth(d int) Option {
	return func(o *Options) { o.PoolDepth = d }
}

// WithAdaptivePoolDepth sets the adaptive-k candidate pool depth.
func WithAdaptivePoolDepth(d int) Option {
	return func(o *Options) { o.AdaptivePoolDepth = d }
}

// WithSubsets sets the adaptive-k subset count.
func WithSubsets(n int) Option {
	return func(o *Options) { o.Subsets = n }
}

// WithBackend selects the graph storage.
func WithBackend(b graph.Backend) Option {
	return func(o *Options) { o.Backend = b }
}

// WithWorkers sets the number of concurrent neighbour queries.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithSeed fixes every random choice of the build.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithLogger injects a logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithProperties applies the KNNGRAPH_* keys present in p. Absent keys
// leave the current values untouched; an explicit zero is applied as is.
func WithProperties(p property.List) Option {
	return func(o *Options) {
		if v, ok := p.Lookup(KeyFixedK); ok {
			o.K = int(v)
		}
		if v, ok := p.Lookup(KeyFixedKPoolDepth); ok {
			o.PoolDepth = int(v)
		}
		if v, ok := p.Lookup(KeyAdaptiveKPoolDepth); ok {
			o.AdaptivePoolDepth = int(v)
		}
		if v, ok := p.Lookup(KeyAdaptiveKSubsets); ok {
			o.Subsets = int(v)
		}
		if v, ok := p.Lookup(KeyGraphBackend); ok {
			o.Backend = graph.Backend(v)
		}
	}
}

// DefaultOptions returns the defaults:
//
//   - K: 30; PoolDepth: K+100.
//   - AdaptivePoolDepth: 120; Subsets: 10.
//   - Backend: adjacency list; Workers: runtime.GOMAXPROCS(0).
//   - Seed: 1; Logger: discard.
func DefaultOptions() Options {
	return Options{
		K:                 defaultK,
		AdaptivePoolDepth: defaultAdaptivePoolDepth,
		Subsets:           defaultAdaptiveSubsets,
		Backend:           graph.BackendAdjacencyList,
		Workers:           runtime.GOMAXPROCS(0),
		Seed:              1,
		Logger:            logging.Discard(),
	}
}

// New builds the graph selected by impl over the rows of data.
//
// Errors: ErrInvalidArgument, ErrUnknownImplementation,
// ErrAugmentationFailed, graph.ErrUnknownBackend, ctx.Err().
func New(ctx context.Context, impl Implementation, data *matrix.Dense, opts ...Option) (Builder, error) {
	// 1) Options.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.PoolDepth == 0 {
		cfg.PoolDepth = cfg.K + defaultPoolExtra
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: workers=%d", ErrInvalidArgument, cfg.Workers)
	}
	cfg.Logger = logging.OrDiscard(cfg.Logger).WithComponent("knngraph")

	// 2) Input.
	if data == nil {
		return nil, matrix.ErrNilMatrix
	}
	if data.Rows() == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidArgument)
	}

	// 3) Dispatch.
	switch impl {
	case ImplementationFixedKMST:
		if cfg.K < 1 {
			return nil, fmt.Errorf("%w: %s=%d", ErrInvalidArgument, KeyFixedK, cfg.K)
		}
		if cfg.PoolDepth < cfg.K {
			return nil, fmt.Errorf("%w: %s=%d below k=%d", ErrInvalidArgument, KeyFixedKPoolDepth, cfg.PoolDepth, cfg.K)
		}
		return newFixedK(ctx, data, cfg)
	case ImplementationAdaptiveK:
		if cfg.Subsets < 1 {
			return nil, fmt.Errorf("%w: %s=%d", ErrInvalidArgument, KeyAdaptiveKSubsets, cfg.Subsets)
		}
		if cfg.AdaptivePoolDepth < maxCandidateK {
			return nil, fmt.Errorf("%w: %s=%d below %d", ErrInvalidArgument, KeyAdaptiveKPoolDepth, cfg.AdaptivePoolDepth, maxCandidateK)
		}
		return newAdaptiveK(ctx, data, cfg)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownImplementation, int(impl))
	}
}

// result is the state shared by every Builder.
type result struct {
	g          graph.UndirectedWeighted
	components int
	augmented  int
}

func (r *result) Graph() graph.UndirectedWeighted { return r.g }
func (r *result) Components() int                 { return r.components }
func (r *result) AugmentedEdges() int             { return r.augmented }

// FixedK is the fixed-k builder.
type FixedK struct {
	result
	k int
}

// K returns the neighbour count used for every row.
func (f *FixedK) K() int { return f.k }

func newFixedK(ctx context.Context, data *matrix.Dense, cfg Options) (*FixedK, error) {
	k := cfg.K
	r, err := build(ctx, data, buildParams{
		kOf:     func(int) int { return k },
		pool:    cfg.PoolDepth,
		poolKey: KeyFixedKPoolDepth,
		backend: cfg.Backend,
		workers: cfg.Workers,
		seed:    cfg.Seed,
		logger:  cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &FixedK{result: *r, k: k}, nil
}
