// Package dijkstra defines core types and configuration options for the
// multi-source shortest-path engines.
//
// An Engine computes, for every source vertex (row) and every graph vertex
// (column), the shortest-path distance over an undirected graph with
// non-negative weights. Unreachable pairs hold matrix.Sentinel
// (math.MaxFloat64), never +Inf or NaN.
//
// Implementations:
//
//   - ImplementationParallel: array-oriented engine over the CSR export of a
//     *graph.AdjacencyList; one lazy-decrease-key heap Dijkstra per source,
//     fanned out over a bounded worker pool.
//   - ImplementationLibrary: gonum's path.DijkstraFrom over a *graph.Library.
//
// Both produce identical distance values; parallelism only affects speed.
//
// Options:
//
//	– Workers:     size of the worker pool (default runtime.GOMAXPROCS(0)).
//	– MaxDistance: distances beyond this cap are reported as Sentinel.
//	– Logger:      structured logger (default discard).
//
// Errors (sentinel):
//
//	– ErrNilGraph              if the graph is nil.
//	– ErrBackendMismatch       if the graph backend does not suit the implementation.
//	– ErrUnknownImplementation for an unsupported Implementation value.
//	– ErrSourceOutOfRange      if a source vertex is outside the graph.
//	– ErrNotRun                if DistanceMatrix is called before a successful Run.
//	– ErrBadWorkers            if Workers < 1.
//	– ErrBadMaxDistance        if MaxDistance < 0.
package dijkstra

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/hsisomap/hsisomap/graph"
	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/matrix"
)

// Sentinel errors returned by the Dijkstra engines.
var (
	// ErrNilGraph indicates that a nil graph was passed to New.
	ErrNilGraph = errors.New("dijkstra: graph is nil")

	// ErrBackendMismatch indicates that the graph backend cannot be consumed
	// by the requested implementation.
	ErrBackendMismatch = errors.New("dijkstra: graph backend does not match implementation")

	// ErrUnknownImplementation indicates an unsupported Implementation value.
	ErrUnknownImplementation = errors.New("dijkstra: unknown implementation")

	// ErrSourceOutOfRange indicates a source vertex outside [0, NumVertices()).
	ErrSourceOutOfRange = errors.New("dijkstra: source vertex out of range")

	// ErrNotRun indicates that results were requested before Run succeeded.
	ErrNotRun = errors.New("dijkstra: Run has not completed")

	// ErrBadWorkers indicates a non-positive worker count.
	ErrBadWorkers = errors.New("dijkstra: Workers must be positive")

	// ErrBadMaxDistance indicates that MaxDistance was set to a negative value.
	ErrBadMaxDistance = errors.New("dijkstra: MaxDistance must be non-negative")
)

// Implementation selects a shortest-path engine.
type Implementation int

const (
	// ImplementationParallel is the CSR worker-pool engine (requires *graph.AdjacencyList).
	ImplementationParallel Implementation = iota
	// ImplementationLibrary is the gonum engine (requires *graph.Library).
	ImplementationLibrary
)

// String implements fmt.Stringer.
func (i Implementation) String() string {
	switch i {
	case ImplementationParallel:
		return "parallel"
	case ImplementationLibrary:
		return "library"
	default:
		return fmt.Sprintf("Implementation(%d)", int(i))
	}
}

// ParseImplementation maps a configuration name to an Implementation.
func ParseImplementation(s string) (Implementation, error) {
	switch s {
	case "", "parallel", "cpu":
		return ImplementationParallel, nil
	case "library", "gonum":
		return ImplementationLibrary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownImplementation, s)
	}
}

// Engine is the capability shared by every implementation.
type Engine interface {
	// SetSourceVertices selects the rows of the distance matrix. The
	// default is every vertex in ascending order.
	SetSourceVertices(sources []int) error
	// Run solves all sources. It blocks until done or ctx is cancelled.
	Run(ctx context.Context) error
	// DistanceMatrix returns the (sources × vertices) result of the last Run.
	DistanceMatrix() (*matrix.Dense, error)
}

// Options configures an Engine.
type Options struct {
	Workers     int             // worker pool size
	MaxDistance float64         // distances above this cap are reported as Sentinel
	Logger      *logging.Logger // structured logger
}

// Option represents a functional option for New.
type Option func(*Options)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithMaxDistance caps exploration; vertices farther than max are reported
// as unreachable.
func WithMaxDistance(max float64) Option {
	return func(o *Options) { o.MaxDistance = max }
}

// WithLogger injects a logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// DefaultOptions returns the defaults:
//
//   - Workers:     runtime.GOMAXPROCS(0).
//   - MaxDistance: math.MaxFloat64 (no cap).
//   - Logger:      discard.
func DefaultOptions() Options {
	return Options{
		Workers:     runtime.GOMAXPROCS(0),
		MaxDistance: math.MaxFloat64,
		Logger:      logging.Discard(),
	}
}

// New creates the engine selected by impl over g.
//
// The parallel engine requires a *graph.AdjacencyList and the library
// engine a *graph.Library; any other pairing yields ErrBackendMismatch.
func New(impl Implementation, g graph.UndirectedWeighted, opts ...Option) (Engine, error) {
	// 1) Build and validate Options.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.Workers < 1 {
		return nil, ErrBadWorkers
	}
	if cfg.MaxDistance < 0 || math.IsNaN(cfg.MaxDistance) {
		return nil, ErrBadMaxDistance
	}
	cfg.Logger = logging.OrDiscard(cfg.Logger)

	// 2) Validate graph.
	if g == nil {
		return nil, ErrNilGraph
	}

	// 3) Dispatch on implementation and backend.
	switch impl {
	case ImplementationParallel:
		al, ok := g.(*graph.AdjacencyList)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs %s, got %T", ErrBackendMismatch, impl, graph.BackendAdjacencyList, g)
		}
		return &parallelEngine{base: newBase(al.NumVertices(), cfg), g: al}, nil
	case ImplementationLibrary:
		lib, ok := g.(*graph.Library)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs %s, got %T", ErrBackendMismatch, impl, graph.BackendLibrary, g)
		}
		return &libraryEngine{base: newBase(lib.NumVertices(), cfg), g: lib}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownImplementation, int(impl))
	}
}

// base carries the state shared by both engines.
type base struct {
	n       int
	cfg     Options
	sources []int
	result  *matrix.Dense
}

func newBase(n int, cfg Options) base {
	b := base{n: n, cfg: cfg, sources: make([]int, n)}
	var i int
	for i = range b.sources {
		b.sources[i] = i
	}

	return b
}

// SetSourceVertices validates and stores the source list; it invalidates
// any previous result.
func (b *base) SetSourceVertices(sources []int) error {
	var s int
	for _, s = range sources {
		if s < 0 || s >= b.n {
			return fmt.Errorf("%w: %d with %d vertices", ErrSourceOutOfRange, s, b.n)
		}
	}
	b.sources = append([]int(nil), sources...)
	b.result = nil

	return nil
}

// DistanceMatrix returns the result of the last successful Run.
func (b *base) DistanceMatrix() (*matrix.Dense, error) {
	if b.result == nil {
		return nil, ErrNotRun
	}

	return b.result, nil
}

// capDistance maps +Inf and over-cap distances to Sentinel.
func (b *base) capDistance(d float64) float64 {
	if math.IsInf(d, 1) || d > b.cfg.MaxDistance {
		return matrix.Sentinel
	}

	return d
}
