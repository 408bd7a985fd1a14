// Package landmark selects the rows that serve as MDS anchors.
//
// Implementations:
//
//   - ImplementationList: a caller-supplied index list, used verbatim.
//   - ImplementationSubsets: geometric coverage. The rows are sliced into
//     about Count/10 subsets; in each subset a local MNF embedding is
//     computed, optionally the noisiest rows are dropped, and the rows at
//     the minimum and maximum of each leading component become landmarks.
//     Missing landmarks are padded with random unused rows.
//   - ImplementationGlobalRandomSkeleton: declared, returns ErrUnsupported.
//
// Indices refer to rows of the matrix passed to New.
package landmark

import (
	"errors"
	"fmt"

	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/property"
)

// Property keys understood by WithProperties.
const (
	KeyCount                   = "LANDMARK_COUNT"
	KeyNoiseModel              = "LANDMARK_SUBSETS_NOISE_MODEL"
	KeyNoiseExclusionPercent   = "LANDMARK_SUBSETS_PRESELECTION_NOISE_EXCLUSION_PERCENTAGE"
	KeyNoiseExclusionDimension = "LANDMARK_SUBSETS_PRESELECTION_NOISE_EXCLUSION_NOISE_DIMENSIONS"
)

// NoiseModelMNF is the only supported KeyNoiseModel value.
const NoiseModelMNF = 0

// Sentinel errors returned by New.
var (
	// ErrInvalidArgument indicates a missing or out-of-range option.
	ErrInvalidArgument = errors.New("landmark: invalid argument")

	// ErrUnknownImplementation indicates an unsupported Implementation value.
	ErrUnknownImplementation = errors.New("landmark: unknown implementation")

	// ErrUnsupported marks declared but unimplemented selectors and models.
	ErrUnsupported = errors.New("landmark: not supported")

	// ErrInsufficientVariation indicates a subset without two distinct
	// extrema along a covered component.
	ErrInsufficientVariation = errors.New("landmark: the subset has not enough major variation, try adjusting parameters")
)

// Implementation selects a landmark selector.
type Implementation int

const (
	// ImplementationList uses an explicit index list.
	ImplementationList Implementation = iota
	// ImplementationSubsets selects extremal rows per geometric subset.
	ImplementationSubsets
	// ImplementationGlobalRandomSkeleton is not implemented.
	ImplementationGlobalRandomSkeleton
)

// String implements fmt.Stringer.
func (i Implementation) String() string {
	switch i {
	case ImplementationList:
		return "list"
	case ImplementationSubsets:
		return "subsets"
	case ImplementationGlobalRandomSkeleton:
		return "global-random-skeleton"
	default:
		return fmt.Sprintf("Implementation(%d)", int(i))
	}
}

// ParseImplementation maps a configuration name to an Implementation.
func ParseImplementation(s string) (Implementation, error) {
	switch s {
	case "list":
		return ImplementationList, nil
	case "", "subsets":
		return ImplementationSubsets, nil
	case "global-random-skeleton", "global_randomskel":
		return ImplementationGlobalRandomSkeleton, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownImplementation, s)
	}
}

// Selector is the capability shared by every implementation.
type Selector interface {
	// Indices returns the ordered landmark rows.
	Indices() []int
	// Data returns the landmark rows of the input matrix.
	Data() (*matrix.Dense, error)
}

// Options configures New.
type Options struct {
	Count           int     // requested number of landmarks (subsets)
	List            []int   // explicit indices (list)
	NoiseModel      int     // noise model of the subset embedding; only MNF
	NoiseExclusion  float64 // fraction of noisiest rows dropped per subset, in [0, 1)
	NoiseDimensions int     // trailing components that define row noise
	Seed            int64   // padding RNG seed; 0 means 1
	Logger          *logging.Logger
}

// Option represents a functional option for New.
type Option func(*Options)

// WithCount sets the requested landmark count.
func WithCount(n int) Option {
	return func(o *Options) { o.Count = n }
}

// WithList sets the explicit landmark indices.
func WithList(idx []int) Option {
	return func(o *Options) { o.List = append([]int(nil), idx...) }
}

// WithNoiseExclusion drops the given fraction of each subset, ranked by the
// norm of the trailing dims components.
func WithNoiseExclusion(fraction float64, dims int) Option {
	return func(o *Options) {
		o.NoiseExclusion = fraction
		o.NoiseDimensions = dims
	}
}

// WithSeed fixes the padding draw.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithLogger injects a logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithProperties applies the LANDMARK_* keys present in p.
func WithProperties(p property.List) Option {
	return func(o *Options) {
		if v, ok := p.Lookup(KeyCount); ok {
			o.Count = int(v)
		}
		if v, ok := p.Lookup(KeyNoiseModel); ok {
			o.NoiseModel = int(v)
		}
		if v, ok := p.Lookup(KeyNoiseExclusionPercent); ok {
			o.NoiseExclusion = v
		}
		if v, ok := p.Lookup(KeyNoiseExclusionDimension); ok {
			o.NoiseDimensions = int(v)
		}
	}
}

// DefaultOptions returns no count, MNF, no exclusion over one noise
// dimension, seed 1 and a discarding logger.
func DefaultOptions() Options {
	return Options{
		NoiseModel:      NoiseModelMNF,
		NoiseDimensions: 1,
		Seed:            1,
		Logger:          logging.Discard(),
	}
}

// New runs the selector chosen by impl over the rows of data.
func New(impl Implementation, data *matrix.Dense, opts ...Option) (Selector, error) {
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	cfg.Logger = logging.OrDiscard(cfg.Logger).WithComponent("landmark")
	if data == nil {
		return nil, matrix.ErrNilMatrix
	}

	switch impl {
	case ImplementationList:
		return newList(data, cfg)
	case ImplementationSubsets:
		return newSubsets(data, cfg)
	case ImplementationGlobalRandomSkeleton:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, impl)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownImplementation, int(impl))
	}
}

// selection is the state shared by every Selector.
type selection struct {
	data    *matrix.Dense
	indices []int
}

// Indices returns a copy of the landmark rows.
func (s *selection) Indices() []int { return append([]int(nil), s.indices...) }

// Data returns the landmark rows as a new matrix.
func (s *selection) Data() (*matrix.Dense, error) { return s.data.SelectRows(s.indices) }

// List is the explicit-list selector.
type List struct {
	selection
}

func newList(data *matrix.Dense, cfg Options) (*List, error) {
	if cfg.List == nil {
		return nil, fmt.Errorf("%w: %s requires an index list", ErrInvalidArgument, ImplementationList)
	}
	n := data.Rows()
	var i int
	for _, i = range cfg.List {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: index %d with %d rows", ErrInvalidArgument, i, n)
		}
	}

	return &List{selection{data: data, indices: cfg.List}}, nil
}
