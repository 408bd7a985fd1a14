package subsetter

import (
	"fmt"
	"math"
	"sort"

	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/matrix"
)

// slicer carries the state of one recursive slicing run.
type slicer struct {
	data *matrix.Dense
	mode SlicingMode
	goal int

	// count is the number of groups produced so far.
	count int
}

// newEmbedding runs recursive first-component slicing.
//
// Steps per level (at most ⌈log2(goal)⌉ levels):
//  1. Split every current group in order; the non-negative side comes
//     first. Groups smaller than two rows, or splits leaving one side
//     empty, pass through unchanged.
//  2. Stop as soon as goal groups exist: the result is the groups split so
//     far followed by the still unprocessed groups of the level.
//  3. Otherwise order the new level by size, largest first (stable).
func newEmbedding(data *matrix.Dense, cfg Options) (*partition, error) {
	all := make([]int, data.Rows())
	var i int
	for i = range all {
		all[i] = i
	}
	current := [][]int{all}
	if cfg.Subsets <= 1 {
		return &partition{groups: current}, nil
	}

	s := &slicer{data: data, mode: cfg.Slicing, goal: cfg.Subsets, count: 1}
	depth := int(math.Ceil(math.Log2(float64(cfg.Subsets))))

	var (
		level, g int
		next     [][]int
	)
	for level = 0; level < depth; level++ {
		next = make([][]int, 0, 2*len(current))
		for g = range current {
			upper, lower, err := s.split(current[g])
			if err != nil {
				return nil, err
			}
			if lower == nil {
				next = append(next, current[g])
				continue
			}
			next = append(next, upper, lower)
			s.count++
			if s.count == s.goal {
				next = append(next, current[g+1:]...)
				cfg.Logger.Debug("slicing done", "subsets", len(next), "levels", level+1)
				return &partition{groups: next}, nil
			}
		}
		sort.SliceStable(next, func(a, b int) bool { return len(next[a]) > len(next[b]) })
		current = next
	}
	cfg.Logger.Warn("slicing stopped early", "requested", cfg.Subsets, "subsets", len(current))

	return &partition{groups: current}, nil
}

// split divides group by its first principal component score. lower is nil
// when the group cannot be split.
func (s *slicer) split(group []int) (upper, lower []int, err error) {
	if len(group) < 2 {
		return group, nil, nil
	}
	sub, err := s.data.SelectRows(group)
	if err != nil {
		return nil, nil, err
	}
	e, err := embedding.PCA(sub, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("subsetter: group of %d rows: %w", len(group), err)
	}
	scores, _ := e.Space.Col(0)

	var threshold float64
	if s.mode == SlicingFirstMedian {
		threshold = median(scores)
	}
	var i int
	for i = range group {
		if scores[i] >= threshold {
			upper = append(upper, group[i])
		} else {
			lower = append(lower, group[i])
		}
	}
	if len(upper) == 0 || len(lower) == 0 {
		return group, nil, nil
	}

	return upper, lower, nil
}

// median returns the middle value of v, averaging the two middle values
// for even lengths. v is not modified.
func median(v []float64) float64 {
	c := append([]float64(nil), v...)
	sort.Float64s(c)
	n := len(c)
	if n%2 == 1 {
		return c[n/2]
	}

	return 0.5 * (c[n/2-1] + c[n/2])
}
