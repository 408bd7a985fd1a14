package subsetter

import (
	"math/rand"

	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/vptree"
)

// newRandomSkeleton grows subsets around random centres until every row is
// assigned. Each subset holds the centre followed by its nearest remaining
// rows in ascending distance, limit rows in total; the last subset may be
// smaller.
func newRandomSkeleton(data *matrix.Dense, cfg Options) *partition {
	n := data.Rows()
	limit := n / cfg.Subsets
	if limit < 1 {
		limit = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	remaining := make([]int, n)
	var i int
	for i = range remaining {
		remaining[i] = i
	}

	var (
		groups  [][]int
		taken   = make([]bool, n)
		p       vptree.Point
		members []int
	)
	for len(remaining) > 0 {
		pts := vptree.SelectPoints(data, remaining)
		tree := vptree.NewPointTree(pts, vptree.WithSeed(rng.Int63()))
		centre := pts[rng.Intn(len(pts))]

		members = append(make([]int, 0, limit), centre.Index)
		taken[centre.Index] = true
		found, _ := tree.Search(centre, limit)
		for _, p = range found {
			if len(members) == limit {
				break
			}
			if !taken[p.Index] {
				members = append(members, p.Index)
				taken[p.Index] = true
			}
		}
		groups = append(groups, members)

		kept := remaining[:0]
		for _, i = range remaining {
			if !taken[i] {
				kept = append(kept, i)
			}
		}
		remaining = kept
	}
	cfg.Logger.Debug("random skeleton done", "subsets", len(groups), "limit", limit)

	return &partition{groups: groups}
}
