// Package similarity maintains each user's ranked list of taste-similar
// peers, computed as Pearson correlation over commonly watched movies.
package similarity

import (
	"math"
	"sort"
	"sync"

	"github.com/ojingabokkumbap/moviej-recommender/lib/profile"
)

const (
	// minCommonMovies is the minimum overlap before a pair is comparable at
	// all; below it similarity is defined as 0.
	minCommonMovies = 3

	// minSimilarity is the retention floor for the neighbor list.
	minSimilarity = 0.1

	// maxNeighbors caps each user's neighbor list.
	maxNeighbors = 50
)

// Neighbor is one entry of a user's ranked neighbor list.
type Neighbor struct {
	UserID       string  `json:"user_id"`
	Similarity   float64 `json:"similarity"`
	CommonMovies int     `json:"common_movies"`
}

// Calculator holds the computed neighbor lists. Recompute rebuilds one user's
// list in full; there is no incremental update, which is fine at prototype
// scale and a known scaling concern beyond it.
type Calculator struct {
	mu        sync.RWMutex
	neighbors map[string][]Neighbor
}

func NewCalculator() *Calculator {
	return &Calculator{neighbors: make(map[string][]Neighbor)}
}

// Recompute rebuilds the target user's neighbor list against every other
// profile. Pairs need at least three common movies and a similarity above 0.1
// to be retained; the list is sorted by descending similarity and capped at
// 50 entries.
func (c *Calculator) Recompute(target *profile.UserProfile, others []*profile.UserProfile) {
	ranked := make([]Neighbor, 0, len(others))

	for _, other := range others {
		if other.UserID == target.UserID {
			continue
		}

		common := commonMovies(target, other)
		if len(common) < minCommonMovies {
			continue
		}

		sim := pearson(target, other, common)
		if sim > minSimilarity {
			ranked = append(ranked, Neighbor{
				UserID:       other.UserID,
				Similarity:   sim,
				CommonMovies: len(common),
			})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > maxNeighbors {
		ranked = ranked[:maxNeighbors]
	}

	c.mu.Lock()
	c.neighbors[target.UserID] = ranked
	c.mu.Unlock()
}

// Neighbors returns a copy of the user's ranked neighbor list.
func (c *Calculator) Neighbors(userID string) []Neighbor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Neighbor(nil), c.neighbors[userID]...)
}

// Len returns the number of users with a computed neighbor list.
func (c *Calculator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.neighbors)
}

// Similarity computes the pairwise similarity for two profiles: Pearson
// correlation over the effective ratings of their common movies, with
// negative correlation clamped to 0. Fewer than three common movies, or a
// zero-variance rating vector, yields exactly 0.
func Similarity(a, b *profile.UserProfile) float64 {
	common := commonMovies(a, b)
	if len(common) < minCommonMovies {
		return 0
	}
	return pearson(a, b, common)
}

func pearson(a, b *profile.UserProfile, common []int) float64 {
	n := float64(len(common))
	var sumX, sumY, sumXSq, sumYSq, sumXY float64

	for _, movieID := range common {
		x, _ := a.RatingFor(movieID)
		y, _ := b.RatingFor(movieID)

		sumX += x
		sumY += y
		sumXSq += x * x
		sumYSq += y * y
		sumXY += x * y
	}

	num := sumXY - sumX*sumY/n
	den := math.Sqrt((sumXSq - sumX*sumX/n) * (sumYSq - sumY*sumY/n))
	if den == 0 {
		return 0
	}

	// Only non-negative affinity is modeled.
	return math.Max(0, num/den)
}

func commonMovies(a, b *profile.UserProfile) []int {
	seen := b.WatchedSet()
	var common []int
	counted := make(map[int]bool)
	for _, m := range a.WatchHistory {
		if seen[m.MovieID] && !counted[m.MovieID] {
			counted[m.MovieID] = true
			common = append(common, m.MovieID)
		}
	}
	return common
}
