package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ojingabokkumbap/moviej-recommender/lib/profile"
)

const (
	// topNeighbors is how many similarity neighbors collaborative scoring
	// consults.
	topNeighbors = 10

	// collaborativeFloor discards weakly supported collaborative candidates.
	collaborativeFloor = 3.0

	// candidatePoolSize is the content strategy's discover pool.
	candidatePoolSize = 1000

	// contentThreshold is the minimum cosine similarity for a content hit.
	contentThreshold = 0.3

	// contentScale rescales cosine similarity onto the 0-5 rating scale.
	contentScale = 5

	// Hybrid blend weights. A movie seen by only one side keeps only its own
	// weighted share; there is no renormalization.
	collaborativeWeight = 0.6
	contentWeight       = 0.4

	// strongGenreWeight marks a genre preference strong enough to name in a
	// recommendation reason.
	strongGenreWeight = 0.5

	// overFetch leaves room for downstream dedup and filtering.
	overFetch = 2
)

var genreNames = map[int]string{
	28:    "Action",
	35:    "Comedy",
	18:    "Drama",
	27:    "Horror",
	10749: "Romance",
	878:   "Science Fiction",
	53:    "Thriller",
	16:    "Animation",
}

// collaborative scores movies watched by the user's top neighbors. Each
// candidate accumulates neighborRating*similarity per voting neighbor and the
// final score is the similarity-weighted average, so a movie seen by many
// neighbors is not boosted beyond the mean. Scores at or below 3.0 are
// discarded.
func (e *Engine) collaborative(prof *profile.UserProfile, count int) []Score {
	neighbors := e.neighbors.Neighbors(prof.UserID)
	if len(neighbors) > topNeighbors {
		neighbors = neighbors[:topNeighbors]
	}

	watched := prof.WatchedSet()

	type tally struct {
		sum     float64
		voters  int
		reasons []Reason
	}
	tallies := make(map[int]*tally)

	for _, neighbor := range neighbors {
		neighborProfile, ok := e.store.Get(neighbor.UserID)
		if !ok {
			continue
		}

		for _, movie := range neighborProfile.WatchHistory {
			if watched[movie.MovieID] {
				continue
			}

			weighted := movie.EffectiveRating() * neighbor.Similarity
			if t, ok := tallies[movie.MovieID]; ok {
				t.sum += weighted
				t.voters++
			} else {
				tallies[movie.MovieID] = &tally{
					sum:    weighted,
					voters: 1,
					reasons: []Reason{{
						Type:        "similar_users",
						Description: "liked by users with similar taste",
						Confidence:  neighbor.Similarity,
					}},
				}
			}
		}
	}

	scores := make([]Score, 0, len(tallies))
	for movieID, t := range tallies {
		avg := t.sum / float64(t.voters)
		if avg <= collaborativeFloor {
			continue
		}
		scores = append(scores, Score{
			MovieID:   movieID,
			Score:     avg,
			Reasons:   t.reasons,
			Algorithm: AlgorithmCollaborative,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if len(scores) > count*overFetch {
		scores = scores[:count*overFetch]
	}
	return scores
}

// contentBased scores unwatched catalog candidates by cosine similarity
// between the user's genre-weight vector and each movie's genre-indicator
// vector. Candidates above the 0.3 threshold score similarity*5.
func (e *Engine) contentBased(ctx context.Context, prof *profile.UserProfile, count int) ([]Score, error) {
	candidates, err := e.provider.GetCandidateMovies(ctx, candidatePoolSize)
	if err != nil {
		return nil, &ProviderError{Op: "candidate pool", Err: err}
	}

	watched := prof.WatchedSet()
	preference := prof.Preferences.Genres

	scores := make([]Score, 0, count*overFetch)
	for _, movie := range candidates {
		if watched[movie.ID] {
			continue
		}

		indicator := make(map[int]float64, len(movie.GenreIDs))
		for _, genreID := range movie.GenreIDs {
			indicator[genreID] = 1
		}

		sim := cosineSimilarity(preference, indicator)
		if sim <= contentThreshold {
			continue
		}

		var reasons []Reason
		if matches := strongGenreMatches(preference, movie.GenreIDs); len(matches) > 0 {
			reasons = append(reasons, Reason{
				Type:        "genre",
				Description: fmt.Sprintf("matches your favorite genres: %s", strings.Join(matches, ", ")),
				Confidence:  0.8,
			})
		}

		scores = append(scores, Score{
			MovieID:   movie.ID,
			Score:     sim * contentScale,
			Reasons:   reasons,
			Algorithm: AlgorithmContent,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if len(scores) > count*overFetch {
		scores = scores[:count*overFetch]
	}
	return scores, nil
}

// hybrid blends the two strategies at fixed 0.6/0.4 weights. When a movie
// appears in both, the weighted scores add and the reasons concatenate.
func (e *Engine) hybrid(ctx context.Context, prof *profile.UserProfile, count int) ([]Score, error) {
	collaborative := e.collaborative(prof, count)
	content, err := e.contentBased(ctx, prof, count)
	if err != nil {
		return nil, err
	}

	merged := make(map[int]int, len(collaborative)) // movie ID -> index into out
	out := make([]Score, 0, len(collaborative)+len(content))

	for _, s := range collaborative {
		merged[s.MovieID] = len(out)
		out = append(out, Score{
			MovieID:   s.MovieID,
			Score:     s.Score * collaborativeWeight,
			Reasons:   s.Reasons,
			Algorithm: AlgorithmHybrid,
		})
	}

	for _, s := range content {
		if i, ok := merged[s.MovieID]; ok {
			out[i].Score += s.Score * contentWeight
			out[i].Reasons = append(out[i].Reasons, s.Reasons...)
			continue
		}
		merged[s.MovieID] = len(out)
		out = append(out, Score{
			MovieID:   s.MovieID,
			Score:     s.Score * contentWeight,
			Reasons:   s.Reasons,
			Algorithm: AlgorithmHybrid,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > count*overFetch {
		out = out[:count*overFetch]
	}
	return out, nil
}

// cosineSimilarity computes dot(a,b)/(||a||*||b||) over the union of keys,
// defined as 0 when either vector has zero norm.
func cosineSimilarity(a, b map[int]float64) float64 {
	var dot, normA, normB float64
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	for k, v := range a {
		dot += v * b[k]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// strongGenreMatches names the candidate's genres the user has a strong
// accumulated preference for.
func strongGenreMatches(preference map[int]float64, genreIDs []int) []string {
	var matches []string
	for _, id := range genreIDs {
		if preference[id] > strongGenreWeight {
			name, ok := genreNames[id]
			if !ok {
				name = fmt.Sprintf("genre %d", id)
			}
			matches = append(matches, name)
		}
	}
	return matches
}
