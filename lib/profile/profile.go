// Package profile holds per-user taste profiles: accumulated preference
// weights plus an append-only watch history. Profiles are created lazily on a
// user's first watch event.
package profile

import (
	"time"

	"github.com/ojingabokkumbap/moviej-recommender/lib/tmdb"
)

const (
	// defaultWeight is applied when a watch event carries no explicit rating.
	defaultWeight = 0.7

	actorWeightFactor    = 0.5
	directorWeightFactor = 0.8
	yearWeightFactor     = 0.3

	// maxTrackedCast caps how many top-billed cast members feed preferences.
	maxTrackedCast = 5

	defaultRuntimeMin      = 60
	defaultRuntimeMax      = 180
	defaultRatingThreshold = 6.0
)

// RuntimeRange is the preferred runtime window in minutes.
type RuntimeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Preferences are the accumulated taste weights. Weights only grow; there is
// no decay or reset short of recreating the profile.
type Preferences struct {
	Genres          map[int]float64 `json:"genres"`
	Actors          map[int]float64 `json:"actors"`
	Directors       map[int]float64 `json:"directors"`
	ReleaseYears    map[int]float64 `json:"release_years"`
	RuntimeRange    RuntimeRange    `json:"runtime_range"`
	RatingThreshold float64         `json:"rating_threshold"`
}

// WatchedMovie is one watch-history entry. The history is chronological and
// append-only; watching the same movie twice produces two entries.
type WatchedMovie struct {
	MovieID       int       `json:"movie_id"`
	Title         string    `json:"title"`
	Genres        []int     `json:"genres"`
	Cast          []int     `json:"cast"`
	Directors     []int     `json:"directors"`
	ReleaseYear   int       `json:"release_year"`
	Runtime       int       `json:"runtime"`
	CatalogRating float64   `json:"catalog_rating"`
	WatchedAt     time.Time `json:"watched_at"`
	UserRating    float64   `json:"user_rating,omitempty"`
	Rated         bool      `json:"rated"`
}

// EffectiveRating resolves the rating used by similarity and collaborative
// scoring: the explicit user rating when present, otherwise the catalog
// rating halved and clamped to the 1-5 scale.
func (m WatchedMovie) EffectiveRating() float64 {
	if m.Rated {
		return m.UserRating
	}
	estimated := m.CatalogRating / 2
	if estimated < 1 {
		return 1
	}
	if estimated > 5 {
		return 5
	}
	return estimated
}

// UserProfile is one user's taste profile.
type UserProfile struct {
	UserID       string         `json:"user_id"`
	Preferences  Preferences    `json:"preferences"`
	WatchHistory []WatchedMovie `json:"watch_history"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewUserProfile returns an empty profile with default preference bounds.
func NewUserProfile(userID string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		UserID: userID,
		Preferences: Preferences{
			Genres:          make(map[int]float64),
			Actors:          make(map[int]float64),
			Directors:       make(map[int]float64),
			ReleaseYears:    make(map[int]float64),
			RuntimeRange:    RuntimeRange{Min: defaultRuntimeMin, Max: defaultRuntimeMax},
			RatingThreshold: defaultRatingThreshold,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordWatch appends a watch-history entry built from the catalog detail and
// folds the movie into the preference weights. weight is rating/5 for a rated
// watch, 0.7 otherwise; cast weights use half of it (first five credits),
// director weights 0.8 of it and release-year weights 0.3 of it.
func (p *UserProfile) RecordWatch(detail *tmdb.MovieDetail, userRating float64, rated bool) {
	entry := WatchedMovie{
		MovieID:       detail.ID,
		Title:         detail.Title,
		ReleaseYear:   releaseYear(detail.ReleaseDate),
		Runtime:       detail.Runtime,
		CatalogRating: detail.VoteAverage,
		WatchedAt:     time.Now(),
		UserRating:    userRating,
		Rated:         rated,
	}
	for _, g := range detail.Genres {
		entry.Genres = append(entry.Genres, g.ID)
	}
	for i, c := range detail.Cast {
		if i >= maxTrackedCast {
			break
		}
		entry.Cast = append(entry.Cast, c.ID)
	}
	for _, d := range detail.Directors {
		entry.Directors = append(entry.Directors, d.ID)
	}
	p.WatchHistory = append(p.WatchHistory, entry)

	weight := defaultWeight
	if rated {
		weight = userRating / 5
	}

	for _, id := range entry.Genres {
		p.Preferences.Genres[id] += weight
	}
	for _, id := range entry.Cast {
		p.Preferences.Actors[id] += weight * actorWeightFactor
	}
	for _, id := range entry.Directors {
		p.Preferences.Directors[id] += weight * directorWeightFactor
	}
	if entry.ReleaseYear > 0 {
		p.Preferences.ReleaseYears[entry.ReleaseYear] += weight * yearWeightFactor
	}

	p.UpdatedAt = time.Now()
}

// BoostRecentGenres adds a small bonus weight to the genres of movies watched
// within the given window, so fresh activity pulls recommendations toward it.
func (p *UserProfile) BoostRecentGenres(since time.Time, bonus float64) {
	for _, movie := range p.WatchHistory {
		if movie.WatchedAt.Before(since) {
			continue
		}
		for _, id := range movie.Genres {
			p.Preferences.Genres[id] += bonus
		}
	}
	p.UpdatedAt = time.Now()
}

// HasWatched reports whether the watch history contains the movie.
func (p *UserProfile) HasWatched(movieID int) bool {
	for _, m := range p.WatchHistory {
		if m.MovieID == movieID {
			return true
		}
	}
	return false
}

// WatchedSet returns the set of watched movie IDs.
func (p *UserProfile) WatchedSet() map[int]bool {
	set := make(map[int]bool, len(p.WatchHistory))
	for _, m := range p.WatchHistory {
		set[m.MovieID] = true
	}
	return set
}

// RatingFor resolves the user's rating for a movie in their history, using
// the first matching entry.
func (p *UserProfile) RatingFor(movieID int) (float64, bool) {
	for _, m := range p.WatchHistory {
		if m.MovieID == movieID {
			return m.EffectiveRating(), true
		}
	}
	return 0, false
}

// Clone deep-copies the profile so readers can use it without holding store
// locks.
func (p *UserProfile) Clone() *UserProfile {
	clone := *p
	clone.Preferences.Genres = copyWeights(p.Preferences.Genres)
	clone.Preferences.Actors = copyWeights(p.Preferences.Actors)
	clone.Preferences.Directors = copyWeights(p.Preferences.Directors)
	clone.Preferences.ReleaseYears = copyWeights(p.Preferences.ReleaseYears)
	clone.WatchHistory = make([]WatchedMovie, len(p.WatchHistory))
	for i, m := range p.WatchHistory {
		clone.WatchHistory[i] = m
		clone.WatchHistory[i].Genres = append([]int(nil), m.Genres...)
		clone.WatchHistory[i].Cast = append([]int(nil), m.Cast...)
		clone.WatchHistory[i].Directors = append([]int(nil), m.Directors...)
	}
	return &clone
}

func copyWeights(src map[int]float64) map[int]float64 {
	dst := make(map[int]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func releaseYear(releaseDate string) int {
	t, err := time.Parse("2006-01-02", releaseDate)
	if err != nil {
		return 0
	}
	return t.Year()
}
