// Package engine generates personalized movie recommendations from in-memory
// taste profiles, blending collaborative and content-based scoring.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/ojingabokkumbap/moviej-recommender/lib/profile"
	"github.com/ojingabokkumbap/moviej-recommender/lib/similarity"
	"github.com/ojingabokkumbap/moviej-recommender/lib/tmdb"
)

// Algorithm names accepted in a recommendation request.
const (
	AlgorithmCollaborative = "collaborative"
	AlgorithmContent       = "content"
	AlgorithmHybrid        = "hybrid"
)

const (
	// recentBoostWindow and recentBoostBonus drive the recent-activity
	// preference refresh.
	recentBoostWindow = 30 * 24 * time.Hour
	recentBoostBonus  = 0.1
)

// Provider is the movie catalog capability the engine consumes.
type Provider interface {
	GetMovieDetail(ctx context.Context, movieID int) (*tmdb.MovieDetail, error)
	GetCandidateMovies(ctx context.Context, limit int) ([]tmdb.MovieSummary, error)
}

// NeighborSource yields ranked taste neighbors for a user and recomputes them
// after profile changes.
type NeighborSource interface {
	Recompute(target *profile.UserProfile, others []*profile.UserProfile)
	Neighbors(userID string) []similarity.Neighbor
}

// WatchInput is the caller-supplied summary of a watched movie. Genres, cast
// and directors are always resolved from the catalog.
type WatchInput struct {
	MovieID     int     `json:"movie_id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

// Filters narrows a recommendation request. MinRating filters on the
// candidate's recommendation score, not the catalog rating; that quirk is
// kept from the original engine.
type Filters struct {
	MinRating      float64 `json:"min_rating,omitempty"`
	ExcludeWatched bool    `json:"exclude_watched,omitempty"`
}

// Request asks for recommendations for one user under a set of algorithms.
type Request struct {
	UserID     string   `json:"user_id"`
	Count      int      `json:"count"`
	Algorithms []string `json:"algorithms"`
	Filters    *Filters `json:"filters,omitempty"`
}

// Reason explains why a movie was recommended.
type Reason struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Score is a transient per-movie score produced by one strategy.
type Score struct {
	MovieID   int      `json:"movie_id"`
	Score     float64  `json:"score"`
	Reasons   []Reason `json:"reasons"`
	Algorithm string   `json:"algorithm"`
}

// Recommendation is a score joined with catalog detail for presentation.
type Recommendation struct {
	ID          int               `json:"id"`
	Title       string            `json:"title"`
	PosterPath  string            `json:"poster_path"`
	VoteAverage float64           `json:"vote_average"`
	ReleaseDate string            `json:"release_date"`
	Overview    string            `json:"overview"`
	Genres      []tmdb.Genre      `json:"genres"`
	Cast        []tmdb.CastMember `json:"cast"`
	Directors   []tmdb.Person     `json:"directors"`
	Score       float64           `json:"score"`
	Reasons     []Reason          `json:"reasons"`
	Confidence  float64           `json:"confidence"`
	Algorithm   string            `json:"algorithm"`
}

// Response is a completed recommendation run.
type Response struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	Algorithm       string           `json:"algorithm"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Confidence      float64          `json:"confidence"`
}

// Stats summarizes engine state for the stats endpoint.
type Stats struct {
	Profiles        int `json:"profiles"`
	WatchEvents     int `json:"watch_events"`
	NeighborLists   int `json:"neighbor_lists"`
	CachedResponses int `json:"cached_responses"`
}

// Engine orchestrates the profile store, neighbor source and catalog
// provider. Construct one per process (or per test) with New; there is no
// shared global instance.
type Engine struct {
	store     profile.Store
	neighbors NeighborSource
	provider  Provider
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*Response
}

func New(store profile.Store, neighbors NeighborSource, provider Provider, logger *slog.Logger) *Engine {
	return &Engine{
		store:     store,
		neighbors: neighbors,
		provider:  provider,
		logger:    logger,
		cache:     make(map[string]*Response),
	}
}

// UpdateProfile records a watch event for the user, creating the profile on
// first use. The full movie detail is fetched from the catalog; a provider
// failure propagates and nothing is recorded. The user's neighbor list is
// recomputed synchronously before returning, so a recommendation request
// issued right after sees the fresh neighbors.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, input WatchInput, userRating float64, rated bool) error {
	detail, err := e.provider.GetMovieDetail(ctx, input.MovieID)
	if err != nil {
		return &ProviderError{Op: "movie detail", Err: err}
	}

	if input.Title != "" {
		detail.Title = input.Title
	}
	if input.ReleaseDate != "" {
		detail.ReleaseDate = input.ReleaseDate
	}
	if input.VoteAverage > 0 {
		detail.VoteAverage = input.VoteAverage
	}

	if err := e.store.Mutate(userID, func(p *profile.UserProfile) {
		p.RecordWatch(detail, userRating, rated)
	}); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	e.recomputeNeighbors(userID)
	e.invalidateCache(userID)

	e.logger.Debug("profile updated",
		slog.String("user_id", userID),
		slog.Int("movie_id", input.MovieID),
		slog.Bool("rated", rated))
	return nil
}

// RefreshUser boosts the genres of the user's last 30 days of watches and
// recomputes their neighbor list. Returns ErrProfileNotFound for unknown
// users.
func (e *Engine) RefreshUser(ctx context.Context, userID string) error {
	if _, ok := e.store.Get(userID); !ok {
		return fmt.Errorf("refresh %s: %w", userID, ErrProfileNotFound)
	}

	if err := e.store.Mutate(userID, func(p *profile.UserProfile) {
		p.BoostRecentGenres(time.Now().Add(-recentBoostWindow), recentBoostBonus)
	}); err != nil {
		return fmt.Errorf("failed to refresh profile: %w", err)
	}

	e.recomputeNeighbors(userID)
	e.invalidateCache(userID)
	return nil
}

// GenerateRecommendations runs the requested strategies, merges and ranks
// their output, and enriches the survivors with catalog detail. A user with
// no profile yields ErrProfileNotFound, never an empty list.
func (e *Engine) GenerateRecommendations(ctx context.Context, req Request) (*Response, error) {
	prof, ok := e.store.Get(req.UserID)
	if !ok {
		return nil, fmt.Errorf("generate for %s: %w", req.UserID, ErrProfileNotFound)
	}

	if cached := e.cachedResponse(req); cached != nil {
		e.logger.Debug("serving cached recommendations", slog.String("user_id", req.UserID))
		return cached, nil
	}

	var scores []Score
	for _, algorithm := range req.Algorithms {
		var (
			result []Score
			err    error
		)
		switch algorithm {
		case AlgorithmCollaborative:
			result = e.collaborative(prof, req.Count)
		case AlgorithmContent:
			result, err = e.contentBased(ctx, prof, req.Count)
		case AlgorithmHybrid:
			result, err = e.hybrid(ctx, prof, req.Count)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
		}
		if err != nil {
			return nil, err
		}
		scores = append(scores, result...)
	}

	scores = dedupe(scores)
	if req.Filters != nil {
		scores = applyFilters(scores, req.Filters, prof)
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	// Confidence reflects all candidates that survived filtering, before the
	// count cut. It is score/5 on average and deliberately not clamped.
	confidence := overallConfidence(scores)

	if len(scores) > req.Count {
		scores = scores[:req.Count]
	}

	resp := &Response{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Recommendations: e.enrich(ctx, scores),
		Algorithm:       strings.Join(req.Algorithms, "+"),
		GeneratedAt:     time.Now(),
		Confidence:      confidence,
	}

	e.storeCached(req, resp)
	e.logger.Info("generated recommendations",
		slog.String("user_id", req.UserID),
		slog.String("algorithm", resp.Algorithm),
		slog.Int("count", len(resp.Recommendations)))
	return resp, nil
}

// Stats reports current engine state.
func (e *Engine) Stats() Stats {
	events := 0
	for _, p := range e.store.Snapshot() {
		events += len(p.WatchHistory)
	}

	e.mu.Lock()
	cached := len(e.cache)
	e.mu.Unlock()

	stats := Stats{
		Profiles:        e.store.Len(),
		WatchEvents:     events,
		CachedResponses: cached,
	}
	if c, ok := e.neighbors.(*similarity.Calculator); ok {
		stats.NeighborLists = c.Len()
	}
	return stats
}

func (e *Engine) recomputeNeighbors(userID string) {
	target, ok := e.store.Get(userID)
	if !ok {
		return
	}
	e.neighbors.Recompute(target, e.store.Snapshot())
}

// enrich joins each score with full catalog detail. A failed lookup drops
// that one movie and keeps the rest.
func (e *Engine) enrich(ctx context.Context, scores []Score) []Recommendation {
	enriched := make([]Recommendation, 0, len(scores))
	for _, s := range scores {
		detail, err := e.provider.GetMovieDetail(ctx, s.MovieID)
		if err != nil {
			e.logger.Warn("dropping recommendation, enrichment failed",
				slog.Int("movie_id", s.MovieID),
				slog.Any("error", err))
			continue
		}

		cast := detail.Cast
		if len(cast) > 5 {
			cast = cast[:5]
		}

		confidence := s.Score / 5
		if confidence > 1 {
			confidence = 1
		}

		enriched = append(enriched, Recommendation{
			ID:          s.MovieID,
			Title:       detail.Title,
			PosterPath:  detail.PosterPath,
			VoteAverage: detail.VoteAverage,
			ReleaseDate: detail.ReleaseDate,
			Overview:    detail.Overview,
			Genres:      detail.Genres,
			Cast:        cast,
			Directors:   detail.Directors,
			Score:       s.Score,
			Reasons:     s.Reasons,
			Confidence:  confidence,
			Algorithm:   s.Algorithm,
		})
	}
	return enriched
}

// dedupe collapses duplicate movie IDs across strategies, keeping the
// highest-scoring entry.
func dedupe(scores []Score) []Score {
	best := make(map[int]int, len(scores)) // movie ID -> index into out
	out := make([]Score, 0, len(scores))
	for _, s := range scores {
		if i, ok := best[s.MovieID]; ok {
			if s.Score > out[i].Score {
				out[i] = s
			}
			continue
		}
		best[s.MovieID] = len(out)
		out = append(out, s)
	}
	return out
}

func applyFilters(scores []Score, f *Filters, prof *profile.UserProfile) []Score {
	filtered := scores[:0:0]
	watched := prof.WatchedSet()
	for _, s := range scores {
		if f.MinRating > 0 && s.Score < f.MinRating {
			continue
		}
		if f.ExcludeWatched && watched[s.MovieID] {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

func overallConfidence(scores []Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores)) / 5
}

func (e *Engine) cacheKey(req Request) string {
	key := req.UserID + "|" + strings.Join(req.Algorithms, "+") + "|" + fmt.Sprint(req.Count)
	if req.Filters != nil {
		key += fmt.Sprintf("|%v|%v", req.Filters.MinRating, req.Filters.ExcludeWatched)
	}
	return key
}

func (e *Engine) cachedResponse(req Request) *Response {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache[e.cacheKey(req)]
}

func (e *Engine) storeCached(req Request, resp *Response) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[e.cacheKey(req)] = resp
}

func (e *Engine) invalidateCache(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.cache {
		if strings.HasPrefix(key, userID+"|") {
			delete(e.cache, key)
		}
	}
}
