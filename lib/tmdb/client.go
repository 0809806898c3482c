package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"log/slog"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// candidatePageSize is the fixed page size of the TMDB discover endpoint.
const candidatePageSize = 20

// Genre is a TMDB genre reference.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is one credits entry, in billing order.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

// Person is a minimal person reference (used for directors).
type Person struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieSummary is a discover/list result entry.
type MovieSummary struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	GenreIDs    []int   `json:"genre_ids"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	Popularity  float64 `json:"popularity"`
}

// MovieDetail is the full record the engine consumes: the movie resource joined
// with its credits.
type MovieDetail struct {
	ID          int
	Title       string
	Genres      []Genre
	Cast        []CastMember
	Directors   []Person
	ReleaseDate string
	Runtime     int
	VoteAverage float64
	Overview    string
	PosterPath  string
}

type movieResponse struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Genres      []Genre `json:"genres"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
}

type creditsResponse struct {
	Cast []CastMember `json:"cast"`
	Crew []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

type discoverResponse struct {
	Page    int            `json:"page"`
	Results []MovieSummary `json:"results"`
}

// Client talks to the TMDB HTTP API. Discover paging is rate limited so a
// large candidate fetch cannot hammer the API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(apiKey, baseURL, language string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		language:   language,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(20), 20),
		logger:     logger,
	}
}

// GetMovieDetail fetches the movie resource and its credits concurrently and
// merges them. Directors are the crew members with the Director job.
func (c *Client) GetMovieDetail(ctx context.Context, movieID int) (*MovieDetail, error) {
	var (
		movie      movieResponse
		credits    creditsResponse
		movieErr   error
		creditsErr error
		wg         sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		movieErr = c.getJSON(ctx, fmt.Sprintf("/movie/%d", movieID), url.Values{"language": {c.language}}, &movie)
	}()
	go func() {
		defer wg.Done()
		creditsErr = c.getJSON(ctx, fmt.Sprintf("/movie/%d/credits", movieID), nil, &credits)
	}()
	wg.Wait()

	if movieErr != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", movieID, movieErr)
	}
	if creditsErr != nil {
		return nil, fmt.Errorf("failed to get credits for movie %d: %w", movieID, creditsErr)
	}

	detail := &MovieDetail{
		ID:          movie.ID,
		Title:       movie.Title,
		Genres:      movie.Genres,
		Cast:        credits.Cast,
		ReleaseDate: movie.ReleaseDate,
		Runtime:     movie.Runtime,
		VoteAverage: movie.VoteAverage,
		Overview:    movie.Overview,
		PosterPath:  movie.PosterPath,
	}
	for _, crew := range credits.Crew {
		if crew.Job == "Director" {
			detail.Directors = append(detail.Directors, Person{ID: crew.ID, Name: crew.Name})
		}
	}

	return detail, nil
}

// GetCandidateMovies returns up to limit movies from the discover endpoint,
// ordered by descending popularity and filtered to a 6.0 minimum vote average.
// Pages are fetched sequentially in fixed pages of 20.
func (c *Client) GetCandidateMovies(ctx context.Context, limit int) ([]MovieSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	pages := (limit + candidatePageSize - 1) / candidatePageSize
	movies := make([]MovieSummary, 0, limit)

	for page := 1; page <= pages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}

		var resp discoverResponse
		params := url.Values{
			"language":         {c.language},
			"sort_by":          {"popularity.desc"},
			"page":             {strconv.Itoa(page)},
			"vote_average.gte": {"6.0"},
		}
		if err := c.getJSON(ctx, "/discover/movie", params, &resp); err != nil {
			return nil, fmt.Errorf("failed to get candidate page %d: %w", page, err)
		}

		movies = append(movies, resp.Results...)
		if len(resp.Results) < candidatePageSize {
			break
		}
	}

	if len(movies) > limit {
		movies = movies[:limit]
	}
	return movies, nil
}

// PosterURL builds the full image URL for a poster path.
func (c *Client) PosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return fmt.Sprintf("https://image.tmdb.org/t/p/w500%s", posterPath)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
