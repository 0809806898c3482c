package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"log/slog"

	json "github.com/goccy/go-json"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeBody(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("failed to encode test payload: %v", err)
	}
}

func TestGetMovieDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}

		switch r.URL.Path {
		case "/movie/603":
			if got := r.URL.Query().Get("language"); got != "ko-KR" {
				t.Errorf("language = %q, want ko-KR", got)
			}
			writeBody(t, w, movieResponse{
				ID:          603,
				Title:       "The Matrix",
				Genres:      []Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
				ReleaseDate: "1999-03-30",
				Runtime:     136,
				VoteAverage: 8.2,
				Overview:    "A hacker learns the truth.",
				PosterPath:  "/matrix.jpg",
			})
		case "/movie/603/credits":
			writeBody(t, w, map[string]any{
				"cast": []CastMember{
					{ID: 6384, Name: "Keanu Reeves", Character: "Neo", Order: 0},
				},
				"crew": []map[string]any{
					{"id": 9339, "name": "Lilly Wachowski", "job": "Director"},
					{"id": 9340, "name": "Lana Wachowski", "job": "Director"},
					{"id": 1, "name": "Someone Else", "job": "Producer"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "ko-KR", server.Client(), testLogger())

	detail, err := client.GetMovieDetail(context.Background(), 603)
	if err != nil {
		t.Fatalf("GetMovieDetail: %v", err)
	}

	if detail.ID != 603 || detail.Title != "The Matrix" {
		t.Fatalf("detail = %+v, want the movie resource merged in", detail)
	}
	if detail.Runtime != 136 || detail.VoteAverage != 8.2 {
		t.Fatalf("runtime/vote = %d/%v, want 136/8.2", detail.Runtime, detail.VoteAverage)
	}
	if len(detail.Genres) != 2 {
		t.Fatalf("genres = %+v, want 2 entries", detail.Genres)
	}
	if len(detail.Cast) != 1 || detail.Cast[0].Name != "Keanu Reeves" {
		t.Fatalf("cast = %+v, want the credits cast", detail.Cast)
	}
	if len(detail.Directors) != 2 {
		t.Fatalf("directors = %+v, want only the Director crew entries", detail.Directors)
	}
}

func TestGetMovieDetailUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "ko-KR", server.Client(), testLogger())

	if _, err := client.GetMovieDetail(context.Background(), 999); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestGetCandidateMoviesPaging(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []int
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discover/movie" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("vote_average.gte"); got != "6.0" {
			t.Errorf("vote_average.gte = %q, want 6.0", got)
		}
		if got := r.URL.Query().Get("sort_by"); got != "popularity.desc" {
			t.Errorf("sort_by = %q, want popularity.desc", got)
		}

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			t.Errorf("invalid page param: %v", err)
		}
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()

		results := make([]MovieSummary, candidatePageSize)
		for i := range results {
			results[i] = MovieSummary{
				ID:    (page-1)*candidatePageSize + i + 1,
				Title: fmt.Sprintf("Movie %d", i),
			}
		}
		writeBody(t, w, discoverResponse{Page: page, Results: results})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "ko-KR", server.Client(), testLogger())

	movies, err := client.GetCandidateMovies(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetCandidateMovies: %v", err)
	}

	if len(movies) != 25 {
		t.Fatalf("got %d movies, want the result truncated to 25", len(movies))
	}
	if len(pages) != 2 || pages[0] != 1 || pages[1] != 2 {
		t.Fatalf("requested pages = %v, want [1 2]", pages)
	}
	if movies[24].ID != 25 {
		t.Fatalf("last movie ID = %d, want 25", movies[24].ID)
	}
}

func TestGetCandidateMoviesStopsOnShortPage(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeBody(t, w, discoverResponse{Page: 1, Results: []MovieSummary{{ID: 1}, {ID: 2}}})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "ko-KR", server.Client(), testLogger())

	movies, err := client.GetCandidateMovies(context.Background(), 100)
	if err != nil {
		t.Fatalf("GetCandidateMovies: %v", err)
	}

	if len(movies) != 2 {
		t.Fatalf("got %d movies, want 2", len(movies))
	}
	if requests != 1 {
		t.Fatalf("made %d requests, want paging to stop after the short page", requests)
	}
}

func TestGetCandidateMoviesZeroLimit(t *testing.T) {
	client := NewClient("test-key", "http://invalid", "ko-KR", nil, testLogger())

	movies, err := client.GetCandidateMovies(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetCandidateMovies: %v", err)
	}
	if movies != nil {
		t.Fatalf("movies = %v, want nil without any request", movies)
	}
}

func TestPosterURL(t *testing.T) {
	client := NewClient("test-key", "http://example", "ko-KR", nil, testLogger())

	if got := client.PosterURL("/poster.jpg"); got != "https://image.tmdb.org/t/p/w500/poster.jpg" {
		t.Fatalf("PosterURL = %q", got)
	}
	if got := client.PosterURL(""); got != "" {
		t.Fatalf("PosterURL of empty path = %q, want empty", got)
	}
}
