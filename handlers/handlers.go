package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/ojingabokkumbap/moviej-recommender/lib/assistant"
	"github.com/ojingabokkumbap/moviej-recommender/lib/engine"
	"github.com/ojingabokkumbap/moviej-recommender/lib/kobis"
	"github.com/ojingabokkumbap/moviej-recommender/lib/validation"
)

// watchRequest is the POST body for recording a watch event.
type watchRequest struct {
	MovieID     int      `json:"movie_id"`
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date"`
	VoteAverage float64  `json:"vote_average"`
	Rating      *float64 `json:"rating,omitempty"`
}

// chatRequest is the POST body for the assistant.
type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// boxOfficeMovie is one enriched box-office row.
type boxOfficeMovie struct {
	kobis.BoxOfficeEntry
	Info *kobis.MovieInfo `json:"info,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

// HandleWatch records a watch event for the user and updates their taste
// profile.
func HandleWatch(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			validation.WriteError(w, fmt.Errorf("user id is required"), http.StatusBadRequest)
			return
		}

		var req watchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
			return
		}

		input := engine.WatchInput{
			MovieID:     req.MovieID,
			Title:       req.Title,
			ReleaseDate: req.ReleaseDate,
			VoteAverage: req.VoteAverage,
		}
		var rating float64
		rated := req.Rating != nil
		if rated {
			rating = *req.Rating
		}

		if err := validation.ValidateWatchInput(input, rating, rated); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		if err := eng.UpdateProfile(r.Context(), userID, input, rating, rated); err != nil {
			var pe *engine.ProviderError
			if errors.As(err, &pe) {
				slog.Error("catalog provider failed during watch update", slog.Any("error", err))
				validation.WriteError(w, fmt.Errorf("movie catalog unavailable"), http.StatusBadGateway)
				return
			}
			slog.Error("Failed to update profile", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to record watch event"), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRecommendations generates recommendations for the user.
func HandleRecommendations(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			validation.WriteError(w, fmt.Errorf("user id is required"), http.StatusBadRequest)
			return
		}

		count := 10
		if raw := r.URL.Query().Get("count"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				validation.WriteError(w, fmt.Errorf("invalid count: %s", raw), http.StatusBadRequest)
				return
			}
			count = parsed
		}
		if err := validation.ValidateCount(count); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		algorithms := []string{engine.AlgorithmHybrid}
		if raw := r.URL.Query().Get("algorithms"); raw != "" {
			algorithms = strings.Split(raw, ",")
		}
		if err := validation.ValidateAlgorithms(algorithms); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		req := engine.Request{
			UserID:     userID,
			Count:      count,
			Algorithms: algorithms,
		}

		var filters engine.Filters
		hasFilters := false
		if raw := r.URL.Query().Get("min_rating"); raw != "" {
			minRating, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				validation.WriteError(w, fmt.Errorf("invalid min_rating: %s", raw), http.StatusBadRequest)
				return
			}
			filters.MinRating = minRating
			hasFilters = true
		}
		if raw := r.URL.Query().Get("exclude_watched"); raw == "true" {
			filters.ExcludeWatched = true
			hasFilters = true
		}
		if hasFilters {
			req.Filters = &filters
		}

		resp, err := eng.GenerateRecommendations(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, engine.ErrProfileNotFound):
				validation.WriteError(w, fmt.Errorf("no profile for user %s", userID), http.StatusNotFound)
			case errors.Is(err, engine.ErrUnknownAlgorithm):
				validation.WriteError(w, err, http.StatusBadRequest)
			default:
				var pe *engine.ProviderError
				if errors.As(err, &pe) {
					slog.Error("catalog provider failed during recommendation", slog.Any("error", err))
					validation.WriteError(w, fmt.Errorf("movie catalog unavailable"), http.StatusBadGateway)
					return
				}
				slog.Error("Failed to generate recommendations", slog.Any("error", err))
				validation.WriteError(w, fmt.Errorf("failed to generate recommendations"), http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleRefresh applies the recent-activity boost to the user's profile.
func HandleRefresh(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			validation.WriteError(w, fmt.Errorf("user id is required"), http.StatusBadRequest)
			return
		}

		if err := eng.RefreshUser(r.Context(), userID); err != nil {
			if errors.Is(err, engine.ErrProfileNotFound) {
				validation.WriteError(w, fmt.Errorf("no profile for user %s", userID), http.StatusNotFound)
				return
			}
			slog.Error("Failed to refresh profile", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to refresh profile"), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleDailyBoxOffice serves the KOBIS daily box office ranking, enriched
// with per-movie detail. A failed detail lookup leaves that row unenriched
// rather than failing the response.
func HandleDailyBoxOffice(client *kobis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = kobis.YesterdayDate(time.Now())
		}
		if err := validation.ValidateTargetDate(date); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		entries, err := client.DailyBoxOffice(r.Context(), date)
		if err != nil {
			slog.Error("Failed to get box office", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("box office service unavailable"), http.StatusBadGateway)
			return
		}

		movies := make([]boxOfficeMovie, 0, len(entries))
		for _, entry := range entries {
			movie := boxOfficeMovie{BoxOfficeEntry: entry}
			info, err := client.MovieInfo(r.Context(), entry.MovieCode)
			if err != nil {
				slog.Warn("Failed to get movie info",
					slog.String("movie_code", entry.MovieCode),
					slog.Any("error", err))
			} else {
				movie.Info = info
			}
			movies = append(movies, movie)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"date":   date,
			"movies": movies,
		})
	}
}

// HandleChat forwards a message to the movie assistant.
func HandleChat(a *assistant.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
			return
		}
		if req.Message == "" {
			validation.WriteError(w, fmt.Errorf("message is required"), http.StatusBadRequest)
			return
		}

		reply, err := a.Chat(r.Context(), req.UserID, req.Message)
		if err != nil {
			slog.Error("Assistant chat failed", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("assistant unavailable"), http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, reply)
	}
}

// HandleStats reports engine statistics.
func HandleStats(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, eng.Stats())
	}
}
