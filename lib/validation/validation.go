package validation

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ojingabokkumbap/moviej-recommender/lib/engine"
)

// targetDateRegex matches KOBIS target dates in YYYYMMDD format.
var targetDateRegex = regexp.MustCompile(`^\d{8}$`)

// MaxRecommendationCount bounds a single recommendation request.
const MaxRecommendationCount = 50

// ValidateCount checks the requested recommendation count.
func ValidateCount(count int) error {
	if count < 1 {
		return fmt.Errorf("count must be greater than 0")
	}
	if count > MaxRecommendationCount {
		return fmt.Errorf("count must be at most %d", MaxRecommendationCount)
	}
	return nil
}

// ValidateAlgorithms checks that at least one algorithm is requested and all
// names are known.
func ValidateAlgorithms(algorithms []string) error {
	if len(algorithms) == 0 {
		return fmt.Errorf("at least one algorithm is required")
	}
	for _, a := range algorithms {
		switch a {
		case engine.AlgorithmCollaborative, engine.AlgorithmContent, engine.AlgorithmHybrid:
		default:
			return fmt.Errorf("unknown algorithm: %s", a)
		}
	}
	return nil
}

// ValidateTargetDate checks a box-office target date (YYYYMMDD) and ensures
// it is not in the future.
func ValidateTargetDate(date string) error {
	if !targetDateRegex.MatchString(date) {
		return fmt.Errorf("invalid date format: %s, expected YYYYMMDD", date)
	}

	parsed, err := time.Parse("20060102", date)
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}

	if parsed.After(time.Now()) {
		return fmt.Errorf("date cannot be in the future")
	}
	return nil
}

// ValidateWatchInput checks the caller-supplied watch summary and optional
// rating (1-5 when present).
func ValidateWatchInput(input engine.WatchInput, rating float64, rated bool) error {
	if input.MovieID <= 0 {
		return fmt.Errorf("movie_id must be a positive integer")
	}
	if rated && (rating < 1 || rating > 5) {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	return nil
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	}); err != nil {
		slog.Error("Failed to encode error response", slog.Any("error", err))
	}
}
