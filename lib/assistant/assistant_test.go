package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/ojingabokkumbap/moviej-recommender/lib/profile"
)

func TestTasteSummary(t *testing.T) {
	prof := profile.NewUserProfile("u1")
	prof.Preferences.Genres = map[int]float64{
		28: 2.5, 18: 1.8, 35: 1.2, 27: 0.9, 53: 0.6, 16: 0.3,
	}
	prof.WatchHistory = []profile.WatchedMovie{
		{MovieID: 1, Title: "Old Movie", WatchedAt: time.Now()},
		{MovieID: 2, Title: "Parasite", UserRating: 5, Rated: true, WatchedAt: time.Now()},
	}

	got := tasteSummary(prof)

	// The strongest genre leads and the sixth is cut.
	if !strings.Contains(got, "28 (2.5)") {
		t.Fatalf("summary %q missing the top genre", got)
	}
	if strings.Contains(got, "16 (0.3)") {
		t.Fatalf("summary %q should list at most five genres", got)
	}

	if !strings.Contains(got, "Parasite (rated 5/5)") {
		t.Fatalf("summary %q missing the rated watch", got)
	}
	if !strings.Contains(got, "- Old Movie\n") {
		t.Fatalf("summary %q missing the unrated watch", got)
	}
}

func TestTasteSummaryKeepsLastFiveWatches(t *testing.T) {
	prof := profile.NewUserProfile("u1")
	titles := []string{"One", "Two", "Three", "Four", "Five", "Six", "Seven"}
	for i, title := range titles {
		prof.WatchHistory = append(prof.WatchHistory, profile.WatchedMovie{
			MovieID:   i + 1,
			Title:     title,
			WatchedAt: time.Now(),
		})
	}

	got := tasteSummary(prof)

	if strings.Contains(got, "- One\n") || strings.Contains(got, "- Two\n") {
		t.Fatalf("summary %q should drop the oldest watches", got)
	}
	if !strings.Contains(got, "- Seven\n") {
		t.Fatalf("summary %q missing the newest watch", got)
	}
}

func TestTasteSummaryEmptyProfile(t *testing.T) {
	got := tasteSummary(profile.NewUserProfile("u1"))

	if strings.Contains(got, "Top genre IDs") {
		t.Fatalf("summary %q should omit the genre section for an empty profile", got)
	}
	if strings.Contains(got, "Recently watched") {
		t.Fatalf("summary %q should omit the history section for an empty profile", got)
	}
}
