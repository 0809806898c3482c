package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is the persisted root of a user taste profile. Preference weights and
// watch events hang off it by user ID.
type Profile struct {
	UserID          string `gorm:"primaryKey"`
	RatingThreshold float64
	RuntimeMin      int
	RuntimeMax      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WatchEvent is one watched-movie record. A user may have multiple events for
// the same movie; the engine treats the history as append-only.
type WatchEvent struct {
	gorm.Model
	UserID        string `gorm:"index:idx_watch_events_user"`
	MovieID       int
	Title         string
	Genres        string // comma-separated genre IDs
	Cast          string // comma-separated person IDs, first five credits
	Directors     string // comma-separated person IDs
	ReleaseYear   int
	Runtime       int
	CatalogRating float64
	WatchedAt     time.Time
	UserRating    float64
	Rated         bool
}

// PreferenceWeight is one accumulated taste weight, keyed by kind
// ("genre", "actor", "director", "year") and the numeric ID within that kind.
type PreferenceWeight struct {
	gorm.Model
	UserID string `gorm:"index:idx_preference_weights_user"`
	Kind   string
	Key    int
	Weight float64
}
