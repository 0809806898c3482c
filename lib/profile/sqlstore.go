package profile

import (
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/ojingabokkumbap/moviej-recommender/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersistentStore is a MemoryStore with write-through persistence. The engine
// only ever reads the in-memory side, so the scoring algorithms stay
// independent of the storage choice; sqlite just makes profiles survive a
// restart.
type PersistentStore struct {
	mem    *MemoryStore
	db     *gorm.DB
	logger *slog.Logger
}

// NewPersistentStore loads all persisted profiles into memory and returns the
// write-through store.
func NewPersistentStore(db *gorm.DB, logger *slog.Logger) (*PersistentStore, error) {
	s := &PersistentStore{
		mem:    NewMemoryStore(),
		db:     db,
		logger: logger,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	logger.Info("loaded profiles", slog.Int("count", s.mem.Len()))
	return s, nil
}

func (s *PersistentStore) Get(userID string) (*UserProfile, bool) {
	return s.mem.Get(userID)
}

func (s *PersistentStore) Snapshot() []*UserProfile {
	return s.mem.Snapshot()
}

func (s *PersistentStore) Len() int {
	return s.mem.Len()
}

// Mutate applies fn in memory, then writes the updated profile through to the
// database. A persistence failure is returned but the in-memory update stands:
// serving from memory beats losing the event.
func (s *PersistentStore) Mutate(userID string, fn func(*UserProfile)) error {
	if err := s.mem.Mutate(userID, fn); err != nil {
		return err
	}

	p, ok := s.mem.Get(userID)
	if !ok {
		return fmt.Errorf("profile %s missing after mutation", userID)
	}
	if err := s.persist(p); err != nil {
		return fmt.Errorf("failed to persist profile %s: %w", userID, err)
	}
	return nil
}

func (s *PersistentStore) persist(p *UserProfile) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		row := models.Profile{
			UserID:          p.UserID,
			RatingThreshold: p.Preferences.RatingThreshold,
			RuntimeMin:      p.Preferences.RuntimeRange.Min,
			RuntimeMax:      p.Preferences.RuntimeRange.Max,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}

		// Replace-all is fine at this scale and keeps the row set in lockstep
		// with the in-memory profile.
		if err := tx.Unscoped().Where("user_id = ?", p.UserID).Delete(&models.WatchEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", p.UserID).Delete(&models.PreferenceWeight{}).Error; err != nil {
			return err
		}

		for _, m := range p.WatchHistory {
			event := models.WatchEvent{
				UserID:        p.UserID,
				MovieID:       m.MovieID,
				Title:         m.Title,
				Genres:        joinIDs(m.Genres),
				Cast:          joinIDs(m.Cast),
				Directors:     joinIDs(m.Directors),
				ReleaseYear:   m.ReleaseYear,
				Runtime:       m.Runtime,
				CatalogRating: m.CatalogRating,
				WatchedAt:     m.WatchedAt,
				UserRating:    m.UserRating,
				Rated:         m.Rated,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}

		weights := make([]models.PreferenceWeight, 0,
			len(p.Preferences.Genres)+len(p.Preferences.Actors)+len(p.Preferences.Directors)+len(p.Preferences.ReleaseYears))
		weights = appendWeights(weights, p.UserID, "genre", p.Preferences.Genres)
		weights = appendWeights(weights, p.UserID, "actor", p.Preferences.Actors)
		weights = appendWeights(weights, p.UserID, "director", p.Preferences.Directors)
		weights = appendWeights(weights, p.UserID, "year", p.Preferences.ReleaseYears)
		for i := range weights {
			if err := tx.Create(&weights[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PersistentStore) load() error {
	var profiles []models.Profile
	if err := s.db.Find(&profiles).Error; err != nil {
		return err
	}

	for _, row := range profiles {
		userID := row.UserID
		rebuilt := &UserProfile{
			UserID: userID,
			Preferences: Preferences{
				Genres:          make(map[int]float64),
				Actors:          make(map[int]float64),
				Directors:       make(map[int]float64),
				ReleaseYears:    make(map[int]float64),
				RuntimeRange:    RuntimeRange{Min: row.RuntimeMin, Max: row.RuntimeMax},
				RatingThreshold: row.RatingThreshold,
			},
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}

		var events []models.WatchEvent
		if err := s.db.Where("user_id = ?", userID).Order("watched_at asc, id asc").Find(&events).Error; err != nil {
			return err
		}
		for _, e := range events {
			rebuilt.WatchHistory = append(rebuilt.WatchHistory, WatchedMovie{
				MovieID:       e.MovieID,
				Title:         e.Title,
				Genres:        splitIDs(e.Genres),
				Cast:          splitIDs(e.Cast),
				Directors:     splitIDs(e.Directors),
				ReleaseYear:   e.ReleaseYear,
				Runtime:       e.Runtime,
				CatalogRating: e.CatalogRating,
				WatchedAt:     e.WatchedAt,
				UserRating:    e.UserRating,
				Rated:         e.Rated,
			})
		}

		var weights []models.PreferenceWeight
		if err := s.db.Where("user_id = ?", userID).Find(&weights).Error; err != nil {
			return err
		}
		for _, w := range weights {
			switch w.Kind {
			case "genre":
				rebuilt.Preferences.Genres[w.Key] = w.Weight
			case "actor":
				rebuilt.Preferences.Actors[w.Key] = w.Weight
			case "director":
				rebuilt.Preferences.Directors[w.Key] = w.Weight
			case "year":
				rebuilt.Preferences.ReleaseYears[w.Key] = w.Weight
			default:
				s.logger.Warn("skipping unknown preference kind", slog.String("kind", w.Kind))
			}
		}

		if err := s.mem.Mutate(userID, func(p *UserProfile) {
			*p = *rebuilt
		}); err != nil {
			return err
		}
	}
	return nil
}

func appendWeights(dst []models.PreferenceWeight, userID, kind string, src map[int]float64) []models.PreferenceWeight {
	for key, weight := range src {
		dst = append(dst, models.PreferenceWeight{
			UserID: userID,
			Kind:   kind,
			Key:    key,
			Weight: weight,
		})
	}
	return dst
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func splitIDs(csv string) []int {
	if csv == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(csv, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
