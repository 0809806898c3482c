package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ojingabokkumbap/moviej-recommender/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the sqlite database at path with the slog-backed gorm
// logger.
func Open(path string, logger *slog.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return gdb, nil
}

// RunMigrations applies SQLite optimizations, migrates the schema and creates
// the query indexes.
func RunMigrations(gdb *gorm.DB, logger *slog.Logger) error {
	ctx := context.Background()

	if err := enableSQLiteOptimizations(ctx, gdb, logger); err != nil {
		return fmt.Errorf("failed to enable SQLite optimizations: %w", err)
	}

	if err := gdb.AutoMigrate(&models.Profile{}, &models.WatchEvent{}, &models.PreferenceWeight{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createAdditionalIndexes(ctx, gdb, logger); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}

	return nil
}

// enableSQLiteOptimizations enables SQLite-specific optimizations
func enableSQLiteOptimizations(ctx context.Context, gdb *gorm.DB, logger *slog.Logger) error {
	optimizations := []string{
		"PRAGMA journal_mode=WAL",   // Enable WAL mode for better concurrency
		"PRAGMA synchronous=NORMAL", // Faster writes while maintaining safety
		"PRAGMA foreign_keys=ON",    // Enable foreign key constraints
		"PRAGMA temp_store=MEMORY",  // Store temporary tables in memory
	}

	for _, pragma := range optimizations {
		if err := gdb.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		} else {
			logger.Debug("Executed pragma", slog.String("pragma", pragma))
		}
	}

	return nil
}

// createAdditionalIndexes creates composite indexes for common queries
func createAdditionalIndexes(ctx context.Context, gdb *gorm.DB, logger *slog.Logger) error {
	additionalIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_watch_events_user_movie ON watch_events(user_id, movie_id)",
		"CREATE INDEX IF NOT EXISTS idx_watch_events_user_watched_at ON watch_events(user_id, watched_at)",
		"CREATE INDEX IF NOT EXISTS idx_preference_weights_user_kind ON preference_weights(user_id, kind)",
	}

	for _, indexSQL := range additionalIndexes {
		if err := gdb.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			logger.Warn("Failed to create index", slog.String("sql", indexSQL), slog.Any("error", err))
		} else {
			logger.Debug("Created index", slog.String("sql", indexSQL))
		}
	}

	return nil
}
