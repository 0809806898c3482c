package main

import (
	"fmt"
	"net/http"
	"os"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/ojingabokkumbap/moviej-recommender/handlers"
	"github.com/ojingabokkumbap/moviej-recommender/lib/assistant"
	"github.com/ojingabokkumbap/moviej-recommender/lib/config"
	"github.com/ojingabokkumbap/moviej-recommender/lib/db"
	"github.com/ojingabokkumbap/moviej-recommender/lib/engine"
	"github.com/ojingabokkumbap/moviej-recommender/lib/health"
	"github.com/ojingabokkumbap/moviej-recommender/lib/kobis"
	"github.com/ojingabokkumbap/moviej-recommender/lib/profile"
	"github.com/ojingabokkumbap/moviej-recommender/lib/similarity"
	"github.com/ojingabokkumbap/moviej-recommender/lib/tmdb"
	"gorm.io/gorm"
)

type App struct {
	cfg    *config.Config
	db     *gorm.DB
	engine *engine.Engine
	router *chi.Mux
	logger *slog.Logger
}

func NewApp() (*App, error) {
	// A missing .env is fine; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	gdb, err := db.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(gdb, logger); err != nil {
		return nil, err
	}

	store, err := profile.NewPersistentStore(gdb, logger)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	catalog := tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, httpClient, logger)
	boxOffice := kobis.NewClient(cfg.KOBIS.APIKey, cfg.KOBIS.BaseURL, httpClient, logger)

	eng := engine.New(store, similarity.NewCalculator(), catalog, logger)
	chat := assistant.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, store, logger)

	app := &App{
		cfg:    cfg,
		db:     gdb,
		engine: eng,
		router: chi.NewRouter(),
		logger: logger,
	}
	app.setupRoutes(boxOffice, chat)
	return app, nil
}

func (a *App) setupRoutes(boxOffice *kobis.Client, chat *assistant.Assistant) {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/health", health.Check(a.db))
	a.router.Get("/stats", handlers.HandleStats(a.engine))

	a.router.Route("/api", func(r chi.Router) {
		r.Post("/users/{userID}/watch", handlers.HandleWatch(a.engine))
		r.Get("/users/{userID}/recommendations", handlers.HandleRecommendations(a.engine))
		r.Post("/users/{userID}/refresh", handlers.HandleRefresh(a.engine))
		r.Get("/boxoffice/daily", handlers.HandleDailyBoxOffice(boxOffice))
		r.Post("/chat", handlers.HandleChat(chat))
	})
}

func main() {
	app, err := NewApp()
	if err != nil {
		slog.Error("failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	app.logger.Info("starting server", slog.String("addr", app.cfg.ListenAddr))
	if err := http.ListenAndServe(app.cfg.ListenAddr, app.router); err != nil {
		app.logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
