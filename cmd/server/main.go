package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"pharmadb-backend/internal/api"
	"pharmadb-backend/internal/config"
	"pharmadb-backend/internal/driver"
	"pharmadb-backend/internal/service"
	"pharmadb-backend/internal/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	// Datasets are required; any load failure stops the process
	src, err := openDataSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s data source: %v", cfg.Data.Source, err)
	}
	catalog, err := service.LoadCatalog(ctx, src)
	src.Close()
	if err != nil {
		log.Fatalf("Failed to load datasets: %v", err)
	}

	explorer, err := service.NewExplorer(catalog)
	if err != nil {
		log.Fatalf("Failed to prepare datasets: %v", err)
	}

	sessions, ttl, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if ttl > 0 {
		go sweepSessions(sessions, ttl)
	}

	var publisher *service.GraphPublisher
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			log.Printf("Warning: graph database unavailable, publishing disabled: %v", err)
		} else {
			defer d.Close(ctx)
			if err := d.BuildIndices(ctx); err != nil {
				log.Printf("Warning: failed to build graph indices: %v", err)
			}
			publisher = service.NewGraphPublisher(d)
		}
	}

	handler := api.NewHandler(explorer, sessions, publisher, cfg.Data.Source)

	// Router Setup
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Pharmacoinformatics backend is running"))
	})

	handler.RegisterRoutes(r)

	log.Printf("Starting server on http://localhost:%s", cfg.Server.Port)
	log.Printf("Data source: %s", cfg.Data.Source)

	if err := http.ListenAndServe(":"+cfg.Server.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func openDataSource(cfg *config.Config) (service.DataSource, error) {
	switch cfg.Data.Source {
	case config.SourcePostgres:
		return service.OpenPostgres(cfg.Postgres.DSN)
	case config.SourceSQLite:
		return service.OpenSQLite(cfg.SQLite.Path)
	}
	return service.NewCSVDataSource(cfg.Data.Dir, cfg.Data.RulesFile), nil
}

// newSessionStore sizes the session store from server.session_ttl
func newSessionStore(cfg *config.Config) (*state.Store, time.Duration, error) {
	ttl, err := cfg.SessionTTLDuration()
	if err != nil {
		return nil, 0, err
	}
	return state.NewStore(ttl), ttl, nil
}

func sweepSessions(store *state.Store, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for range ticker.C {
		if n := store.Sweep(); n > 0 {
			log.Printf("Expired %d idle sessions", n)
		}
	}
}
