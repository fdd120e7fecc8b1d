package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/code-animator/backend/internal/api"
	"github.com/code-animator/backend/internal/config"
	"github.com/code-animator/backend/internal/generator"
	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/metrics"
	"github.com/code-animator/backend/internal/playback"
	"github.com/code-animator/backend/internal/session"
	"github.com/code-animator/backend/internal/storage"
	"github.com/code-animator/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "CodeAnimator.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, generations, closeStore, err := openStore(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	lib, err := library.LoadWithDir(cfg.Storage.ExamplesDirectory)
	if err != nil {
		fmt.Printf("Failed to load example library: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d example plans\n", lib.Len())

	var gen generator.Generator
	if cfg.Generation.APIKey != "" {
		gemini, err := generator.NewGemini(ctx, cfg.Generation.APIKey,
			generator.WithModel(cfg.Generation.Model),
			generator.WithTimeout(cfg.GenerationTimeout()),
			generator.WithTemperature(cfg.Generation.Temperature),
		)
		if err != nil {
			fmt.Printf("Warning: plan generation disabled: %v\n", err)
		} else {
			gen = gemini
			fmt.Printf("Plan generation enabled (model %s)\n", gemini.Model())
		}
	} else {
		fmt.Println("Plan generation disabled (set GEMINI_API_KEY to enable)")
	}

	pm, err := metrics.NewPlayerMetrics()
	if err != nil {
		fmt.Printf("Failed to initialize metrics: %v\n", err)
		os.Exit(1)
	}

	players := session.NewManager(session.Options{
		MaxPlayers: cfg.Playback.MaxPlayers,
		Observers:  []playback.Observer{pm.Observe},
		OnClose: func(p *session.Player) {
			pm.RecordPlayerClosed(context.Background())
		},
	})
	defer players.Shutdown()

	// Start background player cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				players.CleanupOldSessions(cfg.PlayerTimeout())
			}
		}
	}()

	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	api.ExposeErrorDetails = Version == "dev"
	api.SetupMiddleware(e, cfg.Advanced.EnableRequestLogging)

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	handlers := api.NewHandlers(&api.Dependencies{
		Store:                   store,
		Generations:             generations,
		Players:                 players,
		Library:                 lib,
		Generator:               gen,
		Metrics:                 pm,
		Version:                 Version,
		NarrationByDefault:      cfg.Playback.NarrationByDefault,
		WebSocketMaxMessageSize: int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
	})
	api.RegisterRoutes(e, handlers)

	// Register embedded player page if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded player from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	generation := "disabled"
	if gen != nil {
		generation = cfg.Generation.Model
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Code Animator Server                            ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Storage:    %-45s║\n", cfg.Storage.Backend)
	fmt.Printf("║  Generator:  %-45s║\n", generation)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Server error: %v\n", err)
			stop()
		}
	}()

	<-ctx.Done()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}
}

// openStore selects the plan store named by the configuration. Only the
// DuckDB backend keeps a generation log.
func openStore(cfg *config.AnimatorConfig) (storage.Store, storage.GenerationLog, func(), error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "files":
		store, err := storage.NewLocalStore(cfg.Storage.PlansDirectory)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() {}, nil
	case "", "duckdb":
		store, err := storage.NewDuckStoreWithOptions(
			filepath.Join(cfg.GetDataDir(), "plans.duckdb"),
			storage.DuckOptions{
				Threads:     cfg.Advanced.DuckDBThreads,
				MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
			},
		)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() {
			if err := store.Close(); err != nil {
				fmt.Printf("Failed to close plan database: %v\n", err)
			}
		}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
