package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"github.com/entrypath/focustime/internal/calendar"
	"github.com/entrypath/focustime/internal/config"
	"github.com/entrypath/focustime/internal/database"
	"github.com/entrypath/focustime/internal/handlers"
	"github.com/entrypath/focustime/internal/logging"
	"github.com/entrypath/focustime/internal/metrics"
	appSignals "github.com/entrypath/focustime/internal/signals"
	"github.com/entrypath/focustime/internal/suggest"
	syncengine "github.com/entrypath/focustime/internal/sync"
	"github.com/entrypath/focustime/internal/token"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	isDev := os.Getenv("ENV") != "production"
	logging.Initialize(isDev)

	logger := logging.GetLogger("main")
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", date).
		Msg("Starting FocusTime calendar engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Received signal, initiating shutdown")
		cancel()
	}()

	if err := run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Application run failed")
	}
}

func run(ctx context.Context) error {
	logger := logging.GetLogger("main")

	configPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Str("config_path", configPath).Msg("Failed to load configuration")
		return err
	}
	logging.SetLogLevel(cfg.App.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.Error().Err(err).Str("path", filepath.Dir(cfg.Database.Path)).Msg("Failed to create data directory")
		return err
	}

	db, err := database.New(database.NewDefaultOptions(cfg.Database.Path))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateDatabase(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	credentials, err := database.NewCredentialStore(db)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}
	targets, err := database.NewCalendarTargetStore(db)
	if err != nil {
		return fmt.Errorf("failed to initialize calendar target store: %w", err)
	}

	oauthConf := cfg.OAuthConfig()
	tokenManager := token.NewManager(credentials, oauthConf, cfg.Token.RefreshSkew)

	var gatewayOpts []option.ClientOption
	if cfg.Google.CalendarEndpoint != "" {
		gatewayOpts = append(gatewayOpts, option.WithEndpoint(cfg.Google.CalendarEndpoint))
	}
	gateway := calendar.NewGoogleGateway(gatewayOpts...)

	engine := syncengine.NewEngine(gateway)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	dayStart, err := config.ParseClock(cfg.Suggest.DayStart)
	if err != nil {
		return err
	}
	dayEnd, err := config.ParseClock(cfg.Suggest.DayEnd)
	if err != nil {
		return err
	}
	suggestDefaults := suggest.Options{
		MinDuration:    cfg.Suggest.MinBlock,
		MaxSuggestions: cfg.Suggest.MaxSuggestions,
		WindowStart:    dayStart,
		WindowEnd:      dayEnd,
		Location:       loc,
	}

	baseHandler := handlers.NewBaseHandler(tokenManager, targets, gateway)
	handlers.NewOAuthHandler(baseHandler, oauthConf).RegisterRoutes()
	handlers.NewCalendarHandler(baseHandler).RegisterRoutes()
	handlers.NewEventsHandler(baseHandler).RegisterRoutes()
	handlers.NewSuggestionsHandler(baseHandler, suggestDefaults).RegisterRoutes()
	handlers.NewSyncHandler(baseHandler, engine).RegisterRoutes()

	http.Handle("/metrics", metrics.Handler())
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	appSignals.OnCredentialLinked(func(ctx context.Context, data appSignals.CredentialLinkedData) {
		signalLogger := logging.GetLogger("signal-credential-linked")
		if data.Success {
			signalLogger.Info().Str("user_id", data.UserID).Msg("Calendar account linked")
		} else {
			signalLogger.Warn().Str("user_id", data.UserID).Msg("Calendar account linking failed")
		}
	}, "main-credential-linked-handler")

	appSignals.OnCalendarSelected(func(ctx context.Context, data appSignals.CalendarSelectedData) {
		signalLogger := logging.GetLogger("signal-calendar-selected")
		signalLogger.Info().Str("user_id", data.UserID).Str("calendar_id", data.CalendarID).Msg("Target calendar selected")
	}, "main-calendar-selected-handler")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server error")
		return err
	case <-ctx.Done():
		logger.Info().Msg("Context cancelled, shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			return err
		}
		logger.Info().Msg("Shutdown complete")
		return nil
	}
}
