package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/classifier"
	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/dispatch"
	"telegram-lead-scanner-go/internal/handlers"
	"telegram-lead-scanner-go/internal/metrics"
	"telegram-lead-scanner-go/internal/models"
	"telegram-lead-scanner-go/internal/scanner"
	"telegram-lead-scanner-go/internal/server"
	"telegram-lead-scanner-go/internal/settings"
	"telegram-lead-scanner-go/internal/sheets"
	"telegram-lead-scanner-go/internal/source"
	"telegram-lead-scanner-go/internal/store"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Telegram Lead Scanner")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m := metrics.NewMetrics()
	settingsStore := settings.NewStore(cfg.Settings.FilePath)
	mirror := sheets.NewMirror(&cfg.Sheets)

	// Bring the sheet mirror up from persisted settings when a past run
	// configured it, falling back to env credentials.
	if creds, ok := startupCredentials(settingsStore, cfg); ok {
		if err := mirror.Initialize(creds); err != nil {
			logrus.Warnf("Sheets client unavailable at startup: %v", err)
		}
	}

	spreadsheetID := func() string {
		if id := settingsStore.Load().SpreadsheetID; id != "" {
			return id
		}
		return cfg.Sheets.SpreadsheetID
	}

	leadStore := store.NewLeadStore(mirror, spreadsheetID)
	cls := classifier.New(&cfg.OpenRouter)
	factory := source.NewFactory(&cfg.Gateway)

	sc := scanner.NewScanner(&cfg.Scanner, factory, mirror, cls, settingsStore, leadStore, m)

	resolver := dispatch.NewResolver(mirror, settingsStore.Load, cfg.Telegram, spreadsheetID)
	disp := dispatch.NewDispatcher(&cfg.Dispatch, leadStore, mirror, resolver, dispatch.NewTelegramNotifier(), m, spreadsheetID)

	h := handlers.NewHandlers(sc, disp, leadStore, settingsStore, m)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// The dispatch cron runs from boot; scanning starts via the API.
	if err := disp.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sc.Status().IsRunning {
		if err := sc.Stop(); err != nil {
			logrus.Errorf("Failed to stop scanner: %v", err)
		}
	}
	sc.Wait()

	if err := disp.Stop(); err != nil {
		logrus.Errorf("Failed to stop dispatcher: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}

func startupCredentials(settingsStore *settings.Store, cfg *config.Config) (models.SheetsCredentials, bool) {
	persisted := settingsStore.Load()
	if persisted.SheetsConfig != nil {
		return *persisted.SheetsConfig, true
	}
	if cfg.Sheets.ServiceAccountEmail != "" && cfg.Sheets.PrivateKey != "" {
		return models.SheetsCredentials{
			ServiceAccountEmail: cfg.Sheets.ServiceAccountEmail,
			PrivateKey:          cfg.Sheets.PrivateKey,
		}, true
	}
	return models.SheetsCredentials{}, false
}
