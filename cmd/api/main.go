package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ideasportal/api/internal/app"
	"ideasportal/api/internal/config"
	"ideasportal/api/internal/email"
	"ideasportal/api/internal/erp"
	"ideasportal/api/internal/media"
	"ideasportal/api/internal/search"
	"ideasportal/api/internal/session"
	"ideasportal/api/internal/store"
	"ideasportal/api/internal/zoho"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "ideasportal-api").Logger()
	log.Logger = logger

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)

	sessions, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer sessions.Close()

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)

	var mediaStore *media.Store
	if cfg.MinioAccessKey != "" {
		mediaStore, err = media.NewStore(ctx, media.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("object storage connection failed")
		}
	} else {
		logger.Warn().Msg("object storage not configured, uploads disabled")
	}

	oauthClient := zoho.NewClient(zoho.Config{
		AccountsURL:  cfg.ZohoAccountsURL,
		ClientID:     cfg.ZohoClientID,
		ClientSecret: cfg.ZohoClientSecret,
		RedirectURI:  cfg.ZohoRedirectURI,
	})

	erpClient := erp.NewClient(erp.Config{
		RestURL:     cfg.ERPRestURL,
		Username:    cfg.ERPUsername,
		AccessToken: cfg.ERPAccessToken,
	})

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mailer.IsConfigured() {
		logger.Warn().Msg("smtp not configured, notifications recorded but not delivered")
	}

	service := app.NewService(dataStore, sessions, oauthClient, erpClient,
		mediaUpload(mediaStore), searchService, mailer, cfg.DashboardURL, logger)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.DashboardURL, cfg.SessionTTL, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("ideas portal api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

// mediaUpload keeps a nil *media.Store from becoming a non-nil interface
// inside the service, which would defeat its configured-or-not check.
func mediaUpload(s *media.Store) app.MediaStore {
	if s == nil {
		return nil
	}
	return s
}
