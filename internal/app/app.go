package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/singroom-server/internal/auth"
	"github.com/vovakirdan/singroom-server/internal/completion"
	"github.com/vovakirdan/singroom-server/internal/config"
	"github.com/vovakirdan/singroom-server/internal/core"
	applog "github.com/vovakirdan/singroom-server/internal/log"
	"github.com/vovakirdan/singroom-server/internal/media/livekit"
	"github.com/vovakirdan/singroom-server/internal/session"
	"github.com/vovakirdan/singroom-server/internal/store"
	"github.com/vovakirdan/singroom-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/singroom-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.SessionTTL,
	}
	sessions := session.NewRegistry(jwtConfig, applog.Component(logger, "session"))
	authService := auth.NewService(st, sessions, applog.Component(logger, "auth"))

	hub := core.NewHub(st, hubOptions(cfg, sessions, logger))
	server := transporthttp.NewServer(hub, authService, sessions, cfg, applog.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func hubOptions(cfg *config.Config, sessions *session.Registry, logger *zerolog.Logger) core.Options {
	opts := core.DefaultOptions()
	opts.Logger = applog.Component(logger, "hub")
	opts.Sessions = sessions
	opts.TopTier = cfg.Privilege.TopTier
	opts.ModeratorLevel = cfg.Privilege.Moderator
	opts.ScoringWindow = cfg.Turn.ScoringWindow
	opts.ContextSize = cfg.Turn.ContextWindow
	opts.PersonasEnabled = cfg.Personas.Enabled
	opts.PersonaMinInterval = cfg.Personas.MinInterval
	opts.PersonaMaxInterval = cfg.Personas.MaxInterval
	opts.Personas = cfg.Personas.Catalog
	opts.CompletionTimeout = cfg.Completion.Timeout

	fallback := cfg.Completion.Fallback
	if fallback == "" {
		fallback = completion.DefaultFallback
	}
	opts.FallbackUtterance = fallback

	if cfg.Completion.URL == "" {
		logger.Warn().Msg("completion.url not set, personas will answer with the fallback utterance")
	}
	opts.Completer = completion.New(completion.Config{
		URL:         cfg.Completion.URL,
		Model:       cfg.Completion.Model,
		Timeout:     cfg.Completion.Timeout,
		Temperature: cfg.Completion.Temperature,
		Fallback:    fallback,
	}, applog.Component(logger, "completion"))

	if cfg.LiveKit.Enabled {
		opts.Media = livekit.New(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.URL, cfg.LiveKit.TokenTTL)
		logger.Info().Str("url", cfg.LiveKit.URL).Msg("livekit media enabled")
	}
	return opts
}

// Run starts the hub and the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)
	// WebSocket handlers observe shutdown through their request context.
	a.server.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
