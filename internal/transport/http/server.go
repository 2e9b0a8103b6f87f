package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/auth"
	"github.com/vovakirdan/singroom-server/internal/config"
	"github.com/vovakirdan/singroom-server/internal/core"
	"github.com/vovakirdan/singroom-server/internal/session"
)

// NewServer builds the HTTP server serving the REST API and the WebSocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, sessions *session.Registry, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, authService, sessions, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter serves /ws directly and everything else through a gin engine.
// The WebSocket handler hijacks the connection, so it must not run under gin.
func NewRouter(hub *core.Hub, authService *auth.Service, sessions *session.Registry, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, sessions, cfg, logger))
	mux.Handle("/", newEngine(hub, authService, sessions, logger))
	return mux
}

func newEngine(hub *core.Hub, authService *auth.Service, sessions *session.Registry, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := NewAPIHandlers(authService, hub, logger)
	public := router.Group("/api")
	public.POST("/register", api.Register)
	public.POST("/login", api.Login)
	public.POST("/guest", api.GuestLogin)

	authed := router.Group("/api", AuthMiddleware(sessions, logger))
	authed.POST("/logout", api.Logout)
	authed.GET("/me", api.Me)
	authed.GET("/rooms/:room/turn", api.Turn)
	authed.GET("/rooms/:room/members", api.Members)

	return router
}
