package httpserver

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chadiek/voicechat/internal/archive"
	"github.com/chadiek/voicechat/internal/config"
	"github.com/chadiek/voicechat/internal/engine"
)

// Server bundles the HTTP router and shared dependencies.
type Server struct {
	Router http.Handler

	cfg    config.Config
	engine engine.Engine
	store  archive.Store
}

// New constructs the HTTP server with routes.
func New(cfg config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		Router: e,
		cfg:    cfg,
		engine: newEngine(cfg),
		store:  newStore(cfg),
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.Match([]string{http.MethodPost, http.MethodOptions}, "/chat", s.handleChat, permissiveCORS)
	e.GET("/voice", s.handleVoice)

	return s
}

// newEngine selects the response engine from configuration.
func newEngine(cfg config.Config) engine.Engine {
	if cfg.Engine == "local" {
		return engine.NewLocal()
	}
	var opts []engine.Option
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, engine.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return engine.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModelID, opts...)
}

// newStore selects the transcript store from configuration.
func newStore(cfg config.Config) archive.Store {
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		return archive.Nop{}
	}
	st, err := archive.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.SupabaseBucket)
	if err != nil {
		log.Printf("transcript archive disabled: %v", err)
		return archive.Nop{}
	}
	return st
}

// permissiveCORS allows any origin and answers preflight requests directly
// with 200 and a plain body.
func permissiveCORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, "*")
		h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
		h.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
		if c.Request().Method == http.MethodOptions {
			return c.String(http.StatusOK, "ok")
		}
		return next(c)
	}
}
