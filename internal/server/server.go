// Package server exposes the deedscout HTTP API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/biddeed/deedscout/config"
	"github.com/biddeed/deedscout/internal/acquire"
	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/relay"
	"github.com/biddeed/deedscout/internal/routing"
	"github.com/biddeed/deedscout/internal/scrape"
	"github.com/biddeed/deedscout/internal/session"
	"github.com/biddeed/deedscout/internal/store"
	"github.com/biddeed/deedscout/internal/telemetry"
	"github.com/biddeed/deedscout/models"
	"github.com/biddeed/deedscout/provider"
)

// HistoryCache holds recent conversation turns per session. Satisfied by
// session.Cache; nil means no cache and the handlers degrade to
// Postgres-only histories.
type HistoryCache interface {
	Recent(ctx context.Context, sessionID string) ([]models.ChatTurn, error)
	Append(ctx context.Context, sessionID string, turn models.ChatTurn) error
}

// Server wires the handlers to their collaborators. Fields are set once at
// startup; handlers only read them.
type Server struct {
	Registry   *routing.Registry
	SourceURLs map[string]string
	Executor   *acquire.Executor
	Relay      *relay.Relay
	Provider   provider.Provider
	Store      *store.Store
	Cache      HistoryCache
	Logger     *log.Logger
}

// NewFromConfig builds every collaborator from the config. Used by both the
// serve and discover commands.
func NewFromConfig(cfg *config.Config) (*Server, error) {
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)

	registry, err := routing.NewRegistry(cfg.Sources.Descriptors())
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Storage.Postgres.DSN)
	if err != nil {
		return nil, err
	}

	var cache *session.Cache
	if cfg.Storage.Redis.Addr != "" {
		cache = session.NewCache(cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB, cfg.Storage.Redis.MaxTurns, cfg.Storage.Redis.TTL)
		if err := cache.Ping(ctx); err != nil {
			logger.Printf("redis unavailable, session cache disabled: %v", err)
			cache = nil
		}
	}

	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), provider.Options{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Timeout:        cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	scraper, err := scrape.New(scrape.Type(cfg.Scrape.Backend), scrape.Options{
		APIKey:   cfg.Scrape.APIKey,
		BaseURL:  cfg.Scrape.BaseURL,
		Timeout:  cfg.Scrape.Timeout,
		MaxChars: cfg.Scrape.MaxChars,
	})
	if err != nil {
		return nil, err
	}

	tele := telemetry.New(prometheus.DefaultRegisterer)
	timeout := cfg.General.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	direct := acquire.NewDirectClient(cfg.Sources.DirectAPIBaseURL, cfg.Sources.DirectAPIToken, timeout)
	fetcher := acquire.NewSimpleFetcher(timeout, cfg.Scrape.MaxChars)

	srv := &Server{
		Registry:   registry,
		SourceURLs: cfg.Sources.URLs(),
		Executor:   acquire.NewExecutor(direct, fetcher, scraper, tele, timeout),
		Relay:      relay.New(llm, tele),
		Provider:   llm,
		Store:      st,
		Logger:     logger,
	}
	// Assign only a live cache: a nil *session.Cache inside the interface
	// would read as non-nil to the handlers.
	if cache != nil {
		srv.Cache = cache
	}
	return srv, nil
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/discover", s.handleDiscover)
	api.GET("/cases", s.handleListCases)
	api.POST("/cases/similar", s.handleSimilarCases)
}

func newEcho(logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		} else if kind := fault.KindOf(err); kind != "" {
			code = statusFor(kind)
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"success": false, "error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}))
	return e
}

// statusFor maps a fault kind to its HTTP status.
func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindTimeout:
		return http.StatusGatewayTimeout
	case fault.KindUpstream, fault.KindParse, fault.KindExtraction:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope for a handler-level failure.
func fail(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	if kind := fault.KindOf(err); kind != "" {
		code = statusFor(kind)
	}
	return c.JSON(code, map[string]interface{}{"success": false, "error": err.Error()})
}

// Run migrates the database, wires the collaborators and serves until the
// listener fails.
func Run(cfg *config.Config) error {
	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN, "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	s, err := NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer s.Store.Close()

	e := newEcho(s.Logger)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
	s.Register(e)

	return e.Start(cfg.Server.Address)
}
