// Package server is the Fiber HTTP facade over the unified query pipeline,
// the assistant orchestrator, and their collaborator features.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/unidatahq/udc/config"
	"github.com/unidatahq/udc/features/cache"
	"github.com/unidatahq/udc/features/keys"
	"github.com/unidatahq/udc/features/ratelimit"
	"github.com/unidatahq/udc/features/webhook"
	"github.com/unidatahq/udc/runtime/assistant"
	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
)

// Deps carries the services the HTTP layer exposes.
type Deps struct {
	Store     connector.Store
	Data      *query.Service
	Assistant *assistant.Service
	Keys      *keys.Store
	Cache     *cache.Cache
	Limiter   *ratelimit.Limiter
	Webhooks  *webhook.Log
}

// Server wires the handlers onto a Fiber app.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	store     connector.Store
	data      *query.Service
	assistant *assistant.Service
	keys      *keys.Store
	cache     *cache.Cache
	limiter   *ratelimit.Limiter
	webhooks  *webhook.Log
}

// New builds the server and registers every route.
func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		store:     deps.Store,
		data:      deps.Data,
		assistant: deps.Assistant,
		keys:      deps.Keys,
		cache:     deps.Cache,
		limiter:   deps.Limiter,
		webhooks:  deps.Webhooks,
	}
	app := fiber.New(fiber.Config{
		AppName:      "universal-data-connector",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	})
	app.Use(recover.New())
	app.Use(s.logRequests)

	app.Get("/healthz", s.handleHealthz)
	app.Get("/readyz", s.handleReadyz)

	api := app.Group("/", s.requireAPIKey)
	api.Get("/data/:source", s.rateLimit("data"), s.handleData)
	api.Post("/assistant/query", s.rateLimit("assistant"), s.handleAssistant)
	api.Get("/export/:source", s.rateLimit("export"), s.handleExport)

	api.Post("/keys/provider", s.handleCreateProviderKey)
	api.Get("/keys/provider", s.handleListProviderKeys)
	api.Delete("/keys/provider/:id", s.handleRevokeProviderKey)
	api.Post("/keys/client", s.handleCreateClientKey)
	api.Delete("/keys/client/:id", s.handleRevokeClientKey)

	api.Post("/webhooks/:source", s.handleWebhook)
	api.Get("/webhooks/events", s.handleWebhookEvents)

	s.app = app
	return s
}

// App exposes the Fiber app, mainly for tests via app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
