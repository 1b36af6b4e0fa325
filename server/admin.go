package server

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"goa.design/clue/log"

	"github.com/unidatahq/udc/features/cache"
	"github.com/unidatahq/udc/features/keys"
	"github.com/unidatahq/udc/features/webhook"
	"github.com/unidatahq/udc/runtime/assistant"
	"github.com/unidatahq/udc/runtime/connector"
)

type createProviderKeyRequest struct {
	Provider string `json:"provider"`
	Label    string `json:"label"`
	Key      string `json:"key"`
}

// handleCreateProviderKey serves POST /keys/provider.
func (s *Server) handleCreateProviderKey(c *fiber.Ctx) error {
	var req createProviderKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "malformed request body", err.Error())
	}
	if _, err := assistant.ParseProvider(req.Provider); err != nil {
		return validationError(c, "unsupported provider", req.Provider)
	}
	if req.Key == "" {
		return validationError(c, "key is required", nil)
	}
	key, err := s.keys.CreateProviderKey(c.UserContext(), req.Provider, req.Label, req.Key)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(key)
}

// handleListProviderKeys serves GET /keys/provider. Secrets are masked.
func (s *Server) handleListProviderKeys(c *fiber.Ctx) error {
	list, err := s.keys.ListProviderKeys(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if list == nil {
		list = []keys.ProviderKey{}
	}
	return c.JSON(fiber.Map{"keys": list})
}

// handleRevokeProviderKey serves DELETE /keys/provider/:id.
func (s *Server) handleRevokeProviderKey(c *fiber.Ctx) error {
	err := s.keys.RevokeProviderKey(c.UserContext(), c.Params("id"))
	if errors.Is(err, keys.ErrNotFound) {
		return notFoundError(c, "provider key not found")
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type createClientKeyRequest struct {
	Label string `json:"label"`
}

// handleCreateClientKey serves POST /keys/client. The response carries the
// cleartext secret exactly once.
func (s *Server) handleCreateClientKey(c *fiber.Ctx) error {
	var req createClientKeyRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return validationError(c, "malformed request body", err.Error())
	}
	key, err := s.keys.CreateClientKey(c.UserContext(), req.Label)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(key)
}

// handleRevokeClientKey serves DELETE /keys/client/:id.
func (s *Server) handleRevokeClientKey(c *fiber.Ctx) error {
	err := s.keys.RevokeClientKey(c.UserContext(), c.Params("id"))
	if errors.Is(err, keys.ErrNotFound) {
		return notFoundError(c, "client key not found")
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type webhookRequest struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// handleWebhook serves POST /webhooks/:source. Records the event and drops
// cached responses that may now be stale.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	source, err := connector.ParseSource(c.Params("source"))
	if err != nil {
		return writeError(c, err)
	}
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return validationError(c, "malformed request body", err.Error())
	}
	ctx := c.UserContext()
	event, err := s.webhooks.Record(ctx, string(source), req.EventType, req.Payload)
	if err != nil {
		return writeError(c, err)
	}
	s.cache.InvalidatePrefix(ctx, cache.DataPrefix)
	s.cache.InvalidatePrefix(ctx, cache.AssistantPrefix)
	log.Printf(ctx, "webhook recorded source=%s type=%s id=%s", source, req.EventType, event.ID)
	return c.Status(fiber.StatusAccepted).JSON(event)
}

// handleWebhookEvents serves GET /webhooks/events.
func (s *Server) handleWebhookEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	events, err := s.webhooks.List(c.UserContext(), limit)
	if err != nil {
		return writeError(c, err)
	}
	if events == nil {
		events = []webhook.Event{}
	}
	return c.JSON(fiber.Map{"events": events})
}
