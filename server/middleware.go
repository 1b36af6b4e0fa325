package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"goa.design/clue/log"
)

const clientIDKey = "client_id"

// requireAPIKey validates the X-API-Key header against the client key store
// and stashes the key id for rate-limit attribution. Disabled deployments
// attribute requests to their IP instead.
func (s *Server) requireAPIKey(c *fiber.Ctx) error {
	if !s.cfg.HTTP.RequireAPIKey {
		c.Locals(clientIDKey, c.IP())
		return c.Next()
	}
	secret := c.Get("X-API-Key")
	if secret == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: errorDetail{
			Code:    codeInvalidAPIKey,
			Message: "missing X-API-Key header",
		}})
	}
	id, err := s.keys.ValidateClientKey(c.UserContext(), secret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: errorDetail{
			Code:    codeInvalidAPIKey,
			Message: "invalid API key",
		}})
	}
	c.Locals(clientIDKey, id)
	return c.Next()
}

// rateLimit enforces the per-(scope, client) request budget. scope is the
// logical resource, typically the source path parameter.
func (s *Server) rateLimit(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := scope
		if source := c.Params("source"); source != "" {
			key = scope + ":" + source
		}
		if client, ok := c.Locals(clientIDKey).(string); ok {
			key += ":" + client
		}
		ok, retryAfter := s.limiter.Allow(key)
		if !ok {
			log.Printf(c.UserContext(), "rate limited key=%s retry_after=%d", key, retryAfter)
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{Error: errorDetail{
				Code:    codeRateLimited,
				Message: "rate limit exceeded",
				Details: fiber.Map{"retry_after_seconds": retryAfter},
			}})
		}
		return c.Next()
	}
}

// logRequests is a minimal structured access log.
func (s *Server) logRequests(c *fiber.Ctx) error {
	err := c.Next()
	log.Print(c.UserContext(),
		log.KV{K: "method", V: c.Method()},
		log.KV{K: "path", V: c.Path()},
		log.KV{K: "status", V: c.Response().StatusCode()},
	)
	return err
}
