package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"goa.design/clue/log"

	"github.com/unidatahq/udc/features/cache"
	"github.com/unidatahq/udc/features/export"
	"github.com/unidatahq/udc/runtime/assistant"
	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
	"github.com/unidatahq/udc/runtime/rules"
)

// handleData serves GET /data/:source, the unified query endpoint.
func (s *Server) handleData(c *fiber.Ctx) error {
	source, err := connector.ParseSource(c.Params("source"))
	if err != nil {
		return writeError(c, err)
	}
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return validationError(c, err.Error(), nil)
	}

	ctx := c.UserContext()
	key := cache.Key(cache.DataPrefix, struct {
		Source   connector.Source `json:"source"`
		Criteria query.Criteria   `json:"criteria"`
	}{source, criteria})
	if raw, ok := s.cache.Get(ctx, key); ok {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(raw)
	}

	result, err := s.data.GetUnifiedData(ctx, source, criteria)
	if err != nil {
		return writeError(c, err)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return writeError(c, err)
	}
	s.cache.Set(ctx, key, raw, s.cfg.Cache.DataTTL.Duration())
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

// handleAssistant serves POST /assistant/query.
func (s *Server) handleAssistant(c *fiber.Ctx) error {
	var req assistant.TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "malformed request body", err.Error())
	}

	ctx := c.UserContext()
	// Answers are cached on the turn shape only; credentials never enter
	// the cache key, and turns carrying an explicit key bypass the cache.
	cacheable := req.APIKey == ""
	key := cache.Key(cache.AssistantPrefix, struct {
		Provider    assistant.Provider `json:"provider"`
		UserQuery   string             `json:"user_query"`
		Model       string             `json:"model"`
		Temperature float32            `json:"temperature"`
	}{req.Provider, req.UserQuery, req.Model, req.Temperature})
	if cacheable {
		if raw, ok := s.cache.Get(ctx, key); ok {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(raw)
		}
	}

	resp, err := s.assistant.Run(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return writeError(c, err)
	}
	if cacheable {
		s.cache.Set(ctx, key, raw, s.cfg.Cache.AssistantTTL.Duration())
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

// handleExport serves GET /export/:source: the filtered dataset as a CSV or
// XLSX download, bypassing pagination, capping, and summarization.
func (s *Server) handleExport(c *fiber.Ctx) error {
	source, err := connector.ParseSource(c.Params("source"))
	if err != nil {
		return writeError(c, err)
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return validationError(c, err.Error(), nil)
	}
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return validationError(c, err.Error(), nil)
	}

	ctx := c.UserContext()
	records, err := s.store.Fetch(ctx, source)
	if err != nil {
		return writeError(c, err)
	}
	filtered := rules.SortNewestFirst(rules.Apply(records, rules.Filters{
		TicketID:   criteria.TicketID,
		CustomerID: criteria.CustomerID,
		Status:     criteria.Status,
		Priority:   criteria.Priority,
		Metric:     criteria.Metric,
		StartDate:  criteria.StartDate,
		EndDate:    criteria.EndDate,
	}))

	var buf bytes.Buffer
	switch format {
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, string(source), filtered)
	default:
		err = export.WriteCSV(&buf, filtered)
	}
	if err != nil {
		return writeError(c, err)
	}
	log.Printf(ctx, "export source=%s format=%s rows=%d", source, format, len(filtered))
	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s.%s", source, format))
	return c.Send(buf.Bytes())
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleReadyz reports readiness: every source must be fetchable.
func (s *Server) handleReadyz(c *fiber.Ctx) error {
	ctx := c.UserContext()
	for _, source := range connector.Sources() {
		if _, err := s.store.Fetch(ctx, source); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"source": string(source),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// criteriaFromQuery builds query criteria from URL query parameters.
func criteriaFromQuery(c *fiber.Ctx) (query.Criteria, error) {
	criteria := query.Criteria{
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Metric:    c.Query("metric"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	for name, dst := range map[string]*int{
		"page":        &criteria.Page,
		"page_size":   &criteria.PageSize,
		"ticket_id":   &criteria.TicketID,
		"customer_id": &criteria.CustomerID,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return query.Criteria{}, fmt.Errorf("%s must be an integer", name)
		}
		*dst = n
	}
	return criteria, nil
}
