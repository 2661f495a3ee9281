package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"event-ingest-service/internal/domain/event"
	"event-ingest-service/internal/repository"
)

// Processor runs one report through the decision pipeline.
type Processor interface {
	Process(ctx context.Context, rpt *event.Report) (string, error)
}

// EventFinder serves the query API over persisted events.
type EventFinder interface {
	FindEvents(ctx context.Context, q repository.EventQuery) ([]repository.Event, error)
}

type Handler struct {
	pipeline Processor
	events   EventFinder
	log      zerolog.Logger
}

func NewHandler(pipeline Processor, events EventFinder, log zerolog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		events:   events,
		log:      log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Box-facing endpoints
	public := r.Group("/api/v1")
	{
		public.POST("/box/report", h.postBoxReport)
	}

	// Operator endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/events", h.listEvents)
	}
}

// Envelope is the uniform response body. Handled outcomes, including
// filtered, duplicate and validation-failed reports, answer with code 0;
// only unexpected failures use code 500.
type Envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func okResponse(data any) Envelope {
	return Envelope{Code: 0, Data: data, Message: "ok"}
}

func okMessage(msg string) Envelope {
	return Envelope{Code: 0, Message: msg}
}

func errorResponse(code int, msg string) Envelope {
	return Envelope{Code: code, Message: msg}
}

func (h *Handler) postBoxReport(c *gin.Context) {
	var rpt event.Report
	if err := c.ShouldBindJSON(&rpt); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(400, "invalid request body: "+err.Error()))
		return
	}

	msg, err := h.pipeline.Process(c.Request.Context(), &rpt)
	if err != nil {
		h.log.Error().Err(err).
			Str("engine_event_id", rpt.EngineEventID).
			Msg("box report processing failed")
		c.JSON(http.StatusInternalServerError, errorResponse(500, err.Error()))
		return
	}

	c.JSON(http.StatusOK, okMessage(msg))
}

func (h *Handler) listEvents(c *gin.Context) {
	var q repository.EventQuery

	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		q.PlateNumber = &plate
	}
	if eventType := strings.TrimSpace(c.Query("eventType")); eventType != "" {
		q.EventType = &eventType
	}
	if marking := strings.TrimSpace(c.Query("marking")); marking != "" {
		q.Marking = &marking
	}
	if from := strings.TrimSpace(c.Query("from")); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(400, "invalid from time format"))
			return
		}
		q.From = &t
	}
	if to := strings.TrimSpace(c.Query("to")); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(400, "invalid to time format"))
			return
		}
		q.To = &t
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			q.Offset = parsed
		}
	}

	events, err := h.events.FindEvents(c.Request.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to find events")
		c.JSON(http.StatusInternalServerError, errorResponse(500, "internal error"))
		return
	}

	c.JSON(http.StatusOK, okResponse(events))
}
