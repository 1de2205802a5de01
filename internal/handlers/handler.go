// Package handlers exposes the order workflow engine over HTTP.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-painting-orderflow/internal/events"
	"github.com/imrishuroy/go-painting-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-painting-orderflow/internal/metrics"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
	"github.com/imrishuroy/go-painting-orderflow/internal/validation"
	"github.com/imrishuroy/go-painting-orderflow/internal/views"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Actor headers set by the authenticating proxy in front of the API.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderRequestID = "X-Request-Id"
)

// DeliveryStore remembers processed webhook deliveries.
type DeliveryStore interface {
	Claim(ctx context.Context, key, topic string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.DeliveryRecord, error)
	MarkDone(ctx context.Context, key string, orderIDs []string, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	Engine     *orders.Engine
	Repository orders.Repository
	Deliveries DeliveryStore // optional; webhooks are not deduplicated without it
	Publisher  events.Publisher
	Metrics    metrics.Recorder
	Filter     *views.Filter
	Logger     *slog.Logger

	ShopifyStore  string // used for admin deep links
	WebhookSecret string // empty disables signature checks

	Now func() time.Time
}

// Handler serves the order routes.
type Handler struct {
	cfg      HandlerConfig
	validate *validatorv10.Validate
	log      *slog.Logger
}

// New fills in defaults for every optional dependency.
func New(cfg HandlerConfig) *Handler {
	if cfg.Engine == nil {
		cfg.Engine = orders.NewEngine()
	}
	if cfg.Repository == nil {
		cfg.Repository = orders.NewMemoryStore()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Discard{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Filter == nil {
		cfg.Filter = views.NewFilter(cfg.Engine.Registry(), views.PolicyAllow)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		cfg:      cfg,
		validate: validation.NewWithRegistry(cfg.Engine.Registry()),
		log:      cfg.Logger,
	}
}

// RegisterOrdersRoutes registers routes for the order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) *Handler {
	h := New(cfg)
	r.Use(h.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/statuses", h.listStatuses)
	r.GET("/stats", h.stats)

	o := r.Group("/orders")
	o.GET("", h.listOrders)
	o.GET("/:id", h.getOrder)
	o.POST("/:id/transitions", h.transition)
	o.POST("/:id/assign-paintable", h.assignPaintable)
	o.PUT("/:id/items/:itemId/assignment", h.assignArtist)
	o.POST("/:id/items/:itemId/addon", h.addOn)
	o.PUT("/:id/items/:itemId/status", h.itemStatus)

	r.POST("/webhooks/orders", h.webhook)
	return h
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(HeaderRequestID, reqID)
		c.Next()
		h.log.Info("request",
			"action", "http",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func actorFrom(c *gin.Context) views.Actor {
	return views.Actor{ID: c.GetHeader(HeaderActorID), Role: views.Role(c.GetHeader(HeaderActorRole))}
}

// maxSaveAttempts bounds how often a change is re-applied on top of a
// snapshot another process saved first.
const maxSaveAttempts = 3

// mutation is one engine operation together with what gets published for it.
type mutation struct {
	kind    events.Kind
	orderID string
	actor   string
	notes   string
	// apply runs the operation against the working set.
	apply func() (model.Order, error)
	// replayable operations converge when applied twice, so they are re-run
	// after every stale save. Other operations are recognized in the stored
	// snapshot by the history record they appended.
	replayable bool
}

// run applies m and persists the result. When the store already holds a
// version this working set has not seen, the stored snapshot replaces the
// working copy and the operation runs again on top of it. Unchanged orders
// are neither saved nor published.
func (h *Handler) run(ctx context.Context, m mutation) (model.Order, error) {
	var before int64
	if cur, err := h.cfg.Engine.Get(m.orderID); err == nil {
		before = cur.Version
	}
	o, err := m.apply()
	if err != nil {
		return model.Order{}, err
	}
	if o.Version == before {
		return o, nil
	}
	for attempt := 1; ; attempt++ {
		err := h.cfg.Repository.Save(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, orders.ErrStaleSnapshot) {
			return model.Order{}, fmt.Errorf("persist order %s: %w", o.OrderID, err)
		}
		stored, err := h.cfg.Repository.Get(ctx, m.orderID)
		if err != nil {
			return model.Order{}, fmt.Errorf("reload order %s: %w", m.orderID, err)
		}
		if !m.replayable && carries(stored, o) {
			// a later save from this working set already holds the change
			break
		}
		if err := h.cfg.Engine.Replace(stored); err != nil {
			return model.Order{}, fmt.Errorf("reload order %s: %w", m.orderID, err)
		}
		if attempt == maxSaveAttempts {
			return model.Order{}, &orders.OrderError{OrderID: m.orderID, Err: orders.ErrConcurrentUpdate}
		}
		h.log.Warn("stored snapshot is newer, re-applying", "action", "persist", "order_id", m.orderID,
			"version", o.Version, "stored_version", stored.Version)
		if o, err = m.apply(); err != nil {
			return model.Order{}, err
		}
		if o.Version == stored.Version {
			// the stored snapshot already has the effect
			return o, nil
		}
	}
	if err := h.cfg.Publisher.Publish(ctx, events.New(m.kind, o, m.actor, m.notes, h.cfg.Now())); err != nil {
		h.log.Error("publish event failed", "action", "publish", "order_id", o.OrderID, "kind", m.kind, "error", err)
	}
	return o, nil
}

// carries reports whether stored already holds the last history record of o.
func carries(stored, o model.Order) bool {
	if len(o.History) == 0 {
		return false
	}
	last := o.History[len(o.History)-1].ID
	for _, rec := range stored.History {
		if rec.ID == last {
			return true
		}
	}
	return false
}

func (h *Handler) count(ctx context.Context, name string, n float64, dims ...metrics.Dimension) {
	if err := h.cfg.Metrics.Count(ctx, name, n, dims...); err != nil {
		h.log.Warn("record metric failed", "metric", name, "error", err)
	}
}

// fail maps engine errors onto HTTP responses.
func (h *Handler) fail(c *gin.Context, action string, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	body := gin.H{}
	switch {
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrItemNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, orders.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
		var te *workflow.TransitionError
		if errors.As(err, &te) {
			body["allowed"] = h.cfg.Engine.Registry().NextStates(te.From)
		}
	case errors.Is(err, orders.ErrOrderClosed):
		status, code = http.StatusConflict, "order_closed"
	case errors.Is(err, orders.ErrConcurrentUpdate):
		status, code = http.StatusConflict, "concurrent_update"
	case errors.Is(err, orders.ErrInvalidItemStatus):
		status, code = http.StatusConflict, "invalid_item_status"
	case errors.Is(err, orders.ErrActorRequired):
		status, code = http.StatusBadRequest, "actor_required"
	case errors.Is(err, orders.ErrArtistRequired):
		status, code = http.StatusBadRequest, "artist_required"
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "action", action, "order_id", c.Param("id"), "error", err)
	} else {
		h.count(c.Request.Context(), metrics.RejectedRequests, 1, metrics.Dimension{Name: "reason", Value: code})
	}
	body["error"] = code
	body["detail"] = err.Error()
	c.JSON(status, body)
}
