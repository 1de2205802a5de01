package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-painting-orderflow/internal/classifier"
	"github.com/imrishuroy/go-painting-orderflow/internal/events"
	"github.com/imrishuroy/go-painting-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-painting-orderflow/internal/metrics"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
)

// Headers sent by the commerce platform on every webhook delivery.
const (
	HeaderWebhookHMAC  = "X-Shopify-Hmac-Sha256"
	HeaderWebhookID    = "X-Shopify-Webhook-Id"
	HeaderWebhookTopic = "X-Shopify-Topic"
)

// VerifyWebhook reports whether signature is the base64 HMAC-SHA256 of body
// keyed by secret.
func VerifyWebhook(body []byte, secret, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// SignWebhook returns the signature VerifyWebhook expects.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type failureView struct {
	Index   int    `json:"index"`
	OrderID string `json:"order_id,omitempty"`
	Error   string `json:"error"`
}

type ingestResponse struct {
	orders.IngestResult
	Failures []failureView `json:"failures"`
}

// webhook ingests an order payload pushed by the commerce platform. Each
// delivery id is processed once; a retried delivery gets the stored response.
func (h *Handler) webhook(c *gin.Context) {
	ctx := c.Request.Context()
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}
	if h.cfg.WebhookSecret != "" && !VerifyWebhook(body, h.cfg.WebhookSecret, c.GetHeader(HeaderWebhookHMAC)) {
		h.count(ctx, metrics.RejectedRequests, 1, metrics.Dimension{Name: "reason", Value: "bad_signature"})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		return
	}

	deliveryID := c.GetHeader(HeaderWebhookID)
	topic := c.GetHeader(HeaderWebhookTopic)
	dedup := h.cfg.Deliveries != nil && deliveryID != ""
	if dedup {
		claimed, err := h.cfg.Deliveries.Claim(ctx, deliveryID, topic)
		if err != nil {
			h.fail(c, "webhook", fmt.Errorf("claim delivery %s: %w", deliveryID, err))
			return
		}
		if !claimed {
			h.replay(c, deliveryID)
			return
		}
	}

	raws, decodeFailures, err := classifier.DecodeOrders(body)
	if err != nil {
		h.markFailed(ctx, dedup, deliveryID, err)
		h.count(ctx, metrics.RejectedRequests, 1, metrics.Dimension{Name: "reason", Value: "bad_payload"})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "msg": err.Error()})
		return
	}
	var res orders.IngestResult
	for i, raw := range raws {
		one, err := h.ingestOne(ctx, raw, topic)
		var rec *orders.RecordError
		if errors.As(err, &rec) {
			rec.Index = i
			res.Failures = append(res.Failures, rec)
			continue
		}
		if err != nil {
			h.markFailed(ctx, dedup, deliveryID, err)
			h.fail(c, "webhook", err)
			return
		}
		res.New += one.New
		res.Updated += one.Updated
		res.Cancelled += one.Cancelled
		res.OrderIDs = append(res.OrderIDs, one.OrderIDs...)
	}
	for _, f := range decodeFailures {
		res.Failures = append(res.Failures, &orders.RecordError{Index: f.Index, Err: f.Err})
	}

	resp := ingestResponse{IngestResult: res, Failures: []failureView{}}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, failureView{Index: f.Index, OrderID: f.OrderID, Error: f.Err.Error()})
		h.log.Warn("record skipped", "action", "ingest", "order_id", f.OrderID, "index", f.Index, "error", f.Err)
	}
	h.count(ctx, metrics.OrdersIngested, float64(len(res.OrderIDs)))
	if len(res.Failures) > 0 {
		h.count(ctx, metrics.IngestFailures, float64(len(res.Failures)))
	}
	h.log.Info("webhook ingested", "action", "ingest", "delivery_id", deliveryID, "topic", topic,
		"new", res.New, "updated", res.Updated, "cancelled", res.Cancelled, "failed", len(res.Failures))

	payload, err := json.Marshal(resp)
	if err != nil {
		h.fail(c, "webhook", err)
		return
	}
	if dedup {
		if err := h.cfg.Deliveries.MarkDone(ctx, deliveryID, res.OrderIDs, string(payload), http.StatusOK); err != nil {
			h.log.Error("mark delivery done failed", "action", "ingest", "delivery_id", deliveryID, "error", err)
		}
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// ingestOne merges one feed record and persists the order. A record the
// classifier rejects comes back as *orders.RecordError. The returned result
// describes the first application; re-runs after a stale save only converge.
func (h *Handler) ingestOne(ctx context.Context, raw model.RawOrder, topic string) (orders.IngestResult, error) {
	var first *orders.IngestResult
	id := raw.ID.String()
	_, err := h.run(ctx, mutation{
		kind: events.KindIngested, orderID: id, actor: orders.SyncActor, notes: topic,
		replayable: true,
		apply: func() (model.Order, error) {
			res := h.cfg.Engine.Ingest([]model.RawOrder{raw})
			if first == nil {
				first = &res
			}
			if len(res.Failures) > 0 {
				return model.Order{}, res.Failures[0]
			}
			return h.cfg.Engine.Get(id)
		},
	})
	if err != nil {
		return orders.IngestResult{}, err
	}
	return *first, nil
}

func (h *Handler) markFailed(ctx context.Context, dedup bool, deliveryID string, cause error) {
	if !dedup {
		return
	}
	if err := h.cfg.Deliveries.MarkFailed(ctx, deliveryID, cause.Error()); err != nil {
		h.log.Error("could not mark delivery failed", "action", "ingest", "delivery_id", deliveryID, "error", err)
	}
}

func (h *Handler) replay(c *gin.Context, deliveryID string) {
	ctx := c.Request.Context()
	h.count(ctx, metrics.WebhookDuplicates, 1)
	rec, err := h.cfg.Deliveries.Get(ctx, deliveryID)
	if err != nil {
		h.fail(c, "webhook", fmt.Errorf("load delivery %s: %w", deliveryID, err))
		return
	}
	if rec == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "delivery_unavailable", "delivery_id": deliveryID})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" && rec.ResponseStatus != 0 {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_ids": rec.OrderIDs})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "delivery already in progress", "delivery_id": deliveryID})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "delivery_unavailable", "delivery_id": deliveryID, "status": rec.Status})
	}
}
