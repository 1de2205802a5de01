package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-painting-orderflow/internal/events"
	"github.com/imrishuroy/go-painting-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-painting-orderflow/internal/logging"
	"github.com/imrishuroy/go-painting-orderflow/internal/metrics"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
	"github.com/imrishuroy/go-painting-orderflow/internal/views"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

const secret = "shpss_test"

var now = time.Date(2025, 7, 2, 11, 30, 0, 0, time.UTC)

type memDeliveries struct {
	mu   sync.Mutex
	recs map[string]*idempotency.DeliveryRecord
}

func (m *memDeliveries) Claim(_ context.Context, key, topic string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[key]; ok && rec.Status != idempotency.StatusFailed {
		return false, nil
	}
	m.recs[key] = &idempotency.DeliveryRecord{IdempotencyKey: key, Topic: topic, Status: idempotency.StatusInProgress}
	return true, nil
}

func (m *memDeliveries) Get(_ context.Context, key string) (*idempotency.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memDeliveries) MarkDone(_ context.Context, key string, ids []string, body string, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.recs[key]
	rec.Status, rec.OrderIDs, rec.ResponseBody, rec.ResponseStatus = idempotency.StatusDone, ids, body, status
	return nil
}

func (m *memDeliveries) MarkFailed(_ context.Context, key, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.recs[key]
	rec.Status, rec.Note = idempotency.StatusFailed, note
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

type fixture struct {
	router     *gin.Engine
	engine     *orders.Engine
	repo       *orders.MemoryStore
	deliveries *memDeliveries
	publisher  *recordingPublisher
	metrics    *metrics.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the store the handler saves through.
func newFixtureWith(t *testing.T, wrap func(*orders.MemoryStore) orders.Repository) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		router:     gin.New(),
		engine:     orders.NewEngine(orders.WithClock(func() time.Time { return now })),
		repo:       orders.NewMemoryStore(),
		deliveries: &memDeliveries{recs: map[string]*idempotency.DeliveryRecord{}},
		publisher:  &recordingPublisher{},
		metrics:    metrics.NewMemory(),
	}
	var repo orders.Repository = f.repo
	if wrap != nil {
		repo = wrap(f.repo)
	}
	RegisterOrdersRoutes(f.router, HandlerConfig{
		Engine:        f.engine,
		Repository:    repo,
		Deliveries:    f.deliveries,
		Publisher:     f.publisher,
		Metrics:       f.metrics,
		Filter:        views.NewFilter(workflow.Default(), views.PolicyDeny),
		Logger:        logging.Discard(),
		ShopifyStore:  "brushwork",
		WebhookSecret: secret,
		Now:           func() time.Time { return now },
	})
	return f
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func as(id, role string) map[string]string {
	return map[string]string{HeaderActorID: id, HeaderActorRole: role}
}

const orderPayload = `{"order":{"id":5001,"name":"#5001","email":"sarah.j@gmail.com",
"customer":{"first_name":"Sarah","last_name":"Johnson"},
"financial_status":"paid","total_price":"89.99","created_at":"2025-07-02T10:30:00Z",
"line_items":[
 {"id":1,"title":"Custom Pet Portrait","sku":"pet_12x16","price":"45.99","quantity":1},
 {"id":2,"title":"Family Portrait","sku":"fam_16x20","price":"35.00","quantity":1},
 {"id":3,"title":"Rush Processing","sku":"RUSH","price":"9.00","quantity":1}]}}`

func (f *fixture) deliver(t *testing.T, deliveryID, body string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(http.MethodPost, "/webhooks/orders", body, map[string]string{
		HeaderWebhookHMAC:  SignWebhook([]byte(body), secret),
		HeaderWebhookID:    deliveryID,
		HeaderWebhookTopic: "orders/create",
	})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"id":1}`)
	sig := SignWebhook(body, secret)
	assert.True(t, VerifyWebhook(body, secret, sig))
	assert.False(t, VerifyWebhook(body, "other", sig))
	assert.False(t, VerifyWebhook([]byte(`{"id":2}`), secret, sig))
	assert.False(t, VerifyWebhook(body, secret, "not base64!"))
	assert.False(t, VerifyWebhook(body, secret, ""))
}

func TestWebhook_IngestsOncePerDelivery(t *testing.T) {
	f := newFixture(t)

	w := f.deliver(t, "d-1", orderPayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := w.Body.String()
	body := decode(t, w)
	assert.EqualValues(t, 1, body["new"])
	assert.Empty(t, body["failures"])

	stored, err := f.repo.Get(context.Background(), "5001")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPendingAssign, stored.Status)
	assert.Equal(t, []events.Kind{events.KindIngested}, f.publisher.kinds())

	// retried delivery replays the stored response without touching the order
	w = f.deliver(t, "d-1", orderPayload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, w.Body.String())
	assert.Equal(t, 1.0, f.metrics.Total(metrics.WebhookDuplicates))
	o, err := f.engine.Get("5001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.Version)

	// a new delivery of the same order merges it
	w = f.deliver(t, "d-2", orderPayload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["updated"])
	assert.Equal(t, 2.0, f.metrics.Total(metrics.OrdersIngested))
}

func TestWebhook_Rejections(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/webhooks/orders", orderPayload, map[string]string{
		HeaderWebhookHMAC: SignWebhook([]byte(orderPayload), "wrong"),
		HeaderWebhookID:   "d-1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, err := f.engine.Get("5001")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	w = f.deliver(t, "d-2", `garbage`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	rec, _ := f.deliveries.Get(context.Background(), "d-2")
	require.NotNil(t, rec)
	assert.Equal(t, idempotency.StatusFailed, rec.Status)

	// partial failures are reported, not fatal
	w = f.deliver(t, "d-3", `{"orders":[{"id":7,"financial_status":"paid"},{"name":"#no-id"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["new"])
	assert.Len(t, body["failures"], 1)
	assert.Equal(t, 1.0, f.metrics.Total(metrics.IngestFailures))
}

// brokenDeliveries claims every delivery but cannot record failures.
type brokenDeliveries struct {
	*memDeliveries
}

func (brokenDeliveries) MarkFailed(context.Context, string, string) error {
	return errors.New("dynamodb: throttled")
}

func TestWebhook_LogsMarkFailedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	r := gin.New()
	RegisterOrdersRoutes(r, HandlerConfig{
		Deliveries:    brokenDeliveries{&memDeliveries{recs: map[string]*idempotency.DeliveryRecord{}}},
		Logger:        logging.NewWithWriter(&logs, "orderflow-api", "info"),
		WebhookSecret: secret,
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/orders", strings.NewReader("garbage"))
	req.Header.Set(HeaderWebhookHMAC, SignWebhook([]byte("garbage"), secret))
	req.Header.Set(HeaderWebhookID, "d-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, logs.String(), "could not mark delivery failed")
	assert.Contains(t, logs.String(), "dynamodb: throttled")
	assert.Contains(t, logs.String(), `"delivery_id":"d-9"`)
}

func TestTransitionRoute(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.deliver(t, "d-1", orderPayload).Code)

	w := f.do(http.MethodPost, "/orders/5001/transitions", `{"status":"in_progress"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "in_progress", body["status"])
	assert.Equal(t, []interface{}{"pending_edit", "cancelled"}, body["next_states"])
	assert.Equal(t, "https://admin.shopify.com/store/brushwork/orders/5001", body["admin_url"])

	stored, err := f.repo.Get(context.Background(), "5001")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, stored.Status)

	w = f.do(http.MethodPost, "/orders/5001/transitions", `{"status":"completed"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusConflict, w.Code)
	body = decode(t, w)
	assert.Equal(t, "invalid_transition", body["error"])
	assert.Equal(t, []interface{}{"pending_edit", "cancelled"}, body["allowed"])

	w = f.do(http.MethodPost, "/orders/5001/transitions", `{"status":"pending_edit"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "actor_required", decode(t, w)["error"])

	w = f.do(http.MethodPost, "/orders/5001/transitions", `{"status":"shipped"}`, as("ops-1", "admin"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", decode(t, w)["error"])

	w = f.do(http.MethodPost, "/orders/404/transitions", `{"status":"pending_edit"}`, as("ops-1", "admin"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, f.metrics.Total(metrics.Transitions))
	assert.Equal(t, 3.0, f.metrics.Total(metrics.RejectedRequests))
}

func TestAssignmentRoutes(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.deliver(t, "d-1", orderPayload).Code)

	w := f.do(http.MethodPost, "/orders/5001/assign-paintable", `{"artist_id":"artist-7"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	o, err := f.engine.Get("5001")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, o.Status)
	for _, it := range o.Items {
		if it.IsAddOn {
			assert.Nil(t, it.AssignedArtist)
		} else {
			require.NotNil(t, it.AssignedArtist)
			assert.Equal(t, "artist-7", *it.AssignedArtist)
		}
	}

	// nothing left to assign: no new version, no event
	before := len(f.publisher.kinds())
	w = f.do(http.MethodPost, "/orders/5001/assign-paintable", `{"artist_id":"artist-7"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.publisher.kinds(), before)

	w = f.do(http.MethodPut, "/orders/5001/items/3/assignment", `{"artist_id":"artist-9"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPut, "/orders/5001/items/99/assignment", `{"artist_id":"artist-9"}`, as("ops-1", "admin"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPut, "/orders/5001/items/1/status", `{"status":"completed"}`, as("artist-7", "artist"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 33, decode(t, w)["progress"])

	w = f.do(http.MethodPut, "/orders/5001/items/1/status", `{"status":"in_progress"}`, as("artist-7", "artist"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_item_status", decode(t, w)["error"])
}

// syncElsewhere merges payload into the stored snapshot the way the queue
// worker does and saves the result, leaving the API's working set behind.
func syncElsewhere(t *testing.T, repo *orders.MemoryStore, orderID, payload string) model.Order {
	t.Helper()
	ctx := context.Background()
	worker := orders.NewEngine(orders.WithClock(func() time.Time { return now }))
	stored, err := repo.Get(ctx, orderID)
	require.NoError(t, err)
	require.NoError(t, worker.Restore([]model.Order{stored}))
	res, err := worker.IngestJSON([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	merged, err := worker.Get(orderID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, merged))
	return merged
}

func TestAssignment_AppliedOnTopOfNewerStoredSnapshot(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.deliver(t, "d-1", orderPayload).Code)
	merged := syncElsewhere(t, f.repo, "5001", strings.Replace(orderPayload, `"total_price":"89.99"`, `"total_price":"99.99"`, 1))
	require.Equal(t, int64(2), merged.Version)

	w := f.do(http.MethodPut, "/orders/5001/items/1/assignment", `{"artist_id":"artist-7"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := f.repo.Get(context.Background(), "5001")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Version)
	assert.Equal(t, workflow.StatusInProgress, stored.Status)
	require.NotNil(t, stored.Items[0].AssignedArtist)
	assert.Equal(t, "artist-7", *stored.Items[0].AssignedArtist)
	assert.Equal(t, "99.99", stored.TotalAmount.String())

	o, err := f.engine.Get("5001")
	require.NoError(t, err)
	assert.Equal(t, stored.Version, o.Version)
	assert.Equal(t, []events.Kind{events.KindIngested, events.KindAssigned}, f.publisher.kinds())
}

func TestTransition_RejectedAgainstNewerStoredSnapshot(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.deliver(t, "d-1", orderPayload).Code)
	cancelled := strings.Replace(orderPayload, `"financial_status":"paid"`, `"financial_status":"paid","cancelled_at":"2025-07-02T11:00:00Z"`, 1)
	merged := syncElsewhere(t, f.repo, "5001", cancelled)
	require.Equal(t, workflow.StatusCancelled, merged.Status)

	w := f.do(http.MethodPost, "/orders/5001/transitions", `{"status":"in_progress"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "invalid_transition", decode(t, w)["error"])

	o, err := f.engine.Get("5001")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, o.Status)
	stored, err := f.repo.Get(context.Background(), "5001")
	require.NoError(t, err)
	assert.Equal(t, merged.Version, stored.Version)
}

// contendedRepo saves a newer copy of the stored order right before every
// save it is asked for, as if another writer always got there first.
type contendedRepo struct {
	*orders.MemoryStore
	saves int
}

func (r *contendedRepo) Save(ctx context.Context, o model.Order) error {
	r.saves++
	if cur, err := r.MemoryStore.Get(ctx, o.OrderID); err == nil && cur.Version < o.Version {
		cur.Version = o.Version
		if err := r.MemoryStore.Save(ctx, cur); err != nil {
			return err
		}
	}
	return r.MemoryStore.Save(ctx, o)
}

func TestTransition_GivesUpAfterRepeatedConflicts(t *testing.T) {
	var repo *contendedRepo
	f := newFixtureWith(t, func(m *orders.MemoryStore) orders.Repository {
		repo = &contendedRepo{MemoryStore: m}
		return repo
	})
	require.Equal(t, http.StatusOK, f.deliver(t, "d-1", orderPayload).Code)
	repo.saves = 0

	w := f.do(http.MethodPost, "/orders/5001/transitions", `{"status":"in_progress"}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "concurrent_update", decode(t, w)["error"])
	assert.Equal(t, maxSaveAttempts, repo.saves)

	// the working copy matches the store again and no event went out
	o, err := f.engine.Get("5001")
	require.NoError(t, err)
	stored, err := f.repo.Get(context.Background(), "5001")
	require.NoError(t, err)
	assert.Equal(t, stored.Version, o.Version)
	assert.Equal(t, workflow.StatusPendingAssign, o.Status)
	assert.Equal(t, []events.Kind{events.KindIngested}, f.publisher.kinds())
}

func TestCarries(t *testing.T) {
	stored := model.Order{History: []model.TransitionRecord{{ID: "h-1"}, {ID: "h-2"}, {ID: "h-3"}}}
	assert.True(t, carries(stored, model.Order{History: []model.TransitionRecord{{ID: "h-1"}, {ID: "h-2"}}}))
	assert.False(t, carries(stored, model.Order{History: []model.TransitionRecord{{ID: "h-1"}, {ID: "h-9"}}}))
	assert.False(t, carries(stored, model.Order{}))
}

func TestAddOnRoute(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.deliver(t, "d-1", orderPayload).Code)

	w := f.do(http.MethodPost, "/orders/5001/items/3/addon", "", as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	o, _ := f.engine.Get("5001")
	assert.False(t, o.Items[2].IsAddOn)

	w = f.do(http.MethodPost, "/orders/5001/items/3/addon", `{"is_add_on":true}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code)
	o, _ = f.engine.Get("5001")
	assert.True(t, o.Items[2].IsAddOn)
	require.NotNil(t, o.Items[2].AddOnOverride)
	assert.True(t, *o.Items[2].AddOnOverride)
	last := o.History[len(o.History)-1]
	assert.Equal(t, "ops-1", last.Actor)
	assert.Equal(t, o.Status, last.Status)

	// same value again: no new version, no event
	published := len(f.publisher.kinds())
	w = f.do(http.MethodPost, "/orders/5001/items/3/addon", `{"is_add_on":true}`, as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code)
	again, _ := f.engine.Get("5001")
	assert.Equal(t, o.Version, again.Version)
	assert.Len(t, f.publisher.kinds(), published)

	w = f.do(http.MethodPost, "/orders/5001/items/3/addon", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "actor_required", decode(t, w)["error"])
}

func TestListOrders_RoleScoped(t *testing.T) {
	f := newFixture(t)
	payload := `{"orders":[
	 {"id":1,"financial_status":"paid","created_at":"2025-07-02T10:30:00Z","line_items":[{"id":1,"title":"Pet Portrait"}]},
	 {"id":2,"financial_status":"paid","created_at":"2025-07-02T10:30:00Z","tags":"rush","line_items":[{"id":1,"title":"Pet Portrait"}]},
	 {"id":3,"financial_status":"pending","created_at":"2025-07-02T10:30:00Z"}]}`
	require.Equal(t, http.StatusOK, f.deliver(t, "d-1", payload).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/orders/1/items/1/assignment", `{"artist_id":"artist-7"}`, as("ops-1", "admin")).Code)

	ids := func(w *httptest.ResponseRecorder) []string {
		var body struct {
			Orders []struct {
				OrderID string `json:"order_id"`
				Urgency string `json:"urgency"`
			} `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		out := []string{}
		for _, o := range body.Orders {
			out = append(out, o.OrderID)
		}
		return out
	}

	// admin sees every open order, the rush one first
	w := f.do(http.MethodGet, "/orders", "", as("ops-1", "admin"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2", "1", "3"}, ids(w))

	w = f.do(http.MethodGet, "/orders", "", as("artist-7", "artist"))
	assert.Equal(t, []string{"1"}, ids(w))

	w = f.do(http.MethodGet, "/orders", "", as("artist-8", "artist"))
	assert.Empty(t, ids(w))

	// deny policy: unknown roles see nothing
	w = f.do(http.MethodGet, "/orders", "", as("x", "intern"))
	assert.Empty(t, ids(w))

	w = f.do(http.MethodGet, "/orders?search=2", "", as("ops-1", "master"))
	assert.Equal(t, []string{"2"}, ids(w))

	w = f.do(http.MethodGet, "/orders/3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "waiting_for_photos", decode(t, w)["status"])

	w = f.do(http.MethodGet, "/stats", "", as("ops-1", "master"))
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]interface{})
	assert.EqualValues(t, 3, stats["total"])
}

func TestStatusesRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/statuses", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Statuses []workflow.Definition `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Statuses, len(workflow.Default().Statuses()))
}
