package orders

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// mockDynamo is a simple mock that supports PutItem, GetItem, Scan and
// TransactWriteItems with the two condition expressions the stores use.
// It stores items per table in a nested map: table -> pkValue -> item map.
type mockDynamo struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]types.AttributeValue
	pageSize int
	scans    int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables:   map[string]map[string]map[string]types.AttributeValue{},
		pageSize: 2,
	}
}

func (m *mockDynamo) ensureTable(tbl string) {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
}

func primaryKey(item map[string]types.AttributeValue) (string, error) {
	if v, ok := item["order_id"]; ok {
		return v.(*types.AttributeValueMemberS).Value, nil
	}
	if v, ok := item["idempotency_key"]; ok {
		return v.(*types.AttributeValueMemberS).Value, nil
	}
	return "", errors.New("no primary key in item")
}

// conditionHolds evaluates the version guard and attribute_not_exists checks.
func (m *mockDynamo) conditionHolds(table, pk string, cond *string, values map[string]types.AttributeValue) bool {
	if cond == nil {
		return true
	}
	existing, exists := m.tables[table][pk]
	switch *cond {
	case "attribute_not_exists(idempotency_key)":
		return !exists
	case versionGuard:
		if !exists {
			return true
		}
		cur, _ := strconv.ParseInt(existing["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		next, _ := strconv.ParseInt(values[":v"].(*types.AttributeValueMemberN).Value, 10, 64)
		return cur < next
	}
	return false
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk, err := primaryKey(params.Item)
	if err != nil {
		return nil, err
	}
	if !m.conditionHolds(table, pk, params.ConditionExpression, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	m.tables[table][pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk, err := primaryKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("update item not supported by orders mock")
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
	table := *params.TableName
	m.ensureTable(table)
	keys := make([]string, 0, len(m.tables[table]))
	for k := range m.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start := 0
	if params.ExclusiveStartKey != nil {
		last, _ := primaryKey(params.ExclusiveStartKey)
		start = sort.SearchStrings(keys, last) + 1
	}
	end := start + m.pageSize
	if end > len(keys) {
		end = len(keys)
	}
	out := &dyn.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, m.tables[table][k])
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// First pass: verify condition expressions
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			continue
		}
		m.ensureTable(*p.TableName)
		pk, err := primaryKey(p.Item)
		if err != nil {
			return nil, err
		}
		code := "None"
		if !m.conditionHolds(*p.TableName, pk, p.ConditionExpression, p.ExpressionAttributeValues) {
			code = "ConditionalCheckFailed"
			failed = true
		}
		reasons[i] = types.CancellationReason{Code: awsString(code)}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}
	// Second pass: apply all puts
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			pk, _ := primaryKey(p.Item)
			m.tables[*p.TableName][pk] = p.Item
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func snapshot(id string, version int64) model.Order {
	return model.Order{
		OrderID:     id,
		OrderNumber: "#" + id,
		TotalAmount: decimal.RequireFromString("89.99"),
		CreatedAt:   created,
		Status:      workflow.StatusPendingAssign,
		Items: []model.OrderItem{
			{ItemID: "1", ProductTitle: "Custom Pet Portrait", Price: decimal.RequireFromString("45.99"), Quantity: 1, ItemStatus: model.ItemUnassigned},
		},
		History: []model.TransitionRecord{{ID: "h-1", Status: workflow.StatusPendingAssign, Timestamp: created, Actor: SyncActor}},
		Version: version,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	ctx := context.Background()

	if err := store.Save(ctx, snapshot("o1", 1)); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	got, err := store.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("89.99")) {
		t.Fatalf("total amount lost precision: %s", got.TotalAmount)
	}
	if len(got.History) != 1 || got.History[0].Actor != SyncActor {
		t.Fatalf("history not round-tripped: %+v", got.History)
	}
	if st := mock.tables["orders"]["o1"]["status"].(*types.AttributeValueMemberS).Value; st != "pending_assign" {
		t.Fatalf("status attribute = %s", st)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestStore_SaveRejectsStaleVersion(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	ctx := context.Background()

	if err := store.Save(ctx, snapshot("o1", 3)); err != nil {
		t.Fatalf("save v3: %v", err)
	}
	for _, v := range []int64{2, 3} {
		if err := store.Save(ctx, snapshot("o1", v)); !errors.Is(err, ErrStaleSnapshot) {
			t.Fatalf("save v%d: expected ErrStaleSnapshot, got %v", v, err)
		}
	}
	if err := store.Save(ctx, snapshot("o1", 4)); err != nil {
		t.Fatalf("save v4: %v", err)
	}
}

func TestStore_ListPaginates(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := store.Save(ctx, snapshot(id, 1)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 orders, got %d", len(all))
	}
	if mock.scans != 3 {
		t.Fatalf("expected 3 scan pages, got %d", mock.scans)
	}
}

func TestStore_ListSkipsUnreadableItems(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, snapshot(id, 1)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	mock.tables["orders"]["b"]["document"] = &types.AttributeValueMemberS{Value: `{"order_id":`}

	all, err := store.List(ctx)
	if !errors.Is(err, ErrUnreadableSnapshot) {
		t.Fatalf("expected ErrUnreadableSnapshot, got %v", err)
	}
	var se *SnapshotError
	if !errors.As(err, &se) || se.OrderID != "b" {
		t.Fatalf("expected snapshot error for b, got %v", err)
	}
	if len(all) != 2 || all[0].OrderID != "a" || all[1].OrderID != "c" {
		t.Fatalf("expected readable orders a and c, got %+v", all)
	}
}

func TestStore_SaveWithDelivery(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	store.nowFunc = func() time.Time { return created }
	ctx := context.Background()

	delivery := map[string]interface{}{"idempotency_key": "d-1", "status": "DONE"}
	if err := store.SaveWithDelivery(ctx, "idempotency", delivery, snapshot("o1", 1), 48*time.Hour); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	rec, ok := mock.tables["idempotency"]["d-1"]
	if !ok {
		t.Fatalf("delivery record not stored")
	}
	if _, ok := rec["expires_at"]; !ok {
		t.Fatalf("expires_at not set on delivery record")
	}
	if _, ok := mock.tables["orders"]["o1"]; !ok {
		t.Fatalf("order item not stored")
	}

	// replayed delivery
	err := store.SaveWithDelivery(ctx, "idempotency", delivery, snapshot("o1", 2), 48*time.Hour)
	if !errors.Is(err, ErrDuplicateDelivery) {
		t.Fatalf("expected ErrDuplicateDelivery, got %v", err)
	}

	// new delivery carrying an old snapshot
	other := map[string]interface{}{"idempotency_key": "d-2"}
	err = store.SaveWithDelivery(ctx, "idempotency", other, snapshot("o1", 1), 48*time.Hour)
	if !errors.Is(err, ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	if _, ok := mock.tables["idempotency"]["d-2"]; ok {
		t.Fatalf("cancelled transaction must not write the delivery record")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Save(ctx, snapshot("b", 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, snapshot("a", 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, snapshot("a", 1)); !errors.Is(err, ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	all, _ := s.List(ctx)
	if len(all) != 2 || all[0].OrderID != "a" {
		t.Fatalf("unexpected list: %+v", all)
	}
	if _, err := s.Get(ctx, "zzz"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
