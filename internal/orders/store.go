package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-painting-orderflow/internal/aws"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
)

// ErrDuplicateDelivery means the delivery key was already recorded, so the
// snapshot write was skipped.
var ErrDuplicateDelivery = errors.New("delivery already recorded")

// versionGuard only lets a snapshot replace an older one.
const versionGuard = "attribute_not_exists(order_id) OR version < :v"

// snapshotItem is the shape stored in the orders table. The order itself is
// kept as a JSON document so decimal amounts round-trip exactly; the other
// attributes exist for the key, the version guard and table scans.
type snapshotItem struct {
	OrderID   string    `dynamodbav:"order_id"` // PK
	Status    string    `dynamodbav:"status"`
	Archived  bool      `dynamodbav:"archived"`
	Version   int64     `dynamodbav:"version"`
	Document  string    `dynamodbav:"document"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// Store persists order snapshots in DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) marshal(order model.Order) (map[string]types.AttributeValue, error) {
	doc, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode order document: %w", err)
	}
	item, err := attributevalue.MarshalMap(snapshotItem{
		OrderID:   order.OrderID,
		Status:    string(order.Status),
		Archived:  order.Archived,
		Version:   order.Version,
		Document:  string(doc),
		UpdatedAt: s.nowFunc().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order item: %w", err)
	}
	return item, nil
}

func unmarshal(item map[string]types.AttributeValue) (model.Order, error) {
	var snap snapshotItem
	if err := attributevalue.UnmarshalMap(item, &snap); err != nil {
		return model.Order{}, fmt.Errorf("unmarshal order item: %w", err)
	}
	var o model.Order
	if err := json.Unmarshal([]byte(snap.Document), &o); err != nil {
		return model.Order{}, fmt.Errorf("decode order %s document: %w", snap.OrderID, err)
	}
	return o, nil
}

func versionValues(order model.Order) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(order.Version, 10)},
	}
}

// Save writes the snapshot unless a version at least as new is stored.
func (s *Store) Save(ctx context.Context, order model.Order) error {
	item, err := s.marshal(order)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                 &s.tableName,
		Item:                      item,
		ConditionExpression:       awsString(versionGuard),
		ExpressionAttributeValues: versionValues(order),
	})
	if err != nil {
		if isConditionFailure(err) {
			return &OrderError{OrderID: order.OrderID, Err: ErrStaleSnapshot}
		}
		return fmt.Errorf("put order %s: %w", order.OrderID, err)
	}
	return nil
}

// SaveWithDelivery atomically records a delivery key in the idempotency table
// and writes the order snapshot. deliveryItem must marshal to a map holding
// idempotency_key. A replayed delivery yields ErrDuplicateDelivery.
func (s *Store) SaveWithDelivery(ctx context.Context, idempotencyTable string, deliveryItem interface{}, order model.Order, ttlWindow time.Duration) error {
	idempMap, err := attributevalue.MarshalMap(deliveryItem)
	if err != nil {
		return fmt.Errorf("marshal delivery item: %w", err)
	}
	if _, ok := idempMap["expires_at"]; !ok && ttlWindow > 0 {
		expires := s.nowFunc().Add(ttlWindow).Unix()
		idempMap["expires_at"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)}
	}
	orderMap, err := s.marshal(order)
	if err != nil {
		return err
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &idempotencyTable,
					Item:                idempMap,
					ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
				},
			},
			{
				Put: &types.Put{
					TableName:                 &s.tableName,
					Item:                      orderMap,
					ConditionExpression:       awsString(versionGuard),
					ExpressionAttributeValues: versionValues(order),
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			reasons := tce.CancellationReasons
			if len(reasons) > 0 && reasons[0].Code != nil && *reasons[0].Code == "ConditionalCheckFailed" {
				return ErrDuplicateDelivery
			}
			if len(reasons) > 1 && reasons[1].Code != nil && *reasons[1].Code == "ConditionalCheckFailed" {
				return &OrderError{OrderID: order.OrderID, Err: ErrStaleSnapshot}
			}
			return fmt.Errorf("transaction canceled: %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches one snapshot by order_id.
func (s *Store) Get(ctx context.Context, orderID string) (model.Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return model.Order{}, notFound(orderID)
	}
	return unmarshal(out.Item)
}

// List scans the whole table. The working set is small enough that a scan at
// startup is acceptable. Items that do not decode are skipped and reported.
func (s *Store) List(ctx context.Context) ([]model.Order, error) {
	var (
		out     []model.Order
		skipped []error
		start   map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		for _, item := range page.Items {
			o, err := unmarshal(item)
			if err != nil {
				skipped = append(skipped, &SnapshotError{OrderID: itemOrderID(item), Err: err})
				continue
			}
			out = append(out, o)
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, errors.Join(skipped...)
		}
		start = page.LastEvaluatedKey
	}
}

func itemOrderID(item map[string]types.AttributeValue) string {
	if v, ok := item["order_id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }
