package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/aws"
	"github.com/imrishuroy/storefront-settlement/internal/idempotency"
)

// OrderNumberIndex is the GSI resolving external order numbers.
const OrderNumberIndex = "order_number-index"

var (
	// ErrVersionConflict means the order changed since it was read.
	ErrVersionConflict = apperr.Conflictf("order was modified concurrently")
	// ErrOrderNumberTaken means a freshly generated order number collided.
	ErrOrderNumberTaken = apperr.Conflictf("order number already in use")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	claims    *idempotency.Store
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store. claims reserves order numbers.
func NewStore(client aws.DynamoDBAPI, tableName string, claims *idempotency.Store) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		claims:    claims,
		nowFunc:   time.Now,
	}
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func orderNumberKey(orderNumber string) string { return "order-number:" + orderNumber }

// Create persists a new order and reserves its order number in one transaction.
// Returns ErrOrderNumberTaken when the number is already reserved.
func (s *Store) Create(ctx context.Context, order Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	reserve, err := s.claims.ClaimWriteItem(orderNumberKey(order.OrderNumber), order.ID)
	if err != nil {
		return err
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			reserve,
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                orderMap,
					ConditionExpression: awsString("attribute_not_exists(order_id)"),
				},
			},
		},
	}, aws.SingleAttempt)
	if err != nil {
		if idempotency.IsClaimConflict(err, 0) {
			return ErrOrderNumberTaken
		}
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("transaction canceled (order id exists): %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            orderKey(orderID),
		ConsistentRead: awsBool(true),
	}, aws.ReadRetries)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByOrderNumber resolves an external order number through the GSI and then
// reads the row itself consistently. Returns (nil, nil) if the index has no
// entry yet; GSIs are eventually consistent, so callers must not treat that as
// final.
func (s *Store) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(OrderNumberIndex),
		KeyConditionExpression: awsString("order_number = :n"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberS{Value: orderNumber},
		},
		Limit: awsInt32(1),
	}, aws.ReadRetries)
	if err != nil {
		return nil, fmt.Errorf("query order number: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	id, ok := out.Items[0]["order_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("index entry for %s has no order_id", orderNumber)
	}
	return s.Get(ctx, id.Value)
}

// UpdateSettlement writes the settlement fields of next (status, payment
// status, payment id, gateway payload) if the stored version still equals
// next.Version. Price fields and the security token are never written here.
// On success next.Version is the new version.
func (s *Store) UpdateSettlement(ctx context.Context, next *Order) error {
	now := s.nowFunc()
	ua, err := attributevalue.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal updated_at: %w", err)
	}

	expr := "SET #s = :status, payment_status = :ps, gateway_data = :gd, updated_at = :ua, version = :next"
	values := map[string]types.AttributeValue{
		":status":   &types.AttributeValueMemberS{Value: string(next.Status)},
		":ps":       &types.AttributeValueMemberS{Value: string(next.PaymentStatus)},
		":gd":       &types.AttributeValueMemberS{Value: next.GatewayData},
		":ua":       ua,
		":next":     number(next.Version + 1),
		":expected": number(next.Version),
	}
	if next.HasPayment() {
		expr += ", payment_id = :pid"
		values[":pid"] = &types.AttributeValueMemberS{Value: *next.PaymentID}
	}

	if err := s.conditionalUpdate(ctx, next.ID, expr, values); err != nil {
		return err
	}
	next.Version++
	next.UpdatedAt = now
	return nil
}

// UpdateStatus is the admin override of the order status and tracking number,
// conditional on the version the admin saw.
func (s *Store) UpdateStatus(ctx context.Context, next *Order) error {
	now := s.nowFunc()
	ua, err := attributevalue.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal updated_at: %w", err)
	}

	expr := "SET #s = :status, updated_at = :ua, version = :next"
	values := map[string]types.AttributeValue{
		":status":   &types.AttributeValueMemberS{Value: string(next.Status)},
		":ua":       ua,
		":next":     number(next.Version + 1),
		":expected": number(next.Version),
	}
	if next.TrackingNumber != nil {
		expr += ", tracking_number = :tn"
		values[":tn"] = &types.AttributeValueMemberS{Value: *next.TrackingNumber}
	}

	if err := s.conditionalUpdate(ctx, next.ID, expr, values); err != nil {
		return err
	}
	next.Version++
	next.UpdatedAt = now
	return nil
}

func (s *Store) conditionalUpdate(ctx context.Context, orderID, expr string, values map[string]types.AttributeValue) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(orderID),
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("version = :expected"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	}, aws.SingleAttempt)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrVersionConflict
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func number(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
func awsInt32(n int32) *int32    { return &n }
