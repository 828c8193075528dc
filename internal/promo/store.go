package promo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/storefront-settlement/internal/aws"
	"github.com/imrishuroy/storefront-settlement/internal/idempotency"
)

// Store encapsulates operations on the promo codes table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	claims    *idempotency.Store
	nowFunc   func() time.Time
}

// NewStore creates a promo code Store. claims guards usage increments so each
// paid order counts once.
func NewStore(client aws.DynamoDBAPI, tableName string, claims *idempotency.Store) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		claims:    claims,
		nowFunc:   time.Now,
	}
}

func codeKey(code string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"code": &types.AttributeValueMemberS{Value: code},
	}
}

// Get fetches a promo code. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, code string) (*Code, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       codeKey(NormalizeCode(code)),
	}, aws.ReadRetries)
	if err != nil {
		return nil, fmt.Errorf("get promo code: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Code
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal promo code: %w", err)
	}
	return &c, nil
}

// List returns every promo code, following scan pagination.
func (s *Store) List(ctx context.Context) ([]Code, error) {
	var (
		out       []Code
		startFrom map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startFrom,
		}, aws.ReadRetries)
		if err != nil {
			return nil, fmt.Errorf("scan promo codes: %w", err)
		}
		var codes []Code
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &codes); err != nil {
			return nil, fmt.Errorf("unmarshal promo codes: %w", err)
		}
		out = append(out, codes...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startFrom = page.LastEvaluatedKey
	}
}

// Create stores a new code with zero uses. The code is normalized first.
func (s *Store) Create(ctx context.Context, c Code) (Code, error) {
	c.Code = NormalizeCode(c.Code)
	if err := c.Validate(); err != nil {
		return Code{}, err
	}
	now := s.nowFunc()
	c.CurrentUses = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return Code{}, fmt.Errorf("marshal promo code: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(code)"),
	}, aws.SingleAttempt)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return Code{}, ErrAlreadyExists
		}
		return Code{}, fmt.Errorf("put promo code: %w", err)
	}
	return c, nil
}

// Update rewrites the editable fields of an existing code. The usage counter
// and creation time are left alone.
func (s *Store) Update(ctx context.Context, c Code) (Code, error) {
	c.Code = NormalizeCode(c.Code)
	if err := c.Validate(); err != nil {
		return Code{}, err
	}

	values := map[string]types.AttributeValue{
		":dt": &types.AttributeValueMemberS{Value: c.DiscountType},
		":dv": number(c.DiscountValue),
		":ia": &types.AttributeValueMemberBOOL{Value: c.IsActive},
	}
	for k, t := range map[string]time.Time{":vf": c.ValidFrom, ":vu": c.ValidUntil, ":ua": s.nowFunc()} {
		av, err := attributevalue.Marshal(t)
		if err != nil {
			return Code{}, fmt.Errorf("marshal %s: %w", k, err)
		}
		values[k] = av
	}

	set := []string{
		"discount_type = :dt", "discount_value = :dv", "is_active = :ia",
		"valid_from = :vf", "valid_until = :vu", "updated_at = :ua",
	}
	var remove []string
	if c.MinOrderAmount != nil {
		set = append(set, "min_order_amount = :min")
		values[":min"] = number(*c.MinOrderAmount)
	} else {
		remove = append(remove, "min_order_amount")
	}
	if c.MaxUses != nil {
		set = append(set, "max_uses = :max")
		values[":max"] = number(*c.MaxUses)
	} else {
		remove = append(remove, "max_uses")
	}

	expr := "SET " + strings.Join(set, ", ")
	if len(remove) > 0 {
		expr += " REMOVE " + strings.Join(remove, ", ")
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       codeKey(c.Code),
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("attribute_exists(code)"),
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	}, aws.SingleAttempt)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return Code{}, ErrNotFound
		}
		return Code{}, fmt.Errorf("update promo code: %w", err)
	}

	var updated Code
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return Code{}, fmt.Errorf("unmarshal promo code: %w", err)
	}
	return updated, nil
}

// Deactivate switches a code off without deleting it.
func (s *Store) Deactivate(ctx context.Context, code string) error {
	ua, err := attributevalue.Marshal(s.nowFunc())
	if err != nil {
		return fmt.Errorf("marshal updated_at: %w", err)
	}
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 codeKey(NormalizeCode(code)),
		UpdateExpression:    awsString("SET is_active = :f, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(code)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":f":  &types.AttributeValueMemberBOOL{Value: false},
			":ua": ua,
		},
	}, aws.SingleAttempt)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("deactivate promo code: %w", err)
	}
	return nil
}

// Redeem increments the usage counter of code on behalf of a paid order. The
// increment and a redemption marker keyed by the order number are written in one
// transaction, so replays return (false, nil) without counting again.
func (s *Store) Redeem(ctx context.Context, code, orderNumber string) (bool, error) {
	claim, err := s.claims.ClaimWriteItem(idempotency.PromoRedemptionKey(orderNumber), orderNumber)
	if err != nil {
		return false, err
	}
	ua, err := attributevalue.Marshal(s.nowFunc())
	if err != nil {
		return false, fmt.Errorf("marshal updated_at: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			claim,
			{
				Update: &types.Update{
					TableName:           &s.tableName,
					Key:                 codeKey(NormalizeCode(code)),
					UpdateExpression:    awsString("SET current_uses = if_not_exists(current_uses, :zero) + :inc, updated_at = :ua"),
					ConditionExpression: awsString("attribute_exists(code)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":zero": number(0),
						":inc":  number(1),
						":ua":   ua,
					},
				},
			},
		},
	}, aws.SingleAttempt)
	if err != nil {
		if idempotency.IsClaimConflict(err, 0) {
			return false, nil
		}
		if idempotency.IsClaimConflict(err, 1) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("redeem promo code: %w", err)
	}
	return true, nil
}

func number(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func awsString(s string) *string { return &s }
