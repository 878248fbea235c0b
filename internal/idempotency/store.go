// Package idempotency de-duplicates create requests that carry an
// Idempotency-Key header, using a DynamoDB table with a TTL attribute.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/imrishuroy/go-order-gateway/internal/aws"
)

// ErrNotClaimed is returned by Finish calls on a key the caller no longer owns.
var ErrNotClaimed = errors.New("idempotency key not claimed")

// Store encapsulates idempotency operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow is how long a key is remembered, e.g. 48*time.Hour.
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Claim writes an IN_PROGRESS record for key. It succeeds when the key is
// unknown, previously FAILED, or expired but not yet removed by TTL.
// Returns (false, nil) when another request holds or completed the key; the
// caller should Get the record to decide what to answer.
func (s *Store) Claim(ctx context.Context, key string) (bool, error) {
	now := s.nowFunc().UTC()
	rec := Record{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name(attrKey)).
		Or(expression.Name(attrStatus).Equal(expression.Value(StatusFailed))).
		Or(expression.Name(attrExpiresAt).LessThan(expression.Value(now.Unix())))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return false, fmt.Errorf("build claim condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                 &s.tableName,
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Get retrieves an idempotency record by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkDone stores the final response for key and flips it to DONE.
func (s *Store) MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error {
	update := expression.Set(expression.Name(attrStatus), expression.Value(StatusDone)).
		Set(expression.Name("response_body"), expression.Value(responseBody)).
		Set(expression.Name("response_status"), expression.Value(responseStatus)).
		Set(expression.Name("updated_at"), expression.Value(s.nowFunc().UTC()))
	if orderID != "" {
		update = update.Set(expression.Name("order_id"), expression.Value(orderID))
	}
	if err := s.finish(ctx, key, update); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// MarkFailed releases key so a retry can claim it again.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	update := expression.Set(expression.Name(attrStatus), expression.Value(StatusFailed)).
		Set(expression.Name("updated_at"), expression.Value(s.nowFunc().UTC()))
	if note != "" {
		update = update.Set(expression.Name("note"), expression.Value(note))
	}
	if err := s.finish(ctx, key, update); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// finish applies update only while the record is still IN_PROGRESS.
func (s *Store) finish(ctx context.Context, key string, update expression.UpdateBuilder) error {
	cond := expression.Name(attrStatus).Equal(expression.Value(StatusInProgress))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       s.key(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrNotClaimed
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *Store) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: key},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func awsBool(b bool) *bool { return &b }
