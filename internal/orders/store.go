package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/imrishuroy/go-order-gateway/internal/attr"
	"github.com/imrishuroy/go-order-gateway/internal/aws"
)

// Store is the key-value boundary the operations depend on. Every method
// returns the backend's HTTP status; 200 means success. A non-nil error with
// a non-zero status is a failure reported by the backend, a non-nil error
// with status 0 never reached it.
type Store interface {
	Get(ctx context.Context, userID, orderID string) (attr.Map, int, error)
	Put(ctx context.Context, item attr.Map) (int, error)
	Delete(ctx context.Context, userID, orderID string) (int, error)
}

// DynamoStore implements Store on a DynamoDB table with partition key
// user_id and sort key order_id.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// Get fetches an order item. Returns a nil map if not found.
func (s *DynamoStore) Get(ctx context.Context, userID, orderID string) (attr.Map, int, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(userID, orderID),
	})
	if err != nil {
		return nil, StatusFromError(err), fmt.Errorf("get item: %w", err)
	}
	status := statusFromMetadata(out.ResultMetadata)
	if len(out.Item) == 0 {
		return nil, status, nil
	}
	return attr.FromDynamoMap(out.Item), status, nil
}

// Put writes item, replacing any existing item with the same key.
func (s *DynamoStore) Put(ctx context.Context, item attr.Map) (int, error) {
	out, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      attr.ToDynamoMap(item),
	})
	if err != nil {
		return StatusFromError(err), fmt.Errorf("put item: %w", err)
	}
	return statusFromMetadata(out.ResultMetadata), nil
}

// Delete removes an order item. Deleting a missing key succeeds.
func (s *DynamoStore) Delete(ctx context.Context, userID, orderID string) (int, error) {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       orderKey(userID, orderID),
	})
	if err != nil {
		return StatusFromError(err), fmt.Errorf("delete item: %w", err)
	}
	return statusFromMetadata(out.ResultMetadata), nil
}

func orderKey(userID, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrUserID:  &types.AttributeValueMemberS{Value: userID},
		AttrOrderID: &types.AttributeValueMemberS{Value: orderID},
	}
}

// StatusFromError extracts the HTTP status of a failed service call, or 0
// when the call failed before a response was received.
func StatusFromError(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

// statusFromMetadata reads the raw HTTP status recorded by the SDK. Clients
// that do not record one (test doubles) are treated as 200.
func statusFromMetadata(md middleware.Metadata) int {
	if resp, ok := awsmiddleware.GetRawResponse(md).(*smithyhttp.Response); ok && resp.Response != nil {
		return resp.StatusCode
	}
	return http.StatusOK
}
