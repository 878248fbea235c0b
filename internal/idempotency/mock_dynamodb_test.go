package idempotency

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory stand-in for the idempotency table. It
// understands only the conditions and SET updates Store issues.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	err         error
	putCalls    int
	getCalls    int
	updateCalls int
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func keyOf(item map[string]types.AttributeValue) (string, error) {
	keyAttr, ok := item[attrKey].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing key")
	}
	return keyAttr.Value, nil
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.err != nil {
		return nil, m.err
	}
	k, err := keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	if existing, ok := m.table[k]; ok && params.ConditionExpression != nil && !claimable(existing, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

// claimable mirrors the claim condition: FAILED, or expires_at earlier than
// the epoch value passed with the request.
func claimable(existing map[string]types.AttributeValue, values map[string]types.AttributeValue) bool {
	if strAttr(existing, attrStatus) == StatusFailed {
		return true
	}
	exp, ok := existing[attrExpiresAt].(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	expiresAt, _ := strconv.ParseInt(exp.Value, 10, 64)
	for _, v := range values {
		if n, ok := v.(*types.AttributeValueMemberN); ok {
			now, _ := strconv.ParseInt(n.Value, 10, 64)
			if expiresAt < now {
				return true
			}
		}
	}
	return false
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	return nil, errors.New("DeleteItem not supported by idempotency mock")
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.err != nil {
		return nil, m.err
	}
	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if params.ConditionExpression != nil && (!ok || strAttr(item, attrStatus) != StatusInProgress) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if !ok {
		item = map[string]types.AttributeValue{attrKey: params.Key[attrKey]}
	}

	// SET #0 = :0, #1 = :1
	expr := strings.TrimSpace(deref(params.UpdateExpression))
	expr = strings.TrimPrefix(expr, "SET ")
	for _, clause := range strings.Split(expr, ",") {
		parts := strings.SplitN(strings.TrimSpace(clause), " = ", 2)
		if len(parts) != 2 {
			return nil, errors.New("unsupported update expression: " + expr)
		}
		item[params.ExpressionAttributeNames[parts[0]]] = params.ExpressionAttributeValues[parts[1]]
	}
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
