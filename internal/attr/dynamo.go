package attr

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FromDynamo converts a DynamoDB attribute into a Value. String and number
// sets become lists; binary attributes have no variant here and become Null.
func FromDynamo(av types.AttributeValue) Value {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return String(tv.Value)
	case *types.AttributeValueMemberN:
		return Number(tv.Value)
	case *types.AttributeValueMemberBOOL:
		return Bool(tv.Value)
	case *types.AttributeValueMemberL:
		out := make(List, 0, len(tv.Value))
		for _, v := range tv.Value {
			out = append(out, FromDynamo(v))
		}
		return out
	case *types.AttributeValueMemberM:
		return FromDynamoMap(tv.Value)
	case *types.AttributeValueMemberSS:
		out := make(List, 0, len(tv.Value))
		for _, s := range tv.Value {
			out = append(out, String(s))
		}
		return out
	case *types.AttributeValueMemberNS:
		out := make(List, 0, len(tv.Value))
		for _, n := range tv.Value {
			out = append(out, Number(n))
		}
		return out
	default:
		return Null{}
	}
}

// FromDynamoMap converts a DynamoDB item. A nil item yields a nil Map.
func FromDynamoMap(item map[string]types.AttributeValue) Map {
	if item == nil {
		return nil
	}
	out := make(Map, len(item))
	for k, v := range item {
		out[k] = FromDynamo(v)
	}
	return out
}

// ToDynamo converts a Value into its DynamoDB attribute. A nil Value is
// written as NULL.
func ToDynamo(v Value) types.AttributeValue {
	switch tv := v.(type) {
	case String:
		return &types.AttributeValueMemberS{Value: string(tv)}
	case Number:
		return &types.AttributeValueMemberN{Value: string(tv)}
	case Bool:
		return &types.AttributeValueMemberBOOL{Value: bool(tv)}
	case List:
		out := make([]types.AttributeValue, 0, len(tv))
		for _, e := range tv {
			out = append(out, ToDynamo(e))
		}
		return &types.AttributeValueMemberL{Value: out}
	case Map:
		return &types.AttributeValueMemberM{Value: ToDynamoMap(tv)}
	default:
		return &types.AttributeValueMemberNULL{Value: true}
	}
}

// ToDynamoMap converts a Map into a DynamoDB item.
func ToDynamoMap(m Map) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		out[k] = ToDynamo(v)
	}
	return out
}
