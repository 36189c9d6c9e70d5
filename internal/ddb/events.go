// Package ddb holds the DynamoDB side of result export: the item layout
// written per search result, a batch writer, and the stream event types
// consumed by the indexing function.
package ddb

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

// DynamoDBEvent represents a DynamoDB stream event
type DynamoDBEvent struct {
	Records []DynamoDBEventRecord `json:"Records"`
}

// DynamoDBEventRecord represents a single DynamoDB stream record
type DynamoDBEventRecord struct {
	AWSRegion      string               `json:"awsRegion"`
	Change         DynamoDBStreamRecord `json:"dynamodb"`
	EventID        string               `json:"eventID"`
	EventName      string               `json:"eventName"`
	EventSource    string               `json:"eventSource"`
	EventVersion   string               `json:"eventVersion"`
	EventSourceArn string               `json:"eventSourceARN"`
}

// DynamoDBStreamRecord represents the DynamoDB stream data
type DynamoDBStreamRecord struct {
	ApproximateCreationDateTime int64        `json:"ApproximateCreationDateTime,omitempty"`
	Keys                        AttributeMap `json:"Keys,omitempty"`
	NewImage                    AttributeMap `json:"NewImage,omitempty"`
	OldImage                    AttributeMap `json:"OldImage,omitempty"`
	SequenceNumber              string       `json:"SequenceNumber"`
	SizeBytes                   int64        `json:"SizeBytes"`
	StreamViewType              string       `json:"StreamViewType"`
}

// DynamoDBOperationType represents the type of DynamoDB operation
type DynamoDBOperationType string

const (
	DynamoDBOperationTypeInsert DynamoDBOperationType = "INSERT"
	DynamoDBOperationTypeModify DynamoDBOperationType = "MODIFY"
	DynamoDBOperationTypeRemove DynamoDBOperationType = "REMOVE"
)

// AttributeMap is an item image in the DynamoDB JSON wire format.
type AttributeMap map[string]types.AttributeValue

// UnmarshalJSON decodes {"name": {"S": "..."}, ...}.
func (m *AttributeMap) UnmarshalJSON(data []byte) error {
	decoded, err := UnmarshalAttributeValueMap(data)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// wireValue is one attribute value in DynamoDB JSON.
type wireValue struct {
	S    *string              `json:"S,omitempty"`
	N    *string              `json:"N,omitempty"`
	B    []byte               `json:"B,omitempty"`
	BOOL *bool                `json:"BOOL,omitempty"`
	NULL *bool                `json:"NULL,omitempty"`
	M    map[string]wireValue `json:"M,omitempty"`
	L    []wireValue          `json:"L,omitempty"`
	SS   []string             `json:"SS,omitempty"`
	NS   []string             `json:"NS,omitempty"`
	BS   [][]byte             `json:"BS,omitempty"`
}

// UnmarshalAttributeValueMap converts DynamoDB JSON into SDK attribute values.
func UnmarshalAttributeValueMap(data []byte) (map[string]types.AttributeValue, error) {
	var raw map[string]wireValue
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode attribute map")
	}
	if raw == nil {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(raw))
	for k, v := range raw {
		av, err := v.toAttributeValue()
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", k)
		}
		out[k] = av
	}
	return out, nil
}

func (w wireValue) toAttributeValue() (types.AttributeValue, error) {
	switch {
	case w.S != nil:
		return &types.AttributeValueMemberS{Value: *w.S}, nil
	case w.N != nil:
		return &types.AttributeValueMemberN{Value: *w.N}, nil
	case w.BOOL != nil:
		return &types.AttributeValueMemberBOOL{Value: *w.BOOL}, nil
	case w.NULL != nil:
		return &types.AttributeValueMemberNULL{Value: *w.NULL}, nil
	case w.B != nil:
		return &types.AttributeValueMemberB{Value: w.B}, nil
	case w.M != nil:
		m := make(map[string]types.AttributeValue, len(w.M))
		for k, v := range w.M {
			av, err := v.toAttributeValue()
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case w.L != nil:
		l := make([]types.AttributeValue, 0, len(w.L))
		for _, v := range w.L {
			av, err := v.toAttributeValue()
			if err != nil {
				return nil, err
			}
			l = append(l, av)
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	case w.SS != nil:
		return &types.AttributeValueMemberSS{Value: w.SS}, nil
	case w.NS != nil:
		return &types.AttributeValueMemberNS{Value: w.NS}, nil
	case w.BS != nil:
		return &types.AttributeValueMemberBS{Value: w.BS}, nil
	}
	return nil, errors.New("attribute value has no recognised type")
}

// UnmarshalItem converts a stream image or key set into an Item.
func UnmarshalItem(image map[string]types.AttributeValue) (Item, error) {
	var item Item
	if err := attributevalue.UnmarshalMap(image, &item); err != nil {
		return Item{}, errors.Wrap(err, "failed to unmarshal item")
	}
	return item, nil
}
