package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"secretdrop/internal/infra/metrics"
)

const pkAttr = "pk" // Partition key attribute

// dynamoItem is the persisted shape of a secret. Exp carries the
// DynamoDB-native TTL timestamp (zero when expiry is disabled).
type dynamoItem struct {
	PK      string `dynamodbav:"pk"`
	Payload []byte `dynamodbav:"payload"`
	Exp     int64  `dynamodbav:"exp,omitempty"`
}

// DynamoStore implements Store on a DynamoDB table with the partition
// key "pk". Exactly-once delivery relies on DeleteItem with
// ReturnValues=ALL_OLD: the read and the removal are a single
// conditional write, so concurrent takers cannot both receive the item.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
	ttl    time.Duration

	createdCount   atomic.Int64
	retrievedCount atomic.Int64
}

func NewDynamoStore(client *dynamodb.Client, table string, ttl time.Duration) *DynamoStore {
	return &DynamoStore{
		client: client,
		table:  table,
		ttl:    ttl,
	}
}

// Put stores the payload under a new UUIDv4 id. The conditional write
// guards against the (negligible) chance of an id collision.
func (d *DynamoStore) Put(ctx context.Context, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	id := uuid.NewString()
	it := dynamoItem{PK: id, Payload: payload}
	if d.ttl > 0 {
		it.Exp = time.Now().Add(d.ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return "", fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": pkAttr,
		},
	})
	if err != nil {
		var condFail *types.ConditionalCheckFailedException
		if errors.As(err, &condFail) {
			return "", errors.New("secret id already in use")
		}
		return "", fmt.Errorf("PutItem failed: %w", err)
	}

	d.createdCount.Add(1)
	metrics.SecretsCreated.Inc()
	return id, nil
}

// Take removes the item and returns its previous value in one round
// trip. DynamoDB reaps TTL-expired items lazily, so an expired item may
// still come back from the delete; it is filtered here.
func (d *DynamoStore) Take(ctx context.Context, id string) ([]byte, error) {
	out, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			pkAttr: &types.AttributeValueMemberS{Value: id},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, fmt.Errorf("DeleteItem failed: %w", err)
	}

	if len(out.Attributes) == 0 {
		return nil, ErrNotFound
	}

	var it dynamoItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	if it.Exp > 0 && it.Exp < time.Now().Unix() {
		metrics.SecretsExpired.Inc()
		return nil, ErrNotFound
	}

	d.retrievedCount.Add(1)
	metrics.SecretsRetrieved.Inc()
	return it.Payload, nil
}

// Stats reports process-local counters; the table itself is unbounded.
func (d *DynamoStore) Stats() Stats {
	return Stats{
		Created:   d.createdCount.Load(),
		Retrieved: d.retrievedCount.Load(),
	}
}
