package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
)

// DynamoPendingRepository stores signup challenges in the single DynamoDB table under
// PK "PENDING#<kind>:<phone>". DynamoDB TTL deletion is lazy, so reads also check the
// retention deadline.
type DynamoPendingRepository struct {
	client    *dynamodb.Client
	tableName string
	retention time.Duration
	logger    *logrus.Logger
}

func NewDynamoPendingRepository(client *dynamodb.Client, tableName string, retention time.Duration, logger *logrus.Logger) *DynamoPendingRepository {
	return &DynamoPendingRepository{
		client:    client,
		tableName: tableName,
		retention: retention,
		logger:    logger,
	}
}

type pendingItem struct {
	models.PendingVerification
	TTL int64 `dynamodbav:"TTL"`
}

func (r *DynamoPendingRepository) Put(ctx context.Context, p *models.PendingVerification) error {
	item, err := attributevalue.MarshalMap(pendingItem{
		PendingVerification: *p,
		TTL:                 p.CreatedAt.Add(r.retention).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal pending verification: %w", err)
	}
	for k, v := range r.itemKey(p.Kind, p.Phone) {
		item[k] = v
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store pending verification in DynamoDB")
		return fmt.Errorf("failed to store pending verification: %w", err)
	}

	return nil
}

func (r *DynamoPendingRepository) Get(ctx context.Context, kind models.Kind, phone string) (*models.PendingVerification, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.itemKey(kind, phone),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pending verification: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item pendingItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending verification: %w", err)
	}
	if time.Now().Unix() >= item.TTL {
		return nil, nil
	}

	return &item.PendingVerification, nil
}

func (r *DynamoPendingRepository) Consume(ctx context.Context, kind models.Kind, phone, id string) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.itemKey(kind, phone),
		ConditionExpression: aws.String("id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete pending verification: %w", err)
	}

	return true, nil
}

func (r *DynamoPendingRepository) itemKey(kind models.Kind, phone string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "PENDING#" + pendingKey(kind, phone)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}
