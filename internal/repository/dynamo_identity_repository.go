package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
)

// DynamoIdentityRepository stores one identity kind in a single DynamoDB table with
// PK "<KIND>!<phone>" and SK "METADATA". The phone-keyed PK makes uniqueness a
// conditional put; lookups by id scan the kind's prefix.
type DynamoIdentityRepository struct {
	client    *dynamodb.Client
	tableName string
	kind      models.Kind
	logger    *logrus.Logger
}

func NewDynamoIdentityRepository(client *dynamodb.Client, tableName string, kind models.Kind, logger *logrus.Logger) *DynamoIdentityRepository {
	return &DynamoIdentityRepository{
		client:    client,
		tableName: tableName,
		kind:      kind,
		logger:    logger,
	}
}

func (r *DynamoIdentityRepository) prefix() string {
	return strings.ToUpper(string(r.kind)) + "!"
}

func (r *DynamoIdentityRepository) itemKey(phone string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: r.prefix() + phone},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func (r *DynamoIdentityRepository) FindByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.itemKey(phone),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get identity from DynamoDB")
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var identity models.Identity
	if err := attributevalue.UnmarshalMap(result.Item, &identity); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal identity from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}

	return &identity, nil
}

func (r *DynamoIdentityRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	identities, err := r.scan(ctx, "begins_with(PK, :prefix) AND id = :id", map[string]types.AttributeValue{
		":prefix": &types.AttributeValueMemberS{Value: r.prefix()},
		":id":     &types.AttributeValueMemberS{Value: id},
	})
	if err != nil {
		return nil, err
	}
	if len(identities) == 0 {
		return nil, nil
	}
	return &identities[0], nil
}

func (r *DynamoIdentityRepository) FindAll(ctx context.Context) ([]models.Identity, error) {
	return r.scan(ctx, "begins_with(PK, :prefix)", map[string]types.AttributeValue{
		":prefix": &types.AttributeValueMemberS{Value: r.prefix()},
	})
}

func (r *DynamoIdentityRepository) scan(ctx context.Context, filter string, values map[string]types.AttributeValue) ([]models.Identity, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
	})

	identities := []models.Identity{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identities: %w", err)
		}
		var batch []models.Identity
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal identities: %w", err)
		}
		identities = append(identities, batch...)
	}

	return identities, nil
}

func (r *DynamoIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	identity.Kind = r.kind
	identity.CreatedAt = now
	identity.UpdatedAt = now

	err := r.put(ctx, identity, "attribute_not_exists(PK)", nil)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDuplicatePhone
		}
		r.logger.WithError(err).Error("Failed to create identity in DynamoDB")
		return fmt.Errorf("failed to create identity: %w", err)
	}

	return nil
}

func (r *DynamoIdentityRepository) Save(ctx context.Context, identity *models.Identity) error {
	identity.UpdatedAt = time.Now().UTC()

	err := r.put(ctx, identity, "attribute_exists(PK) AND id = :id", map[string]types.AttributeValue{
		":id": &types.AttributeValueMemberS{Value: identity.ID},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		r.logger.WithError(err).Error("Failed to save identity in DynamoDB")
		return fmt.Errorf("failed to save identity: %w", err)
	}

	return nil
}

func (r *DynamoIdentityRepository) put(ctx context.Context, identity *models.Identity, condition string, values map[string]types.AttributeValue) error {
	item, err := attributevalue.MarshalMap(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	for k, v := range r.itemKey(identity.Phone) {
		item[k] = v
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
	})
	return err
}

func (r *DynamoIdentityRepository) UpdateByID(ctx context.Context, id string, update models.ProfileUpdate) (*models.Identity, error) {
	identity, err := r.FindByID(ctx, id)
	if err != nil || identity == nil {
		return nil, err
	}

	update.Apply(identity)
	if err := r.Save(ctx, identity); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return identity, nil
}

func (r *DynamoIdentityRepository) DeleteByID(ctx context.Context, id string) error {
	identity, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if identity == nil {
		return ErrNotFound
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       r.itemKey(identity.Phone),
	})
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}

	return nil
}

func (r *DynamoIdentityRepository) ClearOTP(ctx context.Context, identity *models.Identity) (bool, error) {
	if identity.OTP == nil {
		return false, nil
	}

	updatedAt, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.itemKey(identity.Phone),
		UpdateExpression:    aws.String("REMOVE #otp SET updated_at = :updated_at"),
		ConditionExpression: aws.String("id = :id AND #otp.code_hash = :hash"),
		ExpressionAttributeNames: map[string]string{
			"#otp": "otp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id":         &types.AttributeValueMemberS{Value: identity.ID},
			":hash":       &types.AttributeValueMemberS{Value: identity.OTP.CodeHash},
			":updated_at": updatedAt,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		r.logger.WithError(err).Error("Failed to clear OTP in DynamoDB")
		return false, fmt.Errorf("failed to clear OTP: %w", err)
	}

	return true, nil
}
