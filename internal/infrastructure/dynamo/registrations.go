package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/neuroscan-api/internal/domain"
)

// RegistrationRepo stores pending sign-ups.
// PK: registration_id, GSI: email-index.
type RegistrationRepo struct {
	client    API
	tableName string
}

func NewRegistrationRepo(client API, tableName string) *RegistrationRepo {
	return &RegistrationRepo{client: client, tableName: tableName}
}

func (r *RegistrationRepo) Put(ctx context.Context, reg *domain.Registration) error {
	item, err := attributevalue.MarshalMap(reg)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}
	putCreatedNanos(item, reg.CreatedAt)
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RegistrationRepo) Get(ctx context.Context, registrationID string) (*domain.Registration, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldRegistrationID, registrationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("registration not found: %w", domain.ErrNotFound)
	}
	var reg domain.Registration
	if err := attributevalue.UnmarshalMap(out.Item, &reg); err != nil {
		return nil, err
	}
	reg.CreatedAt = createdNanos(out.Item, reg.CreatedAt)
	return &reg, nil
}

func (r *RegistrationRepo) Delete(ctx context.Context, registrationID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldRegistrationID, registrationID),
	})
	return err
}

// GetByEmail returns a pending registration for email.
func (r *RegistrationRepo) GetByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmail),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": strVal(email)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("registration not found: %w", domain.ErrNotFound)
	}
	var reg domain.Registration
	if err := attributevalue.UnmarshalMap(out.Items[0], &reg); err != nil {
		return nil, err
	}
	reg.CreatedAt = createdNanos(out.Items[0], reg.CreatedAt)
	return &reg, nil
}

// DeleteByEmail removes every pending registration for email.
func (r *RegistrationRepo) DeleteByEmail(ctx context.Context, email string) (int, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmail),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": strVal(email)},
	})
	if err != nil {
		return 0, err
	}
	return batchDelete(ctx, r.client, r.tableName, fieldRegistrationID, keysOf(items, fieldRegistrationID))
}

func (r *RegistrationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return deleteOlderThan(ctx, r.client, r.tableName, fieldRegistrationID, cutoff)
}
