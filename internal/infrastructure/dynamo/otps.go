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

// OTPRepo stores one-time codes.
// PK: otp_id, GSI: subject_id-purpose-index. expires_at is the table TTL attribute.
type OTPRepo struct {
	client    API
	tableName string
}

func NewOTPRepo(client API, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, c *domain.OneTimeCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	putCreatedNanos(item, c.CreatedAt)
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Find returns the code record matching subject, purpose and code exactly.
func (r *OTPRepo) Find(ctx context.Context, subjectID string, purpose domain.Purpose, code string) (*domain.OneTimeCode, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexSubjectPurpose),
		KeyConditionExpression: aws.String("#s = :s AND #p = :p"),
		FilterExpression:       aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldSubjectID,
			"#p": fieldPurpose,
			"#c": fieldCode,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": strVal(subjectID),
			":p": strVal(string(purpose)),
			":c": strVal(code),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var c domain.OneTimeCode
	if err := attributevalue.UnmarshalMap(items[0], &c); err != nil {
		return nil, err
	}
	c.CreatedAt = createdNanos(items[0], c.CreatedAt)
	return &c, nil
}

func (r *OTPRepo) Delete(ctx context.Context, codeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldOTPID, codeID),
	})
	return err
}

// DeleteBySubject removes every code issued to subjectID for purpose.
func (r *OTPRepo) DeleteBySubject(ctx context.Context, subjectID string, purpose domain.Purpose) (int, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexSubjectPurpose),
		KeyConditionExpression: aws.String("#s = :s AND #p = :p"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldSubjectID,
			"#p": fieldPurpose,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": strVal(subjectID),
			":p": strVal(string(purpose)),
		},
	})
	if err != nil {
		return 0, err
	}
	return batchDelete(ctx, r.client, r.tableName, fieldOTPID, keysOf(items, fieldOTPID))
}

func (r *OTPRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return deleteOlderThan(ctx, r.client, r.tableName, fieldOTPID, cutoff)
}
