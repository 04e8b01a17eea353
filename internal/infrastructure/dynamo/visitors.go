package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/neuroscan-api/internal/domain"
)

// VisitorRepo records site visits. PK: visitor_id, GSI: session_id-index.
type VisitorRepo struct {
	client    API
	tableName string
}

func NewVisitorRepo(client API, tableName string) *VisitorRepo {
	return &VisitorRepo{client: client, tableName: tableName}
}

func (r *VisitorRepo) Put(ctx context.Context, v *domain.Visitor) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal visitor: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VisitorRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Visitor, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexSession),
		KeyConditionExpression:    aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": fieldSessionID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": strVal(sessionID)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("visitor not found: %w", domain.ErrNotFound)
	}
	var v domain.Visitor
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VisitorRepo) Count(ctx context.Context) (int, error) {
	return countAll(ctx, r.client, r.tableName, "", nil, nil)
}
