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

// PredictionRepo stores classification results.
// PK: prediction_id, GSI: account_id-created_at-index (anonymous rows carry no account_id).
type PredictionRepo struct {
	client    API
	tableName string
}

func NewPredictionRepo(client API, tableName string) *PredictionRepo {
	return &PredictionRepo{client: client, tableName: tableName}
}

func (r *PredictionRepo) Put(ctx context.Context, p *domain.Prediction) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PredictionRepo) Get(ctx context.Context, predictionID string) (*domain.Prediction, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldPredictionID, predictionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("prediction not found: %w", domain.ErrNotFound)
	}
	var p domain.Prediction
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByAccount returns the account's predictions, newest first.
func (r *PredictionRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Prediction, error) {
	items, err := queryAll(ctx, r.client, r.byAccount(accountID))
	if err != nil {
		return nil, err
	}
	preds := make([]domain.Prediction, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &preds); err != nil {
		return nil, err
	}
	return preds, nil
}

// Tally counts predictions by result. An empty accountID tallies the whole table.
func (r *PredictionRepo) Tally(ctx context.Context, accountID string) (domain.PredictionTally, error) {
	var (
		items []map[string]types.AttributeValue
		err   error
	)
	if accountID == "" {
		items, err = scanAll(ctx, r.client, &dynamodb.ScanInput{
			TableName:                aws.String(r.tableName),
			ProjectionExpression:     aws.String("#r"),
			ExpressionAttributeNames: map[string]string{"#r": fieldResult},
		})
	} else {
		in := r.byAccount(accountID)
		in.ProjectionExpression = aws.String("#r")
		in.ExpressionAttributeNames["#r"] = fieldResult
		items, err = queryAll(ctx, r.client, in)
	}
	if err != nil {
		return domain.PredictionTally{}, err
	}

	var t domain.PredictionTally
	for _, it := range items {
		t.Total++
		if v, ok := it[fieldResult].(*types.AttributeValueMemberS); ok {
			switch v.Value {
			case domain.ResultTumor:
				t.Tumor++
			case domain.ResultNoTumor:
				t.NoTumor++
			}
		}
	}
	return t, nil
}

func (r *PredictionRepo) byAccount(accountID string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexAccountCreatedAt),
		KeyConditionExpression:    aws.String("#a = :a"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldAccountID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":a": strVal(accountID)},
		ScanIndexForward:          aws.Bool(false),
	}
}
