package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	batchWriteLimit = 25
	maxBatchRetries = 5
)

// scanAll pages through a Scan and returns every matching item.
func scanAll(ctx context.Context, client API, input *dynamodb.ScanInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// queryAll pages through a Query and returns every matching item.
func queryAll(ctx context.Context, client API, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// countAll pages through a COUNT scan. filter may be empty.
func countAll(ctx context.Context, client API, table, filter string, names map[string]string, values map[string]types.AttributeValue) (int, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(table),
		Select:    types.SelectCount,
	}
	if filter != "" {
		input.FilterExpression = aws.String(filter)
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}
	total := 0
	for {
		out, err := client.Scan(ctx, input)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// keysOf extracts the string key attribute from each item, skipping items without it.
func keysOf(items []map[string]types.AttributeValue, keyAttr string) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if v, ok := it[keyAttr].(*types.AttributeValueMemberS); ok {
			ids = append(ids, v.Value)
		}
	}
	return ids
}

// batchDelete removes items by hash key in chunks of 25, resubmitting
// unprocessed requests a bounded number of times.
func batchDelete(ctx context.Context, client API, table, keyAttr string, ids []string) (int, error) {
	deleted := 0
	for start := 0; start < len(ids); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(ids) {
			end = len(ids)
		}
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, id := range ids[start:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: strKey(keyAttr, id)},
			})
		}

		pending := map[string][]types.WriteRequest{table: reqs}
		for attempt := 0; len(pending[table]) > 0; attempt++ {
			if attempt == maxBatchRetries {
				return deleted, fmt.Errorf("batch delete on %s: %d requests left unprocessed", table, len(pending[table]))
			}
			out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return deleted, err
			}
			deleted += len(pending[table]) - len(out.UnprocessedItems[table])
			pending = out.UnprocessedItems
		}
	}
	return deleted, nil
}

// deleteOlderThan removes every item whose created_at (Unix seconds) is before cutoff.
func deleteOlderThan(ctx context.Context, client API, table, keyAttr string, cutoff time.Time) (int, error) {
	items, err := scanAll(ctx, client, &dynamodb.ScanInput{
		TableName:            aws.String(table),
		FilterExpression:     aws.String("#c < :cutoff"),
		ProjectionExpression: aws.String("#k"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldCreatedAt,
			"#k": keyAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.Unix(), 10)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", table, err)
	}
	return batchDelete(ctx, client, table, keyAttr, keysOf(items, keyAttr))
}
