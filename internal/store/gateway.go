// Package store is the document store gateway: filtered reads, single-item
// inserts and single-item field updates over DynamoDB tables. It carries no
// business rules.
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/bookcourier/courier-api/internal/aws"
)

// IDAttr is the identifier attribute every document carries.
const IDAttr = "_id"

// ErrConditionFailed indicates a conditional write failed (e.g. attribute_not_exists).
var ErrConditionFailed = errors.New("conditional check failed")

// InsertResult is returned to clients after a single-document insert.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult is returned to clients after a single-document update.
// MatchedCount is 0 when no document has the given key.
type UpdateResult struct {
	Acknowledged  bool `json:"acknowledged"`
	MatchedCount  int  `json:"matchedCount"`
	ModifiedCount int  `json:"modifiedCount"`
}

// NewID returns an opaque 24-hex-character document identifier.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:12])
}

// Gateway wraps the shared DynamoDB client.
type Gateway struct {
	client aws.DynamoDBAPI
}

// New returns a Gateway over client.
func New(client aws.DynamoDBAPI) *Gateway {
	return &Gateway{client: client}
}

// Client exposes the underlying DynamoDB client for multi-table transactions.
func (g *Gateway) Client() aws.DynamoDBAPI { return g.client }

// Get fetches the item whose key attribute equals key with a strongly
// consistent read, so a write acknowledged earlier is always visible.
// Returns (nil, nil) if not found.
func (g *Gateway) Get(ctx context.Context, table, keyAttr, key string) (map[string]types.AttributeValue, error) {
	out, err := g.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &table,
		ConsistentRead: awsBool(true),
		Key: map[string]types.AttributeValue{
			keyAttr: &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// Insert puts item only if no item with the same key attribute exists.
// Returns ErrConditionFailed on a key collision.
func (g *Gateway) Insert(ctx context.Context, table, keyAttr string, item map[string]types.AttributeValue) error {
	_, err := g.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &table,
		Item:                     item,
		ConditionExpression:      awsString("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": keyAttr},
	})
	if err != nil {
		if IsConditionFailed(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Update sets the given fields on the item whose key attribute equals key.
// A missing item is reported through UpdateResult.MatchedCount, not as an error.
func (g *Gateway) Update(ctx context.Context, table, keyAttr, key string, set map[string]any) (UpdateResult, error) {
	return g.UpdateWhere(ctx, table, keyAttr, key, set, nil)
}

// UpdateWhere is Update restricted to an item whose attributes equal every
// value in where. An item failing the guard is reported like a missing one.
func (g *Gateway) UpdateWhere(ctx context.Context, table, keyAttr, key string, set, where map[string]any) (UpdateResult, error) {
	if len(set) == 0 {
		return UpdateResult{}, errors.New("update with no fields")
	}

	names := map[string]string{"#pk": keyAttr}
	values := map[string]types.AttributeValue{}

	assignments, err := bindClauses(sortedKeys(set), set, "f", "v", names, values)
	if err != nil {
		return UpdateResult{}, err
	}
	expr := "SET " + strings.Join(assignments, ", ")

	guards, err := bindClauses(sortedKeys(where), where, "c", "w", names, values)
	if err != nil {
		return UpdateResult{}, err
	}
	cond := strings.Join(append([]string{"attribute_exists(#pk)"}, guards...), " AND ")

	_, err = g.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &table,
		Key: map[string]types.AttributeValue{
			keyAttr: &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression:          &expr,
		ConditionExpression:       &cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if IsConditionFailed(err) {
			return UpdateResult{Acknowledged: true}, nil
		}
		return UpdateResult{}, fmt.Errorf("update item: %w", err)
	}
	return UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

// bindClauses renders "#<np>i = :<vp>i" for each field, registering the
// placeholders in names and values.
func bindClauses(fields []string, m map[string]any, np, vp string, names map[string]string, values map[string]types.AttributeValue) ([]string, error) {
	out := make([]string, 0, len(fields))
	for i, f := range fields {
		av, err := attributevalue.Marshal(m[f])
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f, err)
		}
		n, v := fmt.Sprintf("#%s%d", np, i), fmt.Sprintf(":%s%d", vp, i)
		names[n] = f
		values[v] = av
		out = append(out, n+" = "+v)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// QueryEq returns every item of a secondary index whose attr equals value.
func (g *Gateway) QueryEq(ctx context.Context, table, index, attr, value string) ([]map[string]types.AttributeValue, error) {
	input := &dyn.QueryInput{
		TableName:                 &table,
		IndexName:                 &index,
		KeyConditionExpression:    awsString("#k = :k"),
		ExpressionAttributeNames:  map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":k": &types.AttributeValueMemberS{Value: value}},
	}
	var items []map[string]types.AttributeValue
	for {
		out, err := g.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", index, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// ScanEq returns every item of table, restricted to attr == value when attr is set.
func (g *Gateway) ScanEq(ctx context.Context, table, attr, value string) ([]map[string]types.AttributeValue, error) {
	input := &dyn.ScanInput{TableName: &table}
	if attr != "" {
		input.FilterExpression = awsString("#k = :k")
		input.ExpressionAttributeNames = map[string]string{"#k": attr}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{":k": &types.AttributeValueMemberS{Value: value}}
	}
	var items []map[string]types.AttributeValue
	for {
		out, err := g.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// IsConditionFailed reports whether err is a DynamoDB conditional check failure.
func IsConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var api smithy.APIError
	return errors.As(err, &api) && api.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
