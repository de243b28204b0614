// Package dynamotest provides an in-memory DynamoDB stand-in for unit tests.
// It understands the expressions the stores in this module emit and nothing more.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// Fake stores items per table in a nested map: table -> pkValue -> item.
type Fake struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]item
	calls  map[string]int
	errs   map[string]error
	// frozen holds per-table snapshots served to eventually consistent reads.
	frozen map[string]map[string]item
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		keys:   map[string]string{},
		tables: map[string]map[string]item{},
		calls:  map[string]int{},
		errs:   map[string]error{},
		frozen: map[string]map[string]item{},
	}
}

// CreateTable registers table with its partition key attribute.
func (f *Fake) CreateTable(name, keyAttr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[name] = keyAttr
	if _, ok := f.tables[name]; !ok {
		f.tables[name] = map[string]item{}
	}
}

// Seed writes it directly, bypassing conditions.
func (f *Fake) Seed(table string, it map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk, err := f.pk(table, it)
	if err != nil {
		panic(err)
	}
	f.tables[table][pk] = copyItem(it)
}

// FreezeReads snapshots table as it is now. Until the Fake is discarded,
// GetItem without ConsistentRead, Query, and Scan without ConsistentRead see
// the snapshot while writes and consistent reads see the live table. This
// models a replica that has not caught up yet.
func (f *Fake) FreezeReads(table string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := map[string]item{}
	for k, it := range f.tables[table] {
		snap[k] = copyItem(it)
	}
	f.frozen[table] = snap
}

// rows returns the view of table a read sees.
func (f *Fake) rows(table string, consistent *bool) (map[string]item, bool) {
	if consistent == nil || !*consistent {
		if snap, ok := f.frozen[table]; ok {
			return snap, true
		}
	}
	rows, ok := f.tables[table]
	return rows, ok
}

// Item returns a copy of the stored item, or nil.
func (f *Fake) Item(table, key string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.tables[table][key]
	if !ok {
		return nil
	}
	return copyItem(it)
}

// Len returns the number of items in table.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

// Calls returns how many times op (e.g. "PutItem") was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// FailOn makes every later call of op return err. A nil err clears it.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

func (f *Fake) enter(op string) error {
	f.calls[op]++
	return f.errs[op]
}

func (f *Fake) pk(table string, it item) (string, error) {
	keyAttr, ok := f.keys[table]
	if !ok {
		return "", fmt.Errorf("dynamotest: unknown table %q", table)
	}
	s, ok := it[keyAttr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("dynamotest: table %q: missing string key %q", table, keyAttr)
	}
	return s.Value, nil
}

func (f *Fake) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := f.pk(table, params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil {
		ok, err := eval(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, f.tables[table][pk])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.tables[table][pk] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *Fake) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := f.pk(table, params.Key)
	if err != nil {
		return nil, err
	}
	rows, _ := f.rows(table, params.ConsistentRead)
	it, ok := rows[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(it)}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := f.pk(table, params.Key)
	if err != nil {
		return nil, err
	}
	existing, exists := f.tables[table][pk]
	if params.ConditionExpression != nil {
		ok, err := eval(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	updated := copyItem(existing)
	if !exists {
		updated = copyItem(params.Key)
	}
	if params.UpdateExpression == nil {
		return nil, errors.New("dynamotest: update without expression")
	}
	assignments, ok := strings.CutPrefix(strings.TrimSpace(*params.UpdateExpression), "SET ")
	if !ok {
		return nil, fmt.Errorf("dynamotest: unsupported update expression %q", *params.UpdateExpression)
	}
	for _, a := range strings.Split(assignments, ",") {
		lhs, rhs, found := strings.Cut(a, "=")
		if !found {
			return nil, fmt.Errorf("dynamotest: bad assignment %q", a)
		}
		v, ok := params.ExpressionAttributeValues[strings.TrimSpace(rhs)]
		if !ok {
			return nil, fmt.Errorf("dynamotest: unsupported value %q", rhs)
		}
		updated[resolve(strings.TrimSpace(lhs), params.ExpressionAttributeNames)] = v
	}
	f.tables[table][pk] = updated
	return &dyn.UpdateItemOutput{Attributes: copyItem(updated)}, nil
}

func (f *Fake) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	if params.KeyConditionExpression == nil {
		return nil, errors.New("dynamotest: query without key condition")
	}
	consistent := params.ConsistentRead
	if params.IndexName != nil {
		// global secondary indexes never serve consistent reads
		consistent = nil
	}
	items, err := f.filter(*params.TableName, consistent, *params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dyn.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	expr := ""
	if params.FilterExpression != nil {
		expr = *params.FilterExpression
	}
	items, err := f.filter(*params.TableName, params.ConsistentRead, expr, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("TransactWriteItems"); err != nil {
		return nil, err
	}
	// First pass: verify condition expressions
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			return nil, errors.New("dynamotest: only Put is supported in transactions")
		}
		pk, err := f.pk(*p.TableName, p.Item)
		if err != nil {
			return nil, err
		}
		if p.ConditionExpression != nil {
			ok, err := eval(*p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues, f.tables[*p.TableName][pk])
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}
	// Second pass: apply all puts
	for _, it := range params.TransactItems {
		pk, _ := f.pk(*it.Put.TableName, it.Put.Item)
		f.tables[*it.Put.TableName][pk] = copyItem(it.Put.Item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (f *Fake) filter(table string, consistent *bool, expr string, names map[string]string, values map[string]types.AttributeValue) ([]item, error) {
	rows, ok := f.rows(table, consistent)
	if !ok {
		return nil, fmt.Errorf("dynamotest: unknown table %q", table)
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []item{}
	for _, k := range keys {
		if expr != "" {
			ok, err := eval(expr, names, values, rows[k])
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, copyItem(rows[k]))
	}
	return out, nil
}

// eval supports AND-joined clauses of attribute_exists(a),
// attribute_not_exists(a) and a = :v.
func eval(expr string, names map[string]string, values map[string]types.AttributeValue, it item) (bool, error) {
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists("):
			attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")"), names)
			if _, ok := it[attr]; ok {
				return false, nil
			}
		case strings.HasPrefix(clause, "attribute_exists("):
			attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")"), names)
			if _, ok := it[attr]; !ok {
				return false, nil
			}
		case strings.Contains(clause, "="):
			lhs, rhs, _ := strings.Cut(clause, "=")
			want, ok := values[strings.TrimSpace(rhs)]
			if !ok {
				return false, fmt.Errorf("dynamotest: missing value for %q", rhs)
			}
			got, ok := it[resolve(strings.TrimSpace(lhs), names)]
			if !ok || !reflect.DeepEqual(got, want) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("dynamotest: unsupported condition %q", clause)
		}
	}
	return true, nil
}

func resolve(name string, names map[string]string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

func copyItem(it item) item {
	if it == nil {
		return item{}
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
