package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/okian/sportsmeet/pkg/metrics"
)

const driverDynamo = "dynamodb"

// DynamoDBAPI is the subset of the DynamoDB client the store calls.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoStore maps the Store contract onto DynamoDB tables whose key schema
// matches the Table descriptors.
type DynamoStore struct {
	client     DynamoDBAPI
	consistent bool
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore wraps a DynamoDB client.
func NewDynamoStore(client DynamoDBAPI, opts ...DynamoOption) *DynamoStore {
	s := &DynamoStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenDynamo builds a client from the default AWS credential chain. A
// non-empty endpoint targets DynamoDB Local or another compatible server.
func OpenDynamo(ctx context.Context, region, endpoint string, opts ...DynamoOption) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoStore(client, opts...), nil
}

func (s *DynamoStore) Driver() string { return driverDynamo }

func (s *DynamoStore) Close() error { return nil }

func (s *DynamoStore) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(driverDynamo, op, statusOf(err), float64(time.Since(start).Microseconds())/1000)
}

func dynamoKey(t Table, k Key) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		t.PartitionKey: &types.AttributeValueMemberS{Value: k.Partition},
	}
	if t.SortKey != "" {
		key[t.SortKey] = &types.AttributeValueMemberS{Value: k.Sort}
	}
	return key
}

func unmarshalItem(av map[string]types.AttributeValue) (Item, error) {
	var it map[string]any
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return Item(it), nil
}

func unmarshalItems(avs []map[string]types.AttributeValue, filter Filter) ([]Item, error) {
	out := make([]Item, 0, len(avs))
	for _, av := range avs {
		it, err := unmarshalItem(av)
		if err != nil {
			return nil, err
		}
		if filter == nil || filter(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// conditionOf folds conds into one condition expression. ok is false when
// there is nothing to check.
func conditionOf(t Table, conds []Condition) (cb expression.ConditionBuilder, ok bool) {
	var parts []expression.ConditionBuilder
	for _, c := range conds {
		if c.exists != nil {
			if *c.exists {
				parts = append(parts, expression.AttributeExists(expression.Name(t.PartitionKey)))
			} else {
				parts = append(parts, expression.AttributeNotExists(expression.Name(t.PartitionKey)))
			}
		}
		for _, name := range c.sortedEquals() {
			parts = append(parts, expression.Name(name).Equal(expression.Value(c.equals[name])))
		}
	}
	switch len(parts) {
	case 0:
		return cb, false
	case 1:
		return parts[0], true
	default:
		return expression.And(parts[0], parts[1], parts[2:]...), true
	}
}

func translate(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrConditionFailed
	}
	return err
}

func (s *DynamoStore) Put(ctx context.Context, t Table, item Item, conds ...Condition) (err error) {
	defer func(start time.Time) { s.observe("put", start, err) }(time.Now())
	if _, err := t.KeyOf(item); err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	in := &dynamodb.PutItemInput{TableName: aws.String(t.Name), Item: av}
	if cb, ok := conditionOf(t, conds); ok {
		expr, err := expression.NewBuilder().WithCondition(cb).Build()
		if err != nil {
			return fmt.Errorf("build condition: %w", err)
		}
		in.ConditionExpression = expr.Condition()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}
	_, err = s.client.PutItem(ctx, in)
	return translate(err)
}

func (s *DynamoStore) Get(ctx context.Context, t Table, k Key) (_ Item, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(time.Now())
	if err := t.validKey(k); err != nil {
		return nil, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.Name),
		Key:            dynamoKey(t, k),
		ConsistentRead: aws.Bool(s.consistent),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return unmarshalItem(out.Item)
}

func (s *DynamoStore) Query(ctx context.Context, t Table, partition, sortPrefix string) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("query", start, err) }(time.Now())
	kc := expression.Key(t.PartitionKey).Equal(expression.Value(partition))
	if sortPrefix != "" && t.SortKey != "" {
		kc = kc.And(expression.Key(t.SortKey).BeginsWith(sortPrefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(kc).Build()
	if err != nil {
		return nil, fmt.Errorf("build key condition: %w", err)
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(t.Name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(s.consistent),
	}
	var out []Item
	for {
		page, err := s.client.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		items, err := unmarshalItems(page.Items, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func (s *DynamoStore) Scan(ctx context.Context, t Table, filter Filter) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("scan", start, err) }(time.Now())
	in := &dynamodb.ScanInput{
		TableName:      aws.String(t.Name),
		ConsistentRead: aws.Bool(s.consistent),
	}
	var out []Item
	for {
		page, err := s.client.Scan(ctx, in)
		if err != nil {
			return nil, err
		}
		items, err := unmarshalItems(page.Items, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func (s *DynamoStore) BatchWrite(ctx context.Context, t Table, items []Item) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("batch_write", start, err) }(time.Now())
	if len(items) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	if len(items) == 0 {
		return nil, nil
	}
	reqs := make([]types.WriteRequest, 0, len(items))
	for _, it := range items {
		if _, err := t.KeyOf(it); err != nil {
			return nil, err
		}
		av, err := attributevalue.MarshalMap(map[string]any(it))
		if err != nil {
			return nil, fmt.Errorf("marshal item: %w", err)
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{t.Name: reqs},
	})
	if err != nil {
		return nil, err
	}

	var unprocessed []Item
	for _, req := range out.UnprocessedItems[t.Name] {
		if req.PutRequest == nil {
			continue
		}
		it, err := unmarshalItem(req.PutRequest.Item)
		if err != nil {
			return nil, err
		}
		unprocessed = append(unprocessed, it)
	}
	return unprocessed, nil
}

func (s *DynamoStore) Update(ctx context.Context, t Table, k Key, fields map[string]any, conds ...Condition) (_ Item, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	if err := t.validKey(k); err != nil {
		return nil, err
	}

	var (
		ub   expression.UpdateBuilder
		sets int
	)
	for _, name := range sortedFieldNames(fields) {
		if name == t.PartitionKey || name == t.SortKey {
			continue
		}
		ub = ub.Set(expression.Name(name), expression.Value(fields[name]))
		sets++
	}
	if sets == 0 {
		return nil, fmt.Errorf("%w: update of %s sets no attributes", ErrInvalidKey, k)
	}
	builder := expression.NewBuilder().WithUpdate(ub)
	if cb, ok := conditionOf(t, conds); ok {
		builder = builder.WithCondition(cb)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.Name),
		Key:                       dynamoKey(t, k),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, translate(err)
	}
	return unmarshalItem(out.Attributes)
}

func (s *DynamoStore) Delete(ctx context.Context, t Table, k Key, conds ...Condition) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	if err := t.validKey(k); err != nil {
		return err
	}
	in := &dynamodb.DeleteItemInput{TableName: aws.String(t.Name), Key: dynamoKey(t, k)}
	if cb, ok := conditionOf(t, conds); ok {
		expr, err := expression.NewBuilder().WithCondition(cb).Build()
		if err != nil {
			return fmt.Errorf("build condition: %w", err)
		}
		in.ConditionExpression = expr.Condition()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}
	_, err = s.client.DeleteItem(ctx, in)
	return translate(err)
}
