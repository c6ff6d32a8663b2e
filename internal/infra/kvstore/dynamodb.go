package kvstore

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"freshfold/internal/infra"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/config"
	"freshfold/internal/usecase/shared"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var _ shared.CounterStore = (*DynamoStore)(nil)

// DynamoAPI is the subset of the DynamoDB client the store calls.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// counterItem is one row of the counters table.
//
// Table requirements:
//   - PK: key (string)
//   - TTL attribute: expires_at (epoch seconds)
type counterItem struct {
	Key       string `dynamodbav:"key"`
	Value     int64  `dynamodbav:"value"`
	Data      string `dynamodbav:"data,omitempty"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// DynamoStore keeps counters in a DynamoDB table. DynamoDB deletes expired items
// lazily, so every read also compares expires_at with the clock.
type DynamoStore struct {
	ddb    DynamoAPI
	table  string
	clock  clock.Clock
	logger *slog.Logger
}

func NewDynamoStore(ddb DynamoAPI, table string, clock clock.Clock, logger *slog.Logger) *DynamoStore {
	return &DynamoStore{ddb: ddb, table: table, clock: clock, logger: logger}
}

// NewDynamoClient builds a client from the store config. Static credentials and a
// custom endpoint are optional and meant for local DynamoDB.
func NewDynamoClient(ctx context.Context, cfg config.StoreConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSSessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	}), nil
}

func (s *DynamoStore) keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.clock.Now()
	nowAttr := &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)}
	expAttr := &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(ttl).Unix(), 10)}

	// Live or missing item: add one, keeping the window's expiry.
	out, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.keyOf(key),
		UpdateExpression:    aws.String("ADD #v :one SET #exp = if_not_exists(#exp, :exp)"),
		ConditionExpression: aws.String("attribute_not_exists(#k) OR #exp > :now"),
		ExpressionAttributeNames: map[string]string{
			"#k":   "key",
			"#v":   "value",
			"#exp": "expires_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":exp": expAttr,
			":now": nowAttr,
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err == nil {
		return s.decodeValue(out.Attributes)
	}
	if !isConditionFailed(err) {
		return 0, s.wrap("failed to increment counter", err)
	}

	// Expired item not swept yet: start a new window.
	out, err = s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.keyOf(key),
		UpdateExpression:    aws.String("SET #v = :one, #exp = :exp REMOVE #d"),
		ConditionExpression: aws.String("#exp <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#v":   "value",
			"#d":   "data",
			"#exp": "expires_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":exp": expAttr,
			":now": nowAttr,
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			// Another caller reset the window first.
			return s.Incr(ctx, key, ttl)
		}
		return 0, s.wrap("failed to reset counter", err)
	}
	return s.decodeValue(out.Attributes)
}

func (s *DynamoStore) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, s.wrap("failed to get counter", err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}
	var it counterItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return "", false, s.wrap("failed to decode counter", err)
	}
	if it.ExpiresAt <= s.clock.Now().Unix() {
		return "", false, nil
	}
	return it.Data, true, nil
}

func (s *DynamoStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	av, err := attributevalue.MarshalMap(counterItem{
		Key:       key,
		Data:      value,
		ExpiresAt: s.clock.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return s.wrap("failed to encode counter", err)
	}
	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return s.wrap("failed to put counter", err)
	}
	return nil
}

func (s *DynamoStore) decodeValue(attrs map[string]types.AttributeValue) (int64, error) {
	var v struct {
		Value int64 `dynamodbav:"value"`
	}
	if err := attributevalue.UnmarshalMap(attrs, &v); err != nil {
		return 0, s.wrap("failed to decode counter", err)
	}
	return v.Value, nil
}

func (s *DynamoStore) wrap(msg string, err error) error {
	return infra.WrapRepoErr(s.logger, infra.KindDBFailure, msg, err)
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
