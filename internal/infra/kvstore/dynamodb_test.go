//go:build unit

package kvstore_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"freshfold/internal/infra/kvstore"
	"freshfold/internal/pkg/clock"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type dynamoAPIMock struct {
	mock.Mock
}

func (m *dynamoAPIMock) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *dynamoAPIMock) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *dynamoAPIMock) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

var now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newStore(api kvstore.DynamoAPI) *kvstore.DynamoStore {
	return kvstore.NewDynamoStore(api, "counters", clock.NewMockClock(now), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func updated(v string) *dynamodb.UpdateItemOutput {
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"value": &types.AttributeValueMemberN{Value: v},
	}}
}

func TestDynamoStore_Incr(t *testing.T) {
	t.Run("live window is incremented", func(t *testing.T) {
		api := new(dynamoAPIMock)
		api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return aws.ToString(in.UpdateExpression) == "ADD #v :one SET #exp = if_not_exists(#exp, :exp)"
		})).Return(updated("4"), nil).Once()

		n, err := newStore(api).Incr(context.Background(), "rl:booking:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		api.AssertExpectations(t)
	})

	t.Run("expired window restarts at one", func(t *testing.T) {
		api := new(dynamoAPIMock)
		api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return aws.ToString(in.ConditionExpression) == "attribute_not_exists(#k) OR #exp > :now"
		})).Return(nil, &types.ConditionalCheckFailedException{}).Once()
		api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			exp := in.ExpressionAttributeValues[":exp"].(*types.AttributeValueMemberN)
			return aws.ToString(in.ConditionExpression) == "#exp <= :now" && exp.Value == "1748854860"
		})).Return(updated("1"), nil).Once()

		n, err := newStore(api).Incr(context.Background(), "rl:booking:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		api.AssertExpectations(t)
	})

	t.Run("transport failure is a repository error", func(t *testing.T) {
		api := new(dynamoAPIMock)
		api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

		_, err := newStore(api).Incr(context.Background(), "k", time.Minute)
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestDynamoStore_Get(t *testing.T) {
	cases := []struct {
		name   string
		out    *dynamodb.GetItemOutput
		want   string
		wantOK bool
	}{
		{
			name:   "live item",
			out:    getOutput(now.Add(time.Minute).Unix()),
			want:   "order-1",
			wantOK: true,
		},
		{
			name: "expired item not yet swept",
			out:  getOutput(now.Add(-time.Second).Unix()),
		},
		{
			name: "missing item",
			out:  &dynamodb.GetItemOutput{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := new(dynamoAPIMock)
			api.On("GetItem", mock.Anything, mock.Anything).Return(tc.out, nil).Once()

			got, ok, err := newStore(api).Get(context.Background(), "partner:+14155550100")
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func getOutput(expiresAt int64) *dynamodb.GetItemOutput {
	return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"key":        &types.AttributeValueMemberS{Value: "partner:+14155550100"},
		"value":      &types.AttributeValueMemberN{Value: "0"},
		"data":       &types.AttributeValueMemberS{Value: "order-1"},
		"expires_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)},
	}}
}

func TestDynamoStore_Put(t *testing.T) {
	api := new(dynamoAPIMock)
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		data, ok := in.Item["data"].(*types.AttributeValueMemberS)
		return ok && data.Value == "order-1" && aws.ToString(in.TableName) == "counters"
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	err := newStore(api).Put(context.Background(), "partner:+14155550100", "order-1", 30*time.Minute)
	require.NoError(t, err)
	api.AssertExpectations(t)
}
