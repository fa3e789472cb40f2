package aws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"gigbook-workers/internal/common/errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

const topic = "arn:aws:sns:eu-west-1:123456789012:musicians-ranked"

func TestRankingPublisher_Publish(t *testing.T) {
	client := new(mockSNS)
	var sent *sns.PublishInput
	client.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*sns.PublishInput) }).
		Return(&sns.PublishOutput{MessageId: awssdk.String("msg-1")}, nil)

	pub := NewRankingPublisher(client, topic)
	pub.now = func() time.Time { return time.Date(2026, 11, 14, 20, 0, 0, 0, time.UTC) }

	id, err := pub.PublishMusiciansRanked(context.Background(), "ev-1", "guitarra", []RankedCandidate{
		{MusicianID: "m-1", MatchScore: 91},
		{MusicianID: "m-2", MatchScore: 77},
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.NotNil(t, sent)
	assert.Equal(t, topic, awssdk.ToString(sent.TopicArn))
	assert.Equal(t, MusiciansRankedEventType, awssdk.ToString(sent.MessageAttributes["eventType"].StringValue))

	var event MusiciansRankedEvent
	require.NoError(t, json.Unmarshal([]byte(awssdk.ToString(sent.Message)), &event))
	assert.Equal(t, "ev-1", event.EventID)
	assert.Len(t, event.Candidates, 2)
	assert.Equal(t, 91, event.Candidates[0].MatchScore)
}

func TestRankingPublisher_PublishFails(t *testing.T) {
	client := new(mockSNS)
	client.On("Publish", mock.Anything, mock.Anything).Return(nil, stderrors.New("throttled"))

	_, err := NewRankingPublisher(client, topic).PublishMusiciansRanked(context.Background(), "ev-1", "piano", nil)

	assert.True(t, errors.IsCode(err, errors.ErrCodeEventPublishFailed))
}
