package aws

import (
	"context"
	"encoding/json"
	"time"

	"gigbook-workers/internal/common/errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// MusiciansRankedEventType is the eventType attribute of a ranking notification.
const MusiciansRankedEventType = "musicians.ranked"

// SNSAPI is the subset of *sns.Client the publisher needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}

type RankedCandidate struct {
	MusicianID string `json:"musicianId"`
	MatchScore int    `json:"matchScore"`
}

type MusiciansRankedEvent struct {
	EventType  string            `json:"eventType"`
	EventID    string            `json:"eventId"`
	Instrument string            `json:"instrument"`
	Candidates []RankedCandidate `json:"candidates"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// RankingPublisher announces finished musician searches on an SNS topic.
type RankingPublisher struct {
	client   SNSAPI
	topicARN string
	now      func() time.Time
}

func NewRankingPublisher(client SNSAPI, topicARN string) *RankingPublisher {
	return &RankingPublisher{client: client, topicARN: topicARN, now: time.Now}
}

// PublishMusiciansRanked returns the SNS message id.
func (p *RankingPublisher) PublishMusiciansRanked(ctx context.Context, eventID, instrument string, candidates []RankedCandidate) (string, error) {
	if candidates == nil {
		candidates = []RankedCandidate{}
	}
	body, err := json.Marshal(MusiciansRankedEvent{
		EventType:  MusiciansRankedEventType,
		EventID:    eventID,
		Instrument: instrument,
		Candidates: candidates,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return "", errors.NewEventPublishFailedError(p.topicARN, err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(p.topicARN),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: awssdk.String("String"), StringValue: awssdk.String(MusiciansRankedEventType)},
		},
	})
	if err != nil {
		return "", errors.NewEventPublishFailedError(p.topicARN, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
