// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is the subset of *sns.Client the notifier needs.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// DecisionNotifier fans terminal decisions out to an SNS topic.
type DecisionNotifier struct {
	client   SNSPublisher
	topicARN string
	logger   logger.Logger
}

func NewDecisionNotifier(ctx context.Context, region, topicARN string, log logger.Logger) (*DecisionNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewDecisionNotifierWithClient(sns.NewFromConfig(cfg), topicARN, log), nil
}

func NewDecisionNotifierWithClient(client SNSPublisher, topicARN string, log logger.Logger) *DecisionNotifier {
	return &DecisionNotifier{
		client:   client,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "sns-notifier"}),
	}
}

func (n *DecisionNotifier) NotifyDecision(ctx context.Context, event models.DecisionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Message:  awssdk.String(string(body)),
		Subject:  awssdk.String("Loan prequalification decision"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(string(event.Status)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}

	n.logger.Debug("decision notification sent", map[string]interface{}{
		"applicationId": event.ApplicationID,
		"status":        string(event.Status),
		"messageId":     awssdk.ToString(out.MessageId),
	})
	return nil
}
