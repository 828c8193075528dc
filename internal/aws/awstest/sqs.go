package awstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records sent messages.
type SQS struct {
	mu       sync.Mutex
	Messages []*sqs.SendMessageInput
	// Err, when set, is returned by every SendMessage call.
	Err error
}

func (s *SQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.Messages = append(s.Messages, in)
	id := fmt.Sprintf("msg-%d", len(s.Messages))
	return &sqs.SendMessageOutput{MessageId: &id}, nil
}

// Count returns the number of messages sent.
func (s *SQS) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Messages)
}

// CloudWatch records metric datapoints.
type CloudWatch struct {
	mu     sync.Mutex
	Inputs []*cloudwatch.PutMetricDataInput
}

func (c *CloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Inputs = append(c.Inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Count returns the number of PutMetricData calls.
func (c *CloudWatch) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Inputs)
}
