package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/storefront-settlement/internal/aws"
	"github.com/imrishuroy/storefront-settlement/internal/idempotency"
	"github.com/imrishuroy/storefront-settlement/internal/notify"
)

// Claimer guards side effects with idempotency records.
type Claimer interface {
	Claim(ctx context.Context, key, subject string) (idempotency.ClaimOutcome, error)
	MarkDone(ctx context.Context, key, result string) error
	MarkFailed(ctx context.Context, key, note string) error
}

// Processor sends the payment confirmation email for order.paid events, at
// most once per order even when SQS redelivers.
type Processor struct {
	claims Claimer
	mailer Mailer
	from   string
	log    *slog.Logger
}

// NewProcessor creates a new worker processor.
func NewProcessor(claims Claimer, mailer Mailer, from string, log *slog.Logger) *Processor {
	return &Processor{
		claims: claims,
		mailer: mailer,
		from:   from,
		log:    log.With("component", "worker"),
	}
}

// Handle processes a batch and reports failed messages individually so only
// those are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("message failed", "message_id", rec.MessageId, "err", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	if attr, ok := rec.MessageAttributes[aws.EventTypeAttribute]; ok && attr.StringValue != nil &&
		*attr.StringValue != notify.EventOrderPaid {
		p.log.Debug("ignoring event", "event_type", *attr.StringValue)
		return nil
	}

	var ev notify.PaidEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if ev.OrderNumber == "" || ev.CustomerEmail == "" {
		return fmt.Errorf("paid event %s is missing order number or email", rec.MessageId)
	}
	log := p.log.With("order_number", ev.OrderNumber, "message_id", rec.MessageId)

	key := idempotency.PaidEmailKey(ev.OrderNumber)
	outcome, err := p.claims.Claim(ctx, key, ev.OrderNumber)
	if err != nil {
		return fmt.Errorf("claim %s: %w", key, err)
	}
	switch outcome {
	case idempotency.AlreadyDone:
		log.Info("confirmation already sent")
		return nil
	case idempotency.InProgress:
		return fmt.Errorf("confirmation for %s is being sent by another worker", ev.OrderNumber)
	}

	if err := p.mailer.Send(ctx, paidEmail(p.from, ev)); err != nil {
		if mErr := p.claims.MarkFailed(ctx, key, err.Error()); mErr != nil {
			log.Error("could not release claim", "err", mErr)
		}
		return fmt.Errorf("send confirmation: %w", err)
	}
	if err := p.claims.MarkDone(ctx, key, rec.MessageId); err != nil {
		// the mail went out; redeliveries see IN_PROGRESS and never resend
		log.Error("could not mark confirmation done", "err", err)
	}
	log.Info("confirmation sent")
	return nil
}
