package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/imrishuroy/storefront-settlement/internal/aws"
	"github.com/imrishuroy/storefront-settlement/internal/aws/awstest"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
)

func TestOrderPaid_PublishesEvent(t *testing.T) {
	sqsMock := &awstest.SQS{}
	n := New(aws.NewPublisher(sqsMock, "https://sqs.local/queue"))

	pid := "3000006529"
	o := orders.Order{
		ID:          "id-1",
		OrderNumber: "250701123456",
		Customer:    orders.Customer{Name: "Jana", Email: "jana@example.cz"},
		TotalPrice:  1429,
		PaymentID:   &pid,
		UpdatedAt:   time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := n.OrderPaid(context.Background(), o); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if sqsMock.Count() != 1 {
		t.Fatalf("expected one message, got %d", sqsMock.Count())
	}

	msg := sqsMock.Messages[0]
	if v := *msg.MessageAttributes[aws.EventTypeAttribute].StringValue; v != EventOrderPaid {
		t.Fatalf("event type attribute = %q", v)
	}
	if v := *msg.MessageAttributes["order_number"].StringValue; v != o.OrderNumber {
		t.Fatalf("order number attribute = %q", v)
	}
	var ev PaidEvent
	if err := json.Unmarshal([]byte(*msg.MessageBody), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.OrderNumber != o.OrderNumber || ev.CustomerEmail != "jana@example.cz" || ev.TotalPrice != 1429 || ev.PaymentID != pid {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestOrderPaid_PropagatesSendError(t *testing.T) {
	sqsMock := &awstest.SQS{Err: errors.New("throttled")}
	n := New(aws.NewPublisher(sqsMock, "q"))
	if err := n.OrderPaid(context.Background(), orders.Order{OrderNumber: "1"}); err == nil {
		t.Fatal("expected error")
	}
}
