package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/storefront-settlement/internal/aws"
	"github.com/imrishuroy/storefront-settlement/internal/config"
	"github.com/imrishuroy/storefront-settlement/internal/idempotency"
	"github.com/imrishuroy/storefront-settlement/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "storefront-worker", Env: cfg.AppEnv, Level: cfg.LogLevel})

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Error("failed to init aws clients", "err", err)
		os.Exit(1)
	}
	claims := idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	p := NewProcessor(claims, logMailer{log: log}, cfg.MailFrom, log)

	// If RUN_LOCAL=true, process a single message from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"order_id":"local-order-1","order_number":"250101000001","customer_name":"Local","customer_email":"local@example.cz","total_price":1429}`
		}
		resp, err := p.Handle(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			log.Error("local handler failed", "err", err, "failures", len(resp.BatchItemFailures))
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}
