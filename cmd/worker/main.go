package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-painting-orderflow/internal/bootstrap"
	"github.com/imrishuroy/go-painting-orderflow/internal/config"
	"github.com/imrishuroy/go-painting-orderflow/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Service+"-worker", cfg.LogLevel)

	if cfg.Store.Backend != config.StoreDynamoDB || cfg.Store.IdempotencyTable == "" {
		log.Error("worker needs the dynamodb store and an idempotency table", "action", "startup")
		os.Exit(1)
	}

	ctx := context.Background()
	svc, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init services", "action", "startup", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	p := NewProcessor(svc.Dynamo, cfg.Store.IdempotencyTable, cfg.Store.IdempotencyTTL, svc.Publisher, svc.Metrics, log)

	// If RUN_LOCAL=true, process a single simulated SQS message for local testing.
	if cfg.HTTP.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"delivery_id":"local-delivery-1","topic":"orders/create","payload":{"id":"local-order-1","financial_status":"paid"}}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: testBody},
			},
		}
		if err := p.Handle(ctx, event); err != nil {
			log.Error("local handler error", "action", "sync", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}
