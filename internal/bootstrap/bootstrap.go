// Package bootstrap builds the collaborators selected by the service config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/imrishuroy/go-painting-orderflow/internal/aws"
	"github.com/imrishuroy/go-painting-orderflow/internal/config"
	"github.com/imrishuroy/go-painting-orderflow/internal/events"
	"github.com/imrishuroy/go-painting-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-painting-orderflow/internal/metrics"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
	"github.com/imrishuroy/go-painting-orderflow/internal/storage/postgres"
)

// Services are the runtime collaborators of an executable.
type Services struct {
	AWS        *aws.AWSClients // nil unless a backend needs AWS
	Repository orders.Repository
	Dynamo     *orders.Store      // set for the dynamodb backend
	Deliveries *idempotency.Store // set when an idempotency table is configured
	Publisher  events.Publisher
	Metrics    metrics.Recorder

	closers []func() error
}

// Close releases connections opened by Build.
func (s *Services) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func needsAWS(cfg config.Config) bool {
	return cfg.Store.Backend == config.StoreDynamoDB ||
		cfg.Store.IdempotencyTable != "" ||
		cfg.Events.Backend == config.EventsSQS ||
		cfg.Metrics.Enabled
}

// Build wires storage, events and metrics for cfg.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Services, error) {
	s := &Services{Publisher: events.Discard{}, Metrics: metrics.Nop{}}

	if needsAWS(cfg) {
		clients, err := aws.NewAWSClients(ctx, cfg.AWS.Region, cfg.AWS.EndpointOverride)
		if err != nil {
			return nil, fmt.Errorf("init aws clients: %w", err)
		}
		s.AWS = clients
	}

	switch cfg.Store.Backend {
	case config.StoreDynamoDB:
		s.Dynamo = orders.NewStore(s.AWS.DynamoDB, cfg.Store.OrdersTable)
		s.Repository = s.Dynamo
	case config.StorePostgres:
		db, err := postgres.ConnectDB(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Repository = postgres.NewOrderRepository(db)
	default:
		s.Repository = orders.NewMemoryStore()
	}

	if cfg.Store.IdempotencyTable != "" {
		s.Deliveries = idempotency.NewStore(s.AWS.DynamoDB, cfg.Store.IdempotencyTable, cfg.Store.IdempotencyTTL)
	}

	switch cfg.Events.Backend {
	case config.EventsSQS:
		s.Publisher = aws.NewPublisher(s.AWS.SQS, cfg.Events.QueueURL)
	case config.EventsRabbitMQ:
		pub, err := events.DialRabbit(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pub.Close)
		s.Publisher = pub
	}

	if cfg.Metrics.Enabled {
		s.Metrics = aws.NewMetrics(s.AWS.CloudWatch, cfg.Metrics.Namespace)
	}

	log.Info("services ready", "action", "bootstrap",
		"store", cfg.Store.Backend, "events", cfg.Events.Backend,
		"metrics", cfg.Metrics.Enabled, "webhook_dedup", s.Deliveries != nil)
	return s, nil
}
