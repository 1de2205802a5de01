package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-painting-orderflow/internal/bootstrap"
	"github.com/imrishuroy/go-painting-orderflow/internal/config"
	"github.com/imrishuroy/go-painting-orderflow/internal/handlers"
	"github.com/imrishuroy/go-painting-orderflow/internal/logging"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
	"github.com/imrishuroy/go-painting-orderflow/internal/views"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	handlers.RegisterOrdersRoutes(r, cfg)
	return r
}

// restore loads the persisted snapshots into a fresh engine.
func restore(ctx context.Context, repo orders.Repository, log *slog.Logger) (*orders.Engine, error) {
	engine := orders.NewEngine()
	snapshots, err := repo.List(ctx)
	if err != nil {
		if !errors.Is(err, orders.ErrUnreadableSnapshot) {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		log.Warn("unreadable snapshots skipped", "action", "restore", "error", err)
	}
	if err := engine.Restore(snapshots); err != nil {
		// the rest of the working set still loads
		log.Warn("snapshots skipped", "action", "restore", "error", err)
	}
	log.Info("working set restored", "action", "restore", "orders", len(snapshots))
	return engine, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Service+"-api", cfg.LogLevel)
	if cfg.Shopify.WebhookSecret == "" {
		log.Warn("webhook signature checks disabled", "action", "startup")
	}

	ctx := context.Background()
	svc, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init services", "action", "startup", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	engine, err := restore(ctx, svc.Repository, log)
	if err != nil {
		log.Error("failed to restore working set", "action", "startup", "error", err)
		os.Exit(1)
	}

	hcfg := handlers.HandlerConfig{
		Engine:        engine,
		Repository:    svc.Repository,
		Publisher:     svc.Publisher,
		Metrics:       svc.Metrics,
		Filter:        views.NewFilter(workflow.Default(), cfg.Policy()),
		Logger:        log,
		ShopifyStore:  cfg.Shopify.Store,
		WebhookSecret: cfg.Shopify.WebhookSecret,
	}
	if svc.Deliveries != nil {
		hcfg.Deliveries = svc.Deliveries
	}
	r := setupRouter(hcfg)

	// if RUN_LOCAL is set, run a local HTTP server for development.
	if cfg.HTTP.RunLocal {
		log.Info("running local server", "action", "startup", "addr", cfg.HTTP.Addr)
		if err := r.Run(cfg.HTTP.Addr); err != nil {
			log.Error("failed to run local server", "action", "startup", "error", err)
			os.Exit(1)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
