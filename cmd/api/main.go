package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-settlement/internal/aws"
	"github.com/imrishuroy/storefront-settlement/internal/checkout"
	"github.com/imrishuroy/storefront-settlement/internal/config"
	"github.com/imrishuroy/storefront-settlement/internal/delivery"
	"github.com/imrishuroy/storefront-settlement/internal/gateway"
	"github.com/imrishuroy/storefront-settlement/internal/handlers"
	"github.com/imrishuroy/storefront-settlement/internal/idempotency"
	"github.com/imrishuroy/storefront-settlement/internal/logger"
	"github.com/imrishuroy/storefront-settlement/internal/notify"
	"github.com/imrishuroy/storefront-settlement/internal/orders"
	"github.com/imrishuroy/storefront-settlement/internal/pricing"
	"github.com/imrishuroy/storefront-settlement/internal/promo"
	"github.com/imrishuroy/storefront-settlement/internal/settlement"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func buildHandlerConfig(cfg config.Config, clients *aws.AWSClients, log *slog.Logger) (handlers.HandlerConfig, error) {
	claims := idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable, claims)
	promoStore := promo.NewStore(clients.DynamoDB, cfg.PromoCodesTable, claims)
	validator := promo.NewValidator(promoStore)

	estimator, err := delivery.NewEstimator(cfg.DeliveryCutoffHour, cfg.DeliveryTimezone)
	if err != nil {
		return handlers.HandlerConfig{}, fmt.Errorf("delivery estimator: %w", err)
	}
	rules := pricing.Rules{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		StandardShippingCost:  cfg.StandardShippingCost,
	}

	engine := settlement.NewEngine(settlement.Deps{
		Orders: orderStore,
		Gateway: gateway.NewClient(gateway.Options{
			BaseURL:      cfg.GatewayBaseURL,
			ClientID:     cfg.GatewayClientID,
			ClientSecret: cfg.GatewayClientSecret,
			Scope:        cfg.GatewayScope,
			Timeout:      cfg.GatewayTimeout,
		}),
		Notifier: notify.New(aws.NewPublisher(clients.SQS, cfg.EventsQueueURL)),
		Redeemer: promoStore,
		Metrics:  aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace),
		Logger:   log,
	})

	return handlers.HandlerConfig{
		Settlement:    engine,
		Orders:        orderStore,
		Promos:        promoStore,
		Validator:     validator,
		Checkout:      checkout.NewService(orderStore, validator, rules, estimator, log),
		Estimator:     estimator,
		Shipping:      rules,
		AdminToken:    cfg.AdminToken,
		WebhookSecret: cfg.WebhookSecret,
		Logger:        log,
	}, nil
}

// runLocal serves r until SIGINT or SIGTERM, then drains in-flight requests.
func runLocal(r *gin.Engine, port int, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("running local server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down local server")
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "storefront-api", Env: cfg.AppEnv, Level: cfg.LogLevel})

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Error("failed to init aws clients", "err", err)
		os.Exit(1)
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN is empty, admin routes will refuse every request")
	}
	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET is empty, webhook signatures are not verified")
	}

	hcfg, err := buildHandlerConfig(cfg, clients, log)
	if err != nil {
		log.Error("failed to build handlers", "err", err)
		os.Exit(1)
	}
	if !cfg.RunLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(hcfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		if err := runLocal(r, cfg.HTTPPort, log); err != nil {
			log.Error("failed to run local server", "err", err)
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
