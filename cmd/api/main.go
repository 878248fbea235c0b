package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-gateway/internal/auth"
	"github.com/imrishuroy/go-order-gateway/internal/aws"
	"github.com/imrishuroy/go-order-gateway/internal/config"
	"github.com/imrishuroy/go-order-gateway/internal/handlers"
	"github.com/imrishuroy/go-order-gateway/internal/idempotency"
	"github.com/imrishuroy/go-order-gateway/internal/logging"
	"github.com/imrishuroy/go-order-gateway/internal/operations"
	"github.com/imrishuroy/go-order-gateway/internal/orders"
)

func newTokenValidator(cfg *config.Config, logger *zap.Logger) (auth.TokenValidator, error) {
	if cfg.AuthMode == config.AuthModeJWT {
		jwtCfg := auth.JWTConfig{
			SigningMethod: "HS256",
			SecretKey:     cfg.JWTSecret,
			PublicKey:     cfg.JWTPublicKey,
			Issuer:        cfg.JWTIssuer,
		}
		if cfg.JWTPublicKey != "" {
			jwtCfg.SigningMethod = "RS256"
		}
		if cfg.JWTAudience != "" {
			jwtCfg.Audience = strings.Split(cfg.JWTAudience, ",")
		}
		return auth.NewJWTValidator(jwtCfg, logger)
	}

	client := &http.Client{Timeout: cfg.AuthTimeout}
	return auth.NewRemoteValidator(cfg.AuthServiceURL, client, auth.DefaultBreakerConfig(), logger), nil
}

func newDispatcher(cfg *config.Config, clients *aws.AWSClients, logger *zap.Logger) (*handlers.Dispatcher, error) {
	tokens, err := newTokenValidator(cfg, logger)
	if err != nil {
		return nil, err
	}

	var publisher operations.EventPublisher
	if cfg.QueueURL != "" {
		publisher = aws.NewPublisher(clients.SQS, cfg.QueueURL)
	}
	ops := operations.NewService(orders.NewStore(clients.DynamoDB, cfg.OrdersTable), publisher, logger)

	hc := handlers.HandlerConfig{
		Validator:  tokens,
		Operations: ops,
		Logger:     logger,
	}
	if cfg.IdempotencyTable != "" {
		hc.Idempotency = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	}
	if cfg.EnableMetrics {
		hc.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}
	return handlers.NewDispatcher(hc), nil
}

func setupRouter(d *handlers.Dispatcher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	handlers.RegisterRoutes(r, d)
	return r
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	clients, err := aws.NewAWSClients(context.Background(), cfg.Region, cfg.EndpointOverride)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	d, err := newDispatcher(cfg, clients, logger)
	if err != nil {
		logger.Fatal("failed to build dispatcher", zap.Error(err))
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(d)

	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.LocalAddr))
		if err := r.Run(cfg.LocalAddr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
