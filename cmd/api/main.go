package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/auth"
	"github.com/bookcourier/courier-api/internal/aws"
	"github.com/bookcourier/courier-api/internal/checkout"
	"github.com/bookcourier/courier-api/internal/config"
	"github.com/bookcourier/courier-api/internal/handlers"
	"github.com/bookcourier/courier-api/internal/logging"
)

func setupRouter(cfg handlers.HandlerConfig, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", handlers.RequestIDHeader},
		ExposeHeaders:   []string{handlers.RequestIDHeader, "Idempotent-Replayed"},
	}))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Booking Courier is Running!")
	})

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func newVerifier(ctx context.Context, cfg *config.Config) (auth.Verifier, error) {
	if cfg.AuthMode == config.AuthModeJWT {
		return auth.NewJWTVerifier(cfg.JWTSecret), nil
	}
	return auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsFile)
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, "courier-api")

	clients, err := aws.NewAWSClients(ctx, aws.Options{
		Region:           cfg.AWSRegion,
		EndpointOverride: cfg.AWSEndpointOverride,
	})
	if err != nil {
		log.Error("failed to init aws clients", "error", err)
		os.Exit(1)
	}
	log.Info("aws clients ready", "region", clients.Region, "endpoint_override", cfg.AWSEndpointOverride)

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		log.Error("failed to init identity verifier", "auth_mode", cfg.AuthMode, "error", err)
		os.Exit(1)
	}
	if cfg.StripeSecret == "" {
		log.Warn("stripe_secret is empty; checkout calls will be rejected by the processor")
	}

	hcfg := handlers.HandlerConfig{
		DynamoDBClient: clients.DynamoDB,
		SQSClient:      clients.SQS,
		Tables: handlers.Tables{
			Books:       cfg.BooksTable,
			Orders:      cfg.OrdersTable,
			Payments:    cfg.PaymentsTable,
			Users:       cfg.UsersTable,
			Librarians:  cfg.LibrariansTable,
			Idempotency: cfg.IdempotencyTable,
		},
		QueueURL:   cfg.EventsQueueURL,
		TTLWindow:  cfg.IdempotencyTTL,
		Checkout:   checkout.NewStripeService(cfg.StripeSecret),
		Verifier:   verifier,
		SiteDomain: cfg.SiteDomain,
	}

	r := setupRouter(hcfg, log)

	// if RUN_LOCAL is true, run local HTTP server for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		log.Info("running local server", "addr", addr)
		if err := r.Run(addr); err != nil {
			log.Error("failed to run local server", "error", err)
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
