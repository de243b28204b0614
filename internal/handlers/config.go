package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/auth"
	"github.com/bookcourier/courier-api/internal/aws"
	"github.com/bookcourier/courier-api/internal/checkout"
)

// Tables names the DynamoDB table behind each resource.
type Tables struct {
	Books       string
	Orders      string
	Payments    string
	Users       string
	Librarians  string
	Idempotency string
}

// HandlerConfig groups dependencies shared by all route groups.
type HandlerConfig struct {
	DynamoDBClient aws.DynamoDBAPI
	SQSClient      aws.SQSAPI
	Tables         Tables
	QueueURL       string
	TTLWindow      time.Duration
	Checkout       checkout.Service
	Verifier       auth.Verifier
	SiteDomain     string
}

// RegisterRoutes registers every resource route group.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	RegisterBooksRoutes(r, cfg)
	RegisterOrdersRoutes(r, cfg)
	RegisterLibrariansRoutes(r, cfg)
	RegisterUsersRoutes(r, cfg)
	RegisterPaymentsRoutes(r, cfg)
}
