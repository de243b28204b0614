package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/auth"
	"github.com/bookcourier/courier-api/internal/aws"
	"github.com/bookcourier/courier-api/internal/checkout"
	"github.com/bookcourier/courier-api/internal/idempotency"
	"github.com/bookcourier/courier-api/internal/orders"
	"github.com/bookcourier/courier-api/internal/payments"
	"github.com/bookcourier/courier-api/internal/store"
	"github.com/bookcourier/courier-api/internal/tracking"
	"github.com/bookcourier/courier-api/internal/users"
	"github.com/bookcourier/courier-api/internal/validation"
)

const checkoutCurrency = "usd"

// RegisterPaymentsRoutes registers checkout, confirmation and receipt routes.
func RegisterPaymentsRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	gw := store.New(cfg.DynamoDBClient)
	idempStore := idempotency.NewStore(cfg.DynamoDBClient, cfg.Tables.Idempotency, cfg.TTLWindow)
	paymentsStore := payments.NewStore(gw, cfg.Tables.Payments)
	authorizer := auth.NewAuthorizer(users.NewStore(gw, cfg.Tables.Users))
	reconciler := payments.NewReconciler(
		cfg.Checkout,
		orders.NewStore(gw, cfg.Tables.Orders),
		paymentsStore,
		tracking.NewGenerator(),
		aws.NewPublisher(cfg.SQSClient, cfg.QueueURL),
	)
	site := strings.TrimRight(cfg.SiteDomain, "/")

	r.POST("/payment-checkout-session", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CheckoutSessionRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		var key string
		if idempKey := c.GetHeader("Idempotency-Key"); idempKey != "" {
			key = idempotency.ScopedKey(idempotency.ScopeCheckoutSession, idempKey)
			created, err := idempStore.CreateIfNotExists(ctx, key, req.OrderID)
			if err != nil {
				respondError(c, err)
				return
			}
			if !created {
				replayIdempotent(c, idempStore, key)
				return
			}
		}

		sess, err := cfg.Checkout.CreateSession(ctx, checkout.CreateSessionRequest{
			AmountCents:   checkout.ToCents(req.Price),
			Currency:      checkoutCurrency,
			ProductName:   fmt.Sprintf("please pay for: %s", req.BookTitle),
			OrderID:       req.OrderID,
			OrderName:     req.OrderName,
			CustomerEmail: req.CustomerEmail,
			SuccessURL:    site + "/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     site + "/dashboard/payment-cancelled",
		})
		if err != nil {
			if key != "" {
				if merr := idempStore.MarkFailed(ctx, key, err.Error()); merr != nil {
					slog.ErrorContext(ctx, "mark idempotency failed", "key", key, "error", merr)
				}
			}
			respondError(c, err)
			return
		}

		body, err := json.Marshal(gin.H{"url": sess.URL})
		if err != nil {
			respondError(c, err)
			return
		}
		if key != "" {
			if err := idempStore.MarkDone(ctx, key, string(body), http.StatusOK); err != nil {
				slog.ErrorContext(ctx, "mark idempotency done", "key", key, "error", err)
			}
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	})

	r.PATCH("/payment-success", func(c *gin.Context) {
		sessionID := c.Query("session_id")
		if sessionID == "" {
			respondError(c, apperr.New(apperr.ErrInvalidInput, "session_id is required"))
			return
		}
		res, err := reconciler.Reconcile(c.Request.Context(), sessionID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	r.GET("/payments", auth.RequireAuth(cfg.Verifier), func(c *gin.Context) {
		ctx := c.Request.Context()
		principal, _ := auth.PrincipalFrom(c)
		email := c.Query("email")

		admin, err := authorizer.IsAdmin(ctx, principal.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		if !admin {
			if email == "" {
				email = principal.Email
			}
			if email != principal.Email {
				respondError(c, apperr.New(apperr.ErrForbidden, "Forbidden access"))
				return
			}
		}

		list, err := paymentsStore.List(ctx, email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
}
