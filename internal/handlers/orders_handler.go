package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/auth"
	"github.com/bookcourier/courier-api/internal/aws"
	"github.com/bookcourier/courier-api/internal/events"
	"github.com/bookcourier/courier-api/internal/idempotency"
	"github.com/bookcourier/courier-api/internal/orders"
	"github.com/bookcourier/courier-api/internal/store"
	"github.com/bookcourier/courier-api/internal/validation"
)

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	gw := store.New(cfg.DynamoDBClient)
	idempStore := idempotency.NewStore(cfg.DynamoDBClient, cfg.Tables.Idempotency, cfg.TTLWindow)
	ordersStore := orders.NewStore(gw, cfg.Tables.Orders)
	publisher := aws.NewPublisher(cfg.SQSClient, cfg.QueueURL)

	r.GET("/orders", func(c *gin.Context) {
		list, err := ordersStore.List(c.Request.Context(), c.Query("email"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		o, err := ordersStore.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if o == nil {
			notFound(c, "Order not found")
			return
		}
		c.JSON(http.StatusOK, o)
	})

	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		// Bind + validate request
		var req validation.CreateOrderRequest
		extra, err := validation.BindRecord(c, &req, v)
		if err != nil {
			// BindRecord already wrote a 400
			return
		}
		order := orders.Order{
			Email:     req.Email,
			BookID:    req.BookID,
			BookTitle: req.BookTitle,
			Price:     req.Price,
			Extra:     extra,
		}

		// Without an idempotency key this is a plain insert
		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" {
			res, err := ordersStore.Create(ctx, order)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Header("Location", fmt.Sprintf("/orders/%s", res.InsertedID))
			c.JSON(http.StatusCreated, res)
			return
		}

		// The response is known before the write, so the idempotency record
		// is stored as DONE in the same transaction as the order.
		key := idempotency.ScopedKey(idempotency.ScopeCreateOrder, idempKey)
		order.ID = store.NewID()
		res := store.InsertResult{Acknowledged: true, InsertedID: order.ID}
		body, err := json.Marshal(res)
		if err != nil {
			respondError(c, err)
			return
		}
		rec := idempStore.DoneRecord(key, order.ID, string(body), http.StatusCreated)

		err = ordersStore.CreateWithIdempotencyTransaction(ctx, idempStore.TableName(), rec, &order, idempStore.TTL())
		if errors.Is(err, orders.ErrIdempotencyConflict) {
			replayIdempotent(c, idempStore, key)
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Location", fmt.Sprintf("/orders/%s", order.ID))
		c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
	})

	r.PATCH("/orders/cancel/:id", auth.RequireAuth(cfg.Verifier), func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		principal, _ := auth.PrincipalFrom(c)

		o, err := ordersStore.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if o == nil {
			notFound(c, "Order not found")
			return
		}
		if err := auth.CanCancel(o, principal.Email); err != nil {
			respondError(c, err)
			return
		}

		res, err := ordersStore.Cancel(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		ev := events.New(events.TypeOrderCanceled)
		ev.OrderID = id
		ev.Email = principal.Email
		if err := publisher.Publish(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "publish order.canceled failed", "order_id", id, "error", err)
		}
		c.JSON(http.StatusOK, res)
	})
}
