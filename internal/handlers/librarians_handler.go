package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/auth"
	"github.com/bookcourier/courier-api/internal/aws"
	"github.com/bookcourier/courier-api/internal/librarians"
	"github.com/bookcourier/courier-api/internal/store"
	"github.com/bookcourier/courier-api/internal/users"
	"github.com/bookcourier/courier-api/internal/validation"
)

// RegisterLibrariansRoutes registers librarian application routes.
func RegisterLibrariansRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	gw := store.New(cfg.DynamoDBClient)
	appsStore := librarians.NewStore(gw, cfg.Tables.Librarians)
	usersStore := users.NewStore(gw, cfg.Tables.Users)
	reviewer := librarians.NewReviewer(appsStore, usersStore, aws.NewPublisher(cfg.SQSClient, cfg.QueueURL))
	authorizer := auth.NewAuthorizer(usersStore)

	r.GET("/librarians", func(c *gin.Context) {
		list, err := appsStore.List(c.Request.Context(), c.Query("status"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.POST("/librarians", func(c *gin.Context) {
		var req validation.CreateLibrarianRequest
		extra, err := validation.BindRecord(c, &req, v)
		if err != nil {
			return
		}
		res, err := appsStore.Create(c.Request.Context(), librarians.Application{
			Email: req.Email,
			Name:  req.Name,
			Extra: extra,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	})

	r.PATCH("/librarians/:id", auth.RequireAuth(cfg.Verifier), auth.RequireAdmin(authorizer), func(c *gin.Context) {
		var req validation.LibrarianStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		res, err := reviewer.SetStatus(c.Request.Context(), c.Param("id"), req.Status, req.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}
