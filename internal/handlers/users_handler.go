package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/auth"
	"github.com/bookcourier/courier-api/internal/store"
	"github.com/bookcourier/courier-api/internal/users"
	"github.com/bookcourier/courier-api/internal/validation"
)

// RegisterUsersRoutes registers account and role routes.
func RegisterUsersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	usersStore := users.NewStore(store.New(cfg.DynamoDBClient), cfg.Tables.Users)
	authorizer := auth.NewAuthorizer(usersStore)
	requireAuth := auth.RequireAuth(cfg.Verifier)

	r.GET("/users", requireAuth, func(c *gin.Context) {
		list, err := usersStore.Search(c.Request.Context(), c.Query("searchText"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/users/:email/role", func(c *gin.Context) {
		role, err := usersStore.RoleOf(c.Request.Context(), c.Param("email"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": role})
	})

	r.PATCH("/users/:id/role", requireAuth, auth.RequireAdmin(authorizer), func(c *gin.Context) {
		var req validation.RoleUpdateRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		res, err := usersStore.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	r.POST("/users", func(c *gin.Context) {
		var req validation.CreateUserRequest
		extra, err := validation.BindRecord(c, &req, v)
		if err != nil {
			return
		}
		res, created, err := usersStore.CreateIfAbsent(c.Request.Context(), users.User{
			Email:       req.Email,
			DisplayName: req.DisplayName,
			PhotoURL:    req.PhotoURL,
			Extra:       extra,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		if !created {
			c.JSON(http.StatusOK, gin.H{"message": "user already exists"})
			return
		}
		c.Header("Location", fmt.Sprintf("/users/%s/role", req.Email))
		c.JSON(http.StatusCreated, res)
	})
}
