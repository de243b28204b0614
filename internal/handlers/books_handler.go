package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/books"
	"github.com/bookcourier/courier-api/internal/store"
	"github.com/bookcourier/courier-api/internal/validation"
)

// RegisterBooksRoutes registers the catalogue routes.
func RegisterBooksRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	booksStore := books.NewStore(store.New(cfg.DynamoDBClient), cfg.Tables.Books)

	r.GET("/books", func(c *gin.Context) {
		list, err := booksStore.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/books/:id", func(c *gin.Context) {
		b, err := booksStore.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if b == nil {
			notFound(c, "Book not found")
			return
		}
		c.JSON(http.StatusOK, b)
	})

	r.POST("/books", func(c *gin.Context) {
		var req validation.CreateBookRequest
		extra, err := validation.BindRecord(c, &req, v)
		if err != nil {
			return
		}
		res, err := booksStore.Create(c.Request.Context(), books.Book{
			Title:  req.Title,
			Author: req.Author,
			Price:  req.Price,
			Extra:  extra,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Location", fmt.Sprintf("/books/%s", res.InsertedID))
		c.JSON(http.StatusCreated, res)
	})
}
