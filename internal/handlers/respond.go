package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/idempotency"
)

// respondError writes err as {message} with the status of its kind. Details
// of unclassified errors are logged, never returned.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "route", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"message": apperr.Message(err)})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"message": msg})
}

// replayIdempotent answers a request whose idempotency key was seen before,
// according to the state of the earlier attempt.
func replayIdempotent(c *gin.Context, st *idempotency.Store, key string) {
	rec, err := st.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	if rec == nil {
		// TTL expiry between the failed write and this read
		c.JSON(http.StatusConflict, gin.H{"message": "idempotency key conflict, retry the request"})
		return
	}

	c.Header("Idempotent-Replayed", "true")
	switch rec.Status {
	case idempotency.StatusDone:
		status := rec.ResponseStatus
		if status == 0 {
			status = http.StatusOK
		}
		if rec.ResponseBody != "" && json.Valid([]byte(rec.ResponseBody)) {
			c.Data(status, "application/json; charset=utf-8", []byte(rec.ResponseBody))
			return
		}
		c.JSON(status, gin.H{"ref": rec.Ref})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "ref": rec.Ref})
	case idempotency.StatusFailed:
		c.JSON(http.StatusConflict, gin.H{"message": "previous attempt failed, retry with a new Idempotency-Key", "ref": rec.Ref})
	default:
		respondError(c, fmt.Errorf("unknown idempotency status %q", rec.Status))
	}
}
