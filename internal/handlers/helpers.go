package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-rooms-service/internal/authz"
	"chat-rooms-service/internal/middleware"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func actorFromContext(c *gin.Context) authz.Actor {
	return authz.Actor{
		UserID:     c.GetInt64(middleware.UserIDKey),
		IsAppAdmin: c.GetBool(middleware.IsAdminKey),
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func nowMillisString() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
