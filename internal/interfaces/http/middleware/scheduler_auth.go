package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/dto"
)

// SchedulerAuth guards endpoints triggered by external schedulers with a
// static bearer token. Requests without a matching token are rejected with
// 401 before any handler runs. An empty configured token disables the
// endpoints entirely rather than leaving them open.
func SchedulerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			abortUnauthorized(c, "Scheduler endpoints are disabled")
			return
		}

		header := c.GetHeader("Authorization")
		provided, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || provided == "" {
			abortUnauthorized(c, "Missing bearer token")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			abortUnauthorized(c, "Invalid bearer token")
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	requestID := c.GetString("request_id")
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, requestID))
}
