package middleware

import (
	apiError "alpha-qms/internal/errors"
	"errors"
	"log"

	"github.com/gin-gonic/gin"
)

// ErrorHandler translates APIErrors pushed by handlers with c.Error into
// the JSON response. Anything that reaches it unwrapped is a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *apiError.APIError
		if !errors.As(err, &apiErr) {
			apiErr = apiError.Internal(err)
		}

		if apiErr.Status >= 500 {
			log.Printf("[ERROR] %v", apiErr.Internal)
		} else {
			// rejected transitions and permission denials are routine here
			log.Printf("[WARN] %s: %v", apiErr.Message, apiErr.Internal)
		}

		c.AbortWithStatusJSON(apiErr.Status, apiErr)
	}
}
