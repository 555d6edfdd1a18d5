package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fundfolio-api/internal/apierr"
)

// ErrorHandler turns errors attached to the gin context into one JSON
// response. Handlers call c.Error(err) and return; the classification on
// the error picks the status code. Unclassified errors become 500s with a
// generic body so internals never leak.
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		kind := apierr.KindOf(err)

		entry := logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"kind":   kind.String(),
		})

		if kind == apierr.KindInternal {
			entry.WithError(err).Error("Request failed")
			c.JSON(kind.HTTPStatus(), gin.H{
				"error":   kind.String(),
				"message": "internal server error",
			})
			return
		}

		entry.WithError(err).Debug("Request rejected")
		c.JSON(kind.HTTPStatus(), gin.H{
			"error":   kind.String(),
			"message": err.Error(),
		})
	}
}
