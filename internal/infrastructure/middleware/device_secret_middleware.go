package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const deviceSecretHeader = "x-device-secret"

// DeviceSecretMiddleware authenticates sensor devices by shared secret.
// Devices are too constrained for JWT; they send the secret in a header on
// every request. An empty configured secret rejects everything.
func DeviceSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "device ingestion disabled"})
			return
		}

		got := c.GetHeader(deviceSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid device secret"})
			return
		}

		c.Next()
	}
}
