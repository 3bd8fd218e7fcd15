package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth gates the provisioning and import surface behind the static
// admin bearer token. An empty configured token disables the surface.
func (s *Server) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.AdminAPIToken
		if token == "" {
			AbortWithError(c, ErrForbidden)
			return
		}

		supplied := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		supplied = strings.TrimSpace(supplied)
		if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}
