package server

import (
	"errors"
	"net/http"
	"strings"

	accountdomain "github.com/billingworks/subsync/internal/account/domain"
	"github.com/billingworks/subsync/internal/accountcontext"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountRequired authenticates the caller by bearer token and stores the
// resolved user (hence account) on the request context. Token issuance is
// an external concern; we only match the stored hash.
func (s *Server) AccountRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c)
			return
		}

		hash := accountdomain.HashToken(parts[1])

		var user accountdomain.User
		if err := s.db.WithContext(c.Request.Context()).
			Where("token_hash = ?", hash).
			First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortUnauthorized(c)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
			return
		}

		c.Request = c.Request.WithContext(accountcontext.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"detail": "Authentication credentials were not provided.",
	})
}
