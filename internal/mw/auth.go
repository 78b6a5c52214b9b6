package mw

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/session"
)

const identityKey = "hostel.identity"

// Verifier checks a bearer token.
type Verifier interface {
	Verify(token string) (session.Identity, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the identity on the context.
func Authenticate(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			Abort(c, apperr.Unauthorized("missing session token"))
			return
		}

		id, err := v.Verify(token)
		if err != nil {
			Abort(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole rejects identities outside roles. It must run after Authenticate.
func RequireRole(roles ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			Abort(c, apperr.Unauthorized("missing session token"))
			return
		}
		if !slices.Contains(roles, id.Role) {
			Abort(c, apperr.Forbidden("%s role is not allowed here", id.Role))
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by Authenticate.
func IdentityFrom(c *gin.Context) (session.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return session.Identity{}, false
	}
	id, ok := v.(session.Identity)
	return id, ok
}

// Abort ends the request with the error's status and public message.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
}
