package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/serializer"
	"github.com/ucu-innovators/hub/internal/modules/service"
	"github.com/ucu-innovators/hub/internal/pkg/authn"
)

const principalKey = "principal"

// PrincipalFrom returns the authenticated caller, or nil for anonymous requests.
func PrincipalFrom(c *gin.Context) *policy.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*policy.Principal)
	return p
}

func bearer(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func setPrincipal(c *gin.Context, p *policy.Principal) {
	c.Set(principalKey, p)
	span := trace.SpanFromContext(c.Request.Context())
	if span.SpanContext().IsValid() {
		span.SetAttributes(
			attribute.String("user_id", p.ID.String()),
			attribute.String("user_role", string(p.Role)),
		)
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(iss *authn.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			serializer.Abort(c, service.ErrUnauthenticated)
			return
		}
		p, err := iss.Verify(raw)
		if err != nil {
			serializer.Abort(c, service.ErrUnauthenticated)
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present. A malformed or
// expired token is still rejected so clients notice a stale session.
func OptionalAuth(iss *authn.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.Next()
			return
		}
		p, err := iss.Verify(raw)
		if err != nil {
			serializer.Abort(c, service.ErrUnauthenticated)
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}
