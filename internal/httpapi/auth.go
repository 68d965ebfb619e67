package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/bearer"
)

// sessionUserKey is the session entry the host application's own login flow
// is expected to populate once it has authenticated the browser's human
// user; user accounts are a collaborator, not reimplemented here (spec §1,
// §9's "dynamic user type" note). A map is used, not a bare string, so
// oauth.SessionStore's map[string]string contract stays uniform.
const sessionUserKey = "_authd_user"

// requireSessionUser gates the interactive consent endpoints (GET/POST
// /authorize) and the self-service management endpoints (/clients,
// /personal-tokens) on a session-attached user id. In this repository that
// id is supplied either by an upstream login flow writing it into the
// session, or, for integration testing and hosts without their own
// session layer, the X-Authd-User-Id header. Production deployments are
// expected to replace this header fallback with their real login
// middleware.
func requireSessionUser(sessions *sessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.sessionFor(c)
		if v, ok := sess.Get(sessionUserKey); ok && v["id"] != "" {
			c.Set("oauthSession", sess)
			c.Set("userID", v["id"])
			c.Next()
			return
		}
		if id := c.GetHeader("X-Authd-User-Id"); id != "" {
			sess.Put(sessionUserKey, map[string]string{"id": id})
			c.Set("oauthSession", sess)
			c.Set("userID", id)
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":             "login_required",
			"error_description": "an authenticated session user is required",
		})
	}
}

// IdentityResolver is the default bearer.UserResolver: absent a separate
// user-account store, the bound user id is its own representation. It is
// exported so cmd/authd can wire it into bearer.NewGuard; without it, any
// access token bound to a user (every authorization_code grant) would fail
// Bearer Guard authentication, since bearer.Guard.Authenticate rejects
// user-bound tokens outright when its Resolver is nil. Hosts with a real
// user table inject their own resolver (bearer.UserResolver) to turn the
// id into a hydrated user record instead.
type IdentityResolver struct{}

func (IdentityResolver) Resolve(ctx context.Context, userID string) (interface{}, error) {
	return userID, nil
}

var _ bearer.UserResolver = IdentityResolver{}

// requireBearer authenticates the Authorization header via the Bearer
// Guard and attaches the result to the gin context for downstream handlers
// and scope checks (spec §4.5).
func requireBearer(guard *bearer.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, err := guard.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, bearer.ErrUnauthenticated) {
				code = "unauthenticated"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             code,
				"error_description": err.Error(),
			})
			return
		}
		c.Set("authenticated", auth)
		c.Next()
	}
}

// requireScopes enforces the bearer token carries every scope in required,
// matching spec §4.5's scope-enforcement middleware.
func requireScopes(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("authenticated")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		auth := v.(*bearer.Authenticated)
		if missing := bearer.RequireScopes(auth.Token, required); missing != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":             "insufficient_scope",
				"error_description": missing.Error(),
			})
			return
		}
		c.Next()
	}
}
