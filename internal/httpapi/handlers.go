package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/oauth"
)

// authorizeGet handles "GET /authorize" (spec §4.4).
func authorizeGet(engine *oauth.Engine, sessions *sessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.sessionFor(c)
		userID, _ := c.Get("userID")
		req := buildRequest(c, sess, userID)

		result, oerr := engine.Authorize(c.Request.Context(), req)
		if oerr != nil {
			renderError(c, oerr)
			return
		}
		renderResult(c, result)
	}
}

// authorizePost handles "POST /authorize" consent resolution (spec §4.4).
func authorizePost(engine *oauth.Engine, sessions *sessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.sessionFor(c)
		userID, _ := c.Get("userID")
		req := buildRequest(c, sess, userID)

		result, oerr := engine.ResolveConsent(c.Request.Context(), req)
		if oerr != nil {
			renderError(c, oerr)
			return
		}
		renderResult(c, result)
	}
}

// token handles "POST /token" (spec §4.4).
func token(engine *oauth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := buildRequest(c, nil, nil)
		result, oerr := engine.Token(c.Request.Context(), req)
		if oerr != nil {
			renderError(c, oerr)
			return
		}
		renderResult(c, result)
	}
}

// revoke handles "POST /revoke" (spec §4.4, RFC 7009).
func revoke(engine *oauth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := buildRequest(c, nil, nil)
		result, oerr := engine.Revoke(c.Request.Context(), req)
		if oerr != nil {
			renderError(c, oerr)
			return
		}
		renderResult(c, result)
	}
}

// introspect handles "POST /introspect" (spec §4.4, RFC 7662).
func introspect(engine *oauth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := buildRequest(c, nil, nil)
		result, oerr := engine.Introspect(c.Request.Context(), req)
		if oerr != nil {
			renderError(c, oerr)
			return
		}
		renderResult(c, result)
	}
}
