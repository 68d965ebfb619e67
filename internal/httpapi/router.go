package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/bearer"
	"github.com/lumenauth/authd/internal/config"
	"github.com/lumenauth/authd/internal/credential"
	"github.com/lumenauth/authd/internal/oauth"
)

// NewRouter wires the spec §6 HTTP surface onto a *gin.Engine, grouped
// under cfg.Prefix the way the teacher's cmd/main.go#setupRoutes groups
// pizza routes under /api/v1.
func NewRouter(cfg *config.Config, engine *oauth.Engine, guard *bearer.Guard, clients *credential.ClientStore, tokens *credential.TokenStore) *gin.Engine {
	router := gin.Default()
	sessions := newSessionStore()

	router.GET("/health", healthCheck)

	oauthGroup := router.Group(cfg.Prefix)
	{
		authorize := oauthGroup.Group("/authorize")
		authorize.Use(rateLimitMiddleware(cfg.RateLimitAuthorize), requireSessionUser(sessions))
		authorize.GET("", authorizeGet(engine, sessions))
		authorize.POST("", authorizePost(engine, sessions))

		oauthGroup.POST("/token", rateLimitMiddleware(cfg.RateLimitToken), token(engine))
		oauthGroup.POST("/revoke", revoke(engine))
		oauthGroup.POST("/introspect", introspect(engine))

		management := oauthGroup.Group("")
		management.Use(requireSessionUser(sessions))
		registerClientRoutes(management.Group("/clients"), clients)
		registerPersonalTokenRoutes(management.Group("/personal-tokens"), tokens, cfg)
	}

	return router
}

// NewProtectedGroup is a convenience for host applications that also expose
// their own resource API behind the Bearer Guard (spec §4.5): it attaches
// Authenticate as middleware and returns a group handlers can extend with
// requireScopes(...).
func NewProtectedGroup(router *gin.Engine, path string, guard *bearer.Guard) *gin.RouterGroup {
	group := router.Group(path)
	group.Use(requireBearer(guard))
	return group
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "authd",
	})
}
