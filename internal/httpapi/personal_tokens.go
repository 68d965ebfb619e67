package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/config"
	"github.com/lumenauth/authd/internal/credential"
)

type personalTokenCreateRequest struct {
	Name   string   `json:"name" binding:"required"`
	Scopes []string `json:"scopes"`
}

// registerPersonalTokenRoutes wires "GET/POST/DELETE /personal-tokens[/:id]"
// (spec §6): human-named tokens a session user mints for themself against
// the configured personal access client, mirroring the teacher's
// client_controller.go CRUD shape but scoped to the caller's own tokens.
func registerPersonalTokenRoutes(group *gin.RouterGroup, tokens *credential.TokenStore, cfg *config.Config) {
	group.GET("", func(c *gin.Context) {
		userID := c.GetString("userID")
		rows, err := tokens.PersonalTokensFor(c.Request.Context(), userID, cfg.PersonalAccessClient)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
			return
		}
		out := make([]gin.H, 0, len(rows))
		for _, row := range rows {
			out = append(out, gin.H{
				"id":         row.ID,
				"name":       row.Name,
				"scopes":     []string(row.Scopes),
				"created_at": row.CreatedAt,
				"expires_at": row.ExpiresAt,
			})
		}
		c.JSON(http.StatusOK, out)
	})

	group.POST("", func(c *gin.Context) {
		if cfg.PersonalAccessClient == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":             "invalid_request",
				"error_description": "no personal access client is configured",
			})
			return
		}

		var req personalTokenCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": err.Error()})
			return
		}

		userID := c.GetString("userID")
		name := req.Name
		plainAccess, _, row, err := tokens.Create(c.Request.Context(), credential.TokenParams{
			UserID:              &userID,
			ClientID:            cfg.PersonalAccessClient,
			Name:                &name,
			Scopes:              req.Scopes,
			IssueRefresh:        false,
			AccessTokenLifetime: cfg.PersonalAccessTokenLifetime,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":           row.ID,
			"name":         row.Name,
			"access_token": plainAccess,
			"scopes":       []string(row.Scopes),
			"expires_at":   row.ExpiresAt,
		})
	})

	group.DELETE("/:id", func(c *gin.Context) {
		userID := c.GetString("userID")
		rows, err := tokens.PersonalTokensFor(c.Request.Context(), userID, cfg.PersonalAccessClient)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
			return
		}
		id := c.Param("id")
		found := false
		for _, row := range rows {
			if row.ID == id {
				found = true
				break
			}
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err := tokens.Revoke(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
