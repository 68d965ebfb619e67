package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/credential"
)

// clientCreateRequest is the body accepted by POST /clients, generalizing
// the teacher's client_controller.go CreateClient request shape to the
// spec's richer Client fields (redirect URI list, scope allow-list, grant
// types, confidential/first-party).
type clientCreateRequest struct {
	Name         string   `json:"name" binding:"required"`
	RedirectURIs []string `json:"redirect_uris"`
	Scopes       []string `json:"scopes"`
	GrantTypes   []string `json:"grant_types"`
	Confidential *bool    `json:"confidential"`
	FirstParty   bool     `json:"first_party"`
}

// registerClientRoutes wires "GET/POST/DELETE /clients[/:id]" (spec §6).
func registerClientRoutes(group *gin.RouterGroup, clients *credential.ClientStore) {
	group.GET("", func(c *gin.Context) {
		rows, err := clients.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
			return
		}
		out := make([]gin.H, 0, len(rows))
		for _, client := range rows {
			out = append(out, gin.H{
				"client_id":     client.ID,
				"name":          client.Name,
				"redirect_uris": []string(client.RedirectURIs),
				"grant_types":   []string(client.GrantTypes),
				"confidential":  client.Confidential,
				"first_party":   client.FirstParty,
				"revoked":       client.Revoked,
			})
		}
		c.JSON(http.StatusOK, out)
	})

	group.POST("", func(c *gin.Context) {
		var req clientCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": err.Error()})
			return
		}

		var scopes *[]string
		if req.Scopes != nil {
			scopes = &req.Scopes
		}

		client, plainSecret, err := clients.Create(c.Request.Context(), credential.ClientInput{
			Name:         req.Name,
			RedirectURIs: req.RedirectURIs,
			Scopes:       scopes,
			GrantTypes:   req.GrantTypes,
			Confidential: req.Confidential,
			FirstParty:   req.FirstParty,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"client_id":     client.ID,
			"client_secret": plainSecret,
			"name":          client.Name,
			"redirect_uris": []string(client.RedirectURIs),
			"grant_types":   []string(client.GrantTypes),
			"confidential":  client.Confidential,
			"first_party":   client.FirstParty,
		})
	})

	group.GET("/:id", func(c *gin.Context) {
		client, err := clients.Find(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"client_id":     client.ID,
			"name":          client.Name,
			"redirect_uris": []string(client.RedirectURIs),
			"grant_types":   []string(client.GrantTypes),
			"confidential":  client.Confidential,
			"first_party":   client.FirstParty,
			"revoked":       client.Revoked,
		})
	})

	group.DELETE("/:id", func(c *gin.Context) {
		if err := clients.Revoke(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
