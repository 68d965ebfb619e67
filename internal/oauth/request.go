// Package oauth implements the Grant Protocol Engine (spec §4.4): the
// framework-agnostic core of the authorization server; the Bearer Guard
// lives in package bearer. It never imports gin; the host (internal/httpapi) adapts
// *gin.Context to Request and Result back to the wire.
package oauth

import (
	"fmt"
	"net/url"

	"github.com/lumenauth/authd/internal/models"
	"github.com/lumenauth/authd/internal/scopes"
)

// Request is the engine's view of an inbound HTTP request: enough to run
// every algorithm in §4.4 without depending on a web framework.
type Request struct {
	Method string
	Query  url.Values
	Form   url.Values // merged JSON-or-form body, per spec §4.4 "Parses body (JSON or form)"
	Header map[string]string

	Session SessionStore
	User    interface{} // resolved via ResolveUserID; string, int, or {id: ...}
}

// Param reads name from the form body, falling back to the query string.
func (r *Request) Param(name string) string {
	if r.Form != nil {
		if v := r.Form.Get(name); v != "" {
			return v
		}
	}
	if r.Query != nil {
		return r.Query.Get(name)
	}
	return ""
}

// QueryParam reads name from the query string only.
func (r *Request) QueryParam(name string) string {
	if r.Query == nil {
		return ""
	}
	return r.Query.Get(name)
}

// Result is the engine's response: the host renders it as JSON, a redirect,
// or both depending on which fields are set.
type Result struct {
	Status      int
	JSON        interface{}
	RedirectURL string
}

// SessionStore abstracts the host's session mechanism. Per spec §9, the
// `_oauth2_auth_request` payload is "small and bounded", a handful of
// string fields, so Get/Put operate on string maps rather than arbitrary
// blobs.
type SessionStore interface {
	Get(key string) (map[string]string, bool)
	Put(key string, value map[string]string)
	Delete(key string)
}

// ConsentRenderer is the optional capability from spec §4.4 step 10: when
// present, the engine defers first-party-exempt consent rendering to it
// instead of returning the bare JSON "authorization_required" payload.
type ConsentRenderer interface {
	Render(client *models.Client, scopeDescs []scopes.Definition, state string) (*Result, error)
}

// ResolveUserID implements the "dynamic user type" adapter from spec §9:
// getUserId accepts a string, an integer, or an object exposing an `id`
// field, and fails otherwise.
func ResolveUserID(user interface{}) (string, error) {
	switch v := user.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("oauth: ResolveUserID: empty string user id")
		}
		return v, nil
	case int:
		return fmt.Sprintf("%d", v), nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case uint:
		return fmt.Sprintf("%d", v), nil
	case map[string]interface{}:
		if id, ok := v["id"]; ok {
			return ResolveUserID(id)
		}
		return "", fmt.Errorf("oauth: ResolveUserID: map missing \"id\" field")
	case interface{ GetID() string }:
		return v.GetID(), nil
	default:
		return "", fmt.Errorf("oauth: ResolveUserID: unsupported user type %T", user)
	}
}
