// Package httpapi hosts the Grant Protocol Engine and Bearer Guard behind
// gin: it adapts *gin.Context to oauth.Request/oauth.Result and never
// re-implements protocol logic the core already owns (spec §1, §6).
package httpapi

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/oauth"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// buildRequest adapts an inbound *gin.Context into the engine's Request
// shape. It parses the body as JSON-or-form per spec §4.4's "Parses body
// (JSON or form)" note: Request.ParseForm already covers form bodies, so
// only JSON needs an explicit merge into the same url.Values.
func buildRequest(c *gin.Context, sess oauth.SessionStore, user interface{}) *oauth.Request {
	_ = c.Request.ParseForm()
	form := c.Request.PostForm

	if ct := c.ContentType(); ct == "application/json" {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err == nil {
			if form == nil {
				form = url.Values{}
			}
			for k, v := range body {
				if s, ok := v.(string); ok {
					form.Set(k, s)
				}
			}
		}
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.GetHeader(k)
	}

	return &oauth.Request{
		Method:  c.Request.Method,
		Query:   c.Request.URL.Query(),
		Form:    form,
		Header:  headers,
		Session: sess,
		User:    user,
	}
}

// renderResult writes an *oauth.Result to the wire: a redirect when
// RedirectURL is set, otherwise the JSON payload at the given status.
func renderResult(c *gin.Context, result *oauth.Result) {
	if result.RedirectURL != "" {
		c.Redirect(http.StatusFound, result.RedirectURL)
		return
	}
	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, result.JSON)
}

// renderError writes an *oauth.Error as the RFC 6749 §5.2 JSON envelope.
func renderError(c *gin.Context, err *oauth.Error) {
	c.JSON(err.Status, err)
}
