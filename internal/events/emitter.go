// Package events implements the Grant Protocol Engine's non-blocking emit
// hook (spec §4.4, §5: "external emit hooks are invoked non-blockingly;
// their failure does not affect protocol correctness").
package events

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Kind enumerates the lifecycle events the engine emits.
type Kind string

const (
	CodeIssued     Kind = "CODE_ISSUED"
	TokenIssued    Kind = "TOKEN_ISSUED"
	TokenRefreshed Kind = "TOKEN_REFRESHED"
	TokenRevoked   Kind = "TOKEN_REVOKED"
)

// Event carries enough identifying context for an external subscriber
// (audit log, metrics) without ever including a secret value.
type Event struct {
	Kind     Kind
	ClientID string
	UserID   string
	TokenID  string
	CodeID   string
}

// Handler receives emitted events. It runs on its own goroutine per Emit
// call; a slow or panicking handler must not affect the request that
// triggered it.
type Handler func(Event)

// Emitter fans an Event out to zero or more registered handlers.
type Emitter struct {
	handlers []Handler
}

// NewEmitter constructs an Emitter. The default handler logs at info
// level; additional handlers (metrics, webhooks) can be appended with
// Subscribe.
func NewEmitter() *Emitter {
	e := &Emitter{}
	e.Subscribe(logHandler)
	return e
}

// Subscribe registers an additional handler.
func (e *Emitter) Subscribe(h Handler) {
	e.handlers = append(e.handlers, h)
}

// Emit dispatches ev to every registered handler on its own goroutine, per
// spec §5's non-blocking requirement.
func (e *Emitter) Emit(ev Event) {
	for _, h := range e.handlers {
		go safeCall(h, ev)
	}
}

func safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("events: handler panicked")
		}
	}()
	h(ev)
}

func logHandler(ev Event) {
	log.WithFields(logrus.Fields{
		"kind":      ev.Kind,
		"client_id": ev.ClientID,
		"user_id":   ev.UserID,
		"token_id":  ev.TokenID,
		"code_id":   ev.CodeID,
	}).Info("oauth event")
}
