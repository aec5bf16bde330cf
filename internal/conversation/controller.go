// Package conversation keeps a client's view of the logged-in user and their
// message history consistent with the message service.
package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/suPer8Hu/message-app/internal/api"
	"github.com/suPer8Hu/message-app/internal/observability"
	"github.com/suPer8Hu/message-app/internal/session"
)

// Service is the remote message service. *api.Client implements it.
type Service interface {
	Login(ctx context.Context, user string) (string, error)
	Logout(ctx context.Context) error
	UserMessages(ctx context.Context) ([]api.Message, error)
	SendMessage(ctx context.Context, text string) (api.SentMessages, error)
}

var _ Service = (*api.Client)(nil)

// Shown when the service gives no error text of its own.
const (
	ErrTextLogin   = "Login failed"
	ErrTextLogout  = "Logout failed"
	ErrTextRefresh = "Failed to load messages"
	ErrTextSend    = "Failed to send message"
)

// Controller serializes every mutation of the session and the conversation
// state through mu. Network calls run without holding it; their results are
// applied only if the session they were issued under is still current.
type Controller struct {
	svc      Service
	session  *session.Store
	log      *slog.Logger
	onChange func(State)

	mu sync.Mutex
	// epoch changes whenever the session is set or cleared.
	epoch    uint64
	messages []api.Message
	input    string
	loading  int
	errText  string
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = observability.OrDiscard(l) }
}

// WithOnChange registers fn to receive a State after every mutation. fn is
// called without the controller's lock held.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

func NewController(svc Service, store *session.Store, opts ...Option) *Controller {
	c := &Controller{
		svc:     svc,
		session: store,
		log:     observability.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	st := State{
		ActiveUser: c.session.Active(),
		Messages:   cloneMessages(c.messages),
		Input:      c.input,
		Status:     StatusIdle,
		Error:      c.errText,
	}
	if c.loading > 0 {
		st.Status = StatusLoading
	}
	return st
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	st := c.snapshotLocked()
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(st)
	}
}

// Start restores a persisted session and loads its history.
func (c *Controller) Start(ctx context.Context) {
	var user string
	c.update(func() {
		user = c.session.Restore(ctx)
		c.epoch++
		c.messages = nil
	})

	if user == "" {
		return
	}
	c.log.Info("session restored", "user", user)
	c.RefreshMessages(ctx)
}

// Login authenticates as user. The identity the service confirms becomes the
// session, and the history is reloaded exactly once. A failed login leaves
// the existing session and messages alone.
func (c *Controller) Login(ctx context.Context, user string) {
	c.update(func() { c.errText = "" })

	confirmed, err := c.svc.Login(ctx, user)
	if err != nil {
		c.log.Warn("login failed", "requested_user", user, "error", err)
		c.update(func() { c.errText = errorText(err, ErrTextLogin) })
		return
	}

	ok := true
	c.update(func() {
		previous := c.session.Active()
		if err := c.session.Set(ctx, confirmed); err != nil {
			c.log.Error("persist session failed", "user", confirmed, "error", err)
			c.errText = ErrTextLogin
			ok = false
			return
		}
		c.epoch++
		if previous != confirmed {
			c.messages = nil
		}
		c.errText = ""
	})
	if !ok {
		return
	}

	if confirmed != user {
		c.log.Info("service confirmed a different user", "requested_user", user, "active_user", confirmed)
	}
	c.RefreshMessages(ctx)
}

// RefreshMessages replaces the local history with the service's. Without a
// session it only clears the local history.
func (c *Controller) RefreshMessages(ctx context.Context) {
	var (
		user  string
		epoch uint64
	)
	c.update(func() {
		user = c.session.Active()
		if user == "" {
			c.messages = nil
			return
		}
		epoch = c.epoch
		c.loading++
	})
	if user == "" {
		return
	}

	msgs, err := c.svc.UserMessages(ctx)

	c.update(func() {
		c.loading--

		if c.epoch != epoch {
			c.log.Debug("dropping refresh result for a previous session", "user", user)
			return
		}

		if err != nil {
			c.log.Warn("refresh failed", "user", user, "error", err)
			if api.IsUnauthorized(err) {
				c.forceLogoutLocked(ctx, "refresh")
			}
			c.errText = errorText(err, ErrTextRefresh)
			return
		}

		c.messages = cloneMessages(msgs)
		c.errText = ""
		c.checkSendersLocked(msgs, user)
	})
}

// Logout asks the service to end the session and then always clears local
// state, even when the service call fails.
func (c *Controller) Logout(ctx context.Context) {
	err := c.svc.Logout(ctx)

	c.update(func() {
		c.clearLocked(ctx)
		if err != nil {
			c.log.Warn("remote logout failed, logged out locally", "error", err)
			c.errText = errorText(err, ErrTextLogout)
			return
		}
		c.errText = ""
	})
}

// SetInput records the text being composed.
func (c *Controller) SetInput(text string) {
	c.update(func() { c.input = text })
}

// Submit sends the pending input.
func (c *Controller) Submit(ctx context.Context) {
	c.mu.Lock()
	text := c.input
	c.mu.Unlock()
	c.SendMessage(ctx, text)
}

// SendMessage sends text and appends the service's user message and responder
// reply, in that order, without reloading the history. Blank text is ignored.
func (c *Controller) SendMessage(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	var (
		user  string
		epoch uint64
	)
	c.update(func() {
		user = c.session.Active()
		epoch = c.epoch
		c.errText = ""
	})

	sent, err := c.svc.SendMessage(ctx, text)

	c.update(func() {
		if err != nil {
			c.log.Warn("send failed", "user", user, "error", err)
			if api.IsUnauthorized(err) && c.epoch == epoch {
				c.forceLogoutLocked(ctx, "send")
			}
			c.errText = errorText(err, ErrTextSend)
			return
		}

		c.input = ""
		c.errText = ""
		if c.epoch != epoch {
			c.log.Debug("dropping sent messages for a previous session", "user", user)
			return
		}
		pair := []api.Message{sent.UserMessage, sent.BotMessage}
		c.messages = append(c.messages, cloneMessages(pair)...)
		c.checkSendersLocked(pair, user)
	})
}

// forceLogoutLocked handles a 401: the service no longer knows us, so the
// local session goes too.
func (c *Controller) forceLogoutLocked(ctx context.Context, op string) {
	c.log.Info("service rejected session, logging out locally", "op", op, "user", c.session.Active())
	c.clearLocked(ctx)
}

func (c *Controller) clearLocked(ctx context.Context) {
	if err := c.session.Clear(ctx); err != nil {
		c.log.Error("clear persisted session failed", "error", err)
	}
	c.epoch++
	c.messages = nil
}

func (c *Controller) checkSendersLocked(msgs []api.Message, user string) {
	for _, m := range msgs {
		if Classify(m, user) == KindOther {
			c.log.Warn("message from unexpected sender", "id", m.ID, "sender", m.Sender, "active_user", user)
		}
	}
}

func errorText(err error, fallback string) string {
	if msg := api.ErrorMessage(err); msg != "" {
		return msg
	}
	return fallback
}
