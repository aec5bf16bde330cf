package conversation_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/message-app/internal/api"
	"github.com/suPer8Hu/message-app/internal/conversation"
	"github.com/suPer8Hu/message-app/internal/session"
	"github.com/suPer8Hu/message-app/internal/store/sqlstore"
	"gorm.io/gorm"
)

type fakeService struct {
	mu sync.Mutex

	loginUser string
	loginErr  error
	logoutErr error
	history   []api.Message
	listErr   error
	sent      api.SentMessages
	sendErr   error

	// beforeList runs inside UserMessages, before it returns.
	beforeList func()

	logins    int
	logouts   int
	lists     int
	sends     int
	sentTexts []string
}

func (f *fakeService) Login(_ context.Context, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return "", f.loginErr
	}
	if f.loginUser != "" {
		return f.loginUser, nil
	}
	return user, nil
}

func (f *fakeService) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

func (f *fakeService) UserMessages(context.Context) ([]api.Message, error) {
	f.mu.Lock()
	f.lists++
	hook := f.beforeList
	history, err := f.history, f.listErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (f *fakeService) SendMessage(_ context.Context, text string) (api.SentMessages, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.sentTexts = append(f.sentTexts, text)
	if f.sendErr != nil {
		return api.SentMessages{}, f.sendErr
	}
	return f.sent, nil
}

func (f *fakeService) set(fn func(*fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func ptr(s string) *string { return &s }

func userMsg(id uint64, sender, text string) api.Message {
	return api.Message{ID: id, Sender: sender, UserText: ptr(text), CreatedAt: time.Unix(int64(id), 0)}
}

func botMsg(id uint64, user, text string) api.Message {
	return api.Message{ID: id, Sender: conversation.ResponderSender(user), BotText: ptr(text), CreatedAt: time.Unix(int64(id), 0)}
}

func unauthorized() error {
	return &api.Error{StatusCode: http.StatusUnauthorized, Message: "Usuário não está logado"}
}

func openStorage(t *testing.T, path string) *sqlstore.Store {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	st, err := sqlstore.New(db)
	require.NoError(t, err)
	return st
}

type harness struct {
	svc     *fakeService
	store   *session.Store
	ctrl    *conversation.Controller
	path    string
	states  []conversation.State
	statesM sync.Mutex
	logs    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		svc:  &fakeService{},
		path: filepath.Join(t.TempDir(), "client.db"),
		logs: &bytes.Buffer{},
	}
	h.store = session.NewStore(openStorage(t, h.path))
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h.ctrl = conversation.NewController(h.svc, h.store,
		conversation.WithLogger(logger),
		conversation.WithOnChange(func(s conversation.State) {
			h.statesM.Lock()
			h.states = append(h.states, s)
			h.statesM.Unlock()
		}),
	)
	return h
}

// persisted reads the identity a fresh process would restore.
func (h *harness) persisted(t *testing.T) string {
	t.Helper()
	return session.NewStore(openStorage(t, h.path)).Restore(context.Background())
}

func (h *harness) loginAs(t *testing.T, user string, history ...api.Message) {
	t.Helper()
	h.svc.set(func(f *fakeService) { f.history = history })
	h.ctrl.Login(context.Background(), user)
	require.Equal(t, user, h.ctrl.State().ActiveUser)
}

func TestLogin_SuccessSetsSessionAndRefreshesOnce(t *testing.T) {
	h := newHarness(t)
	history := []api.Message{userMsg(1, "A", "hi"), botMsg(2, "A", "Obrigado")}
	h.svc.history = history

	h.ctrl.Login(context.Background(), "A")

	st := h.ctrl.State()
	assert.Equal(t, "A", st.ActiveUser)
	assert.Equal(t, history, st.Messages)
	assert.Equal(t, conversation.StatusIdle, st.Status)
	assert.Empty(t, st.Error)
	assert.Equal(t, 1, h.svc.lists)
	assert.Equal(t, "A", h.persisted(t))
}

func TestLogin_ConfirmedIdentityIsAuthoritative(t *testing.T) {
	h := newHarness(t)
	h.svc.loginUser = "B"

	h.ctrl.Login(context.Background(), "A")

	assert.Equal(t, "B", h.ctrl.State().ActiveUser)
	assert.Equal(t, "B", h.persisted(t))
}

func TestLogin_FailureLeavesStateAlone(t *testing.T) {
	h := newHarness(t)

	h.svc.loginErr = &api.Error{StatusCode: http.StatusBadRequest, Message: "invalid user type"}
	h.ctrl.Login(context.Background(), "C")

	st := h.ctrl.State()
	assert.Equal(t, "", st.ActiveUser)
	assert.Equal(t, "invalid user type", st.Error)
	assert.Equal(t, 0, h.svc.lists)
	assert.Equal(t, "", h.persisted(t))
}

func TestLogin_FailureKeepsExistingSessionAndMessages(t *testing.T) {
	h := newHarness(t)
	history := []api.Message{userMsg(1, "A", "hi")}
	h.loginAs(t, "A", history...)

	h.svc.set(func(f *fakeService) { f.loginErr = errors.New("connection refused") })
	h.ctrl.Login(context.Background(), "B")

	st := h.ctrl.State()
	assert.Equal(t, "A", st.ActiveUser)
	assert.Equal(t, history, st.Messages)
	assert.Equal(t, conversation.ErrTextLogin, st.Error)
	assert.Equal(t, 1, h.svc.lists)
}

func TestRefresh_ReplacesList(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A", userMsg(1, "A", "m1"), botMsg(2, "A", "m2"))

	m3 := userMsg(3, "A", "m3")
	h.svc.set(func(f *fakeService) { f.history = []api.Message{m3} })
	h.ctrl.RefreshMessages(context.Background())

	assert.Equal(t, []api.Message{m3}, h.ctrl.State().Messages)
}

func TestRefresh_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	history := []api.Message{userMsg(1, "A", "m1"), botMsg(2, "A", "m2")}
	h.loginAs(t, "A", history...)

	h.ctrl.RefreshMessages(context.Background())
	h.ctrl.RefreshMessages(context.Background())

	assert.Equal(t, history, h.ctrl.State().Messages)
	assert.Equal(t, 3, h.svc.lists)
}

func TestRefresh_WithoutSessionMakesNoRequest(t *testing.T) {
	h := newHarness(t)

	h.ctrl.RefreshMessages(context.Background())

	st := h.ctrl.State()
	assert.Empty(t, st.Messages)
	assert.Equal(t, conversation.StatusIdle, st.Status)
	assert.Equal(t, 0, h.svc.lists)
}

func TestRefresh_ReportsLoadingWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A")

	var during conversation.State
	h.svc.set(func(f *fakeService) {
		f.beforeList = func() { during = h.ctrl.State() }
	})
	h.ctrl.RefreshMessages(context.Background())

	assert.Equal(t, conversation.StatusLoading, during.Status)
	assert.Equal(t, conversation.StatusIdle, h.ctrl.State().Status)
}

func TestRefresh_UnauthorizedLogsOutLocally(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A", userMsg(1, "A", "m1"))

	h.svc.set(func(f *fakeService) { f.listErr = unauthorized() })
	h.ctrl.RefreshMessages(context.Background())

	st := h.ctrl.State()
	assert.Equal(t, "", st.ActiveUser)
	assert.Empty(t, st.Messages)
	assert.Equal(t, "Usuário não está logado", st.Error)
	assert.Equal(t, conversation.StatusIdle, st.Status)
	assert.Equal(t, "", h.persisted(t))
	assert.Equal(t, 0, h.svc.logouts, "forced logout is local only")
}

func TestRefresh_TransientFailureKeepsList(t *testing.T) {
	h := newHarness(t)
	history := []api.Message{userMsg(1, "A", "m1")}
	h.loginAs(t, "A", history...)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"network", errors.New("dial tcp: connection refused"), conversation.ErrTextRefresh},
		{"server error with payload", &api.Error{StatusCode: 500, Message: "db down"}, "db down"},
		{"forbidden is not unauthorized", &api.Error{StatusCode: http.StatusForbidden}, conversation.ErrTextRefresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.svc.set(func(f *fakeService) { f.listErr = tt.err })
			h.ctrl.RefreshMessages(context.Background())

			st := h.ctrl.State()
			assert.Equal(t, "A", st.ActiveUser)
			assert.Equal(t, history, st.Messages)
			assert.Equal(t, tt.want, st.Error)
			assert.Equal(t, conversation.StatusIdle, st.Status)
		})
	}

	// a later success clears the error
	h.svc.set(func(f *fakeService) { f.listErr = nil })
	h.ctrl.RefreshMessages(context.Background())
	assert.Empty(t, h.ctrl.State().Error)
}

func TestRefresh_StaleResultIsDroppedAfterLogout(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A")

	h.svc.set(func(f *fakeService) {
		f.history = []api.Message{userMsg(1, "A", "late")}
		f.beforeList = func() { h.ctrl.Logout(context.Background()) }
	})
	h.ctrl.RefreshMessages(context.Background())

	st := h.ctrl.State()
	assert.Equal(t, "", st.ActiveUser)
	assert.Empty(t, st.Messages)
	assert.Equal(t, conversation.StatusIdle, st.Status)
}

func TestLogout_ClearsEverything(t *testing.T) {
	tests := []struct {
		name      string
		logoutErr error
		wantErr   string
	}{
		{"success", nil, ""},
		{"network failure", errors.New("no route to host"), conversation.ErrTextLogout},
		{"service error", &api.Error{StatusCode: 500, Message: "boom"}, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.loginAs(t, "B", userMsg(1, "B", "m1"), botMsg(2, "B", "m2"))

			h.svc.set(func(f *fakeService) { f.logoutErr = tt.logoutErr })
			h.ctrl.Logout(context.Background())

			st := h.ctrl.State()
			assert.Equal(t, "", st.ActiveUser)
			assert.Empty(t, st.Messages)
			assert.Equal(t, tt.wantErr, st.Error)
			assert.Equal(t, "", h.persisted(t))
			assert.Equal(t, 1, h.svc.logouts)
		})
	}
}

func TestSend_AppendsUserThenBot(t *testing.T) {
	h := newHarness(t)
	existing := userMsg(1, "B", "earlier")
	h.loginAs(t, "B", existing)

	// the reply is older and has a lower id than the user message; order
	// must still be user message first
	um := userMsg(11, "B", "Hello")
	bm := botMsg(10, "B", "Thanks")
	bm.CreatedAt = um.CreatedAt.Add(-time.Minute)
	h.svc.set(func(f *fakeService) { f.sent = api.SentMessages{UserMessage: um, BotMessage: bm} })

	h.ctrl.SetInput("Hello")
	h.ctrl.SendMessage(context.Background(), "Hello")

	st := h.ctrl.State()
	assert.Equal(t, []api.Message{existing, um, bm}, st.Messages)
	assert.Equal(t, "", st.Input)
	assert.Empty(t, st.Error)
	assert.Equal(t, []string{"Hello"}, h.svc.sentTexts)
	assert.Equal(t, 1, h.svc.lists, "send must not trigger a refresh")
}

func TestSend_BlankTextIsNoop(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A", userMsg(1, "A", "m1"))
	h.ctrl.SetInput("   ")
	before := h.ctrl.State()

	h.statesM.Lock()
	notified := len(h.states)
	h.statesM.Unlock()

	for _, text := range []string{"", "   ", "\t\n"} {
		h.ctrl.SendMessage(context.Background(), text)
	}
	h.ctrl.Submit(context.Background())

	assert.Equal(t, 0, h.svc.sends)
	assert.Equal(t, before, h.ctrl.State())
	h.statesM.Lock()
	assert.Equal(t, notified, len(h.states), "no state change should be published")
	h.statesM.Unlock()
}

func TestSend_TrimsText(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A")
	h.svc.set(func(f *fakeService) {
		f.sent = api.SentMessages{UserMessage: userMsg(1, "A", "hi"), BotMessage: botMsg(2, "A", "ok")}
	})

	h.ctrl.SendMessage(context.Background(), "  hi \n")

	assert.Equal(t, []string{"hi"}, h.svc.sentTexts)
}

func TestSend_FailurePreservesInput(t *testing.T) {
	h := newHarness(t)
	history := []api.Message{userMsg(1, "A", "m1")}
	h.loginAs(t, "A", history...)

	h.svc.set(func(f *fakeService) { f.sendErr = &api.Error{StatusCode: 400, Message: "O texto é obrigatório"} })
	h.ctrl.SetInput("retry me")
	h.ctrl.Submit(context.Background())

	st := h.ctrl.State()
	assert.Equal(t, "retry me", st.Input)
	assert.Equal(t, "O texto é obrigatório", st.Error)
	assert.Equal(t, history, st.Messages)
	assert.Equal(t, "A", st.ActiveUser)

	h.svc.set(func(f *fakeService) { f.sendErr = errors.New("timeout") })
	h.ctrl.Submit(context.Background())
	assert.Equal(t, conversation.ErrTextSend, h.ctrl.State().Error)
	assert.Equal(t, "retry me", h.ctrl.State().Input)
}

func TestSend_UnauthorizedLogsOutLocally(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A", userMsg(1, "A", "m1"))

	h.svc.set(func(f *fakeService) { f.sendErr = unauthorized() })
	h.ctrl.SetInput("hello?")
	h.ctrl.Submit(context.Background())

	st := h.ctrl.State()
	assert.Equal(t, "", st.ActiveUser)
	assert.Empty(t, st.Messages)
	assert.Equal(t, "Usuário não está logado", st.Error)
	assert.Equal(t, "hello?", st.Input)
	assert.Equal(t, "", h.persisted(t))
}

func TestStart_RestoresAndRefreshes(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "B"))

	history := []api.Message{userMsg(1, "B", "m1")}
	h.svc.history = history

	// a fresh controller over the same storage
	store := session.NewStore(openStorage(t, h.path))
	ctrl := conversation.NewController(h.svc, store)
	ctrl.Start(context.Background())

	st := ctrl.State()
	assert.Equal(t, "B", st.ActiveUser)
	assert.Equal(t, history, st.Messages)
	assert.Equal(t, 1, h.svc.lists)
}

func TestStart_NoSessionNoRequest(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Start(context.Background())

	assert.False(t, h.ctrl.State().LoggedIn())
	assert.Equal(t, 0, h.svc.lists)
}

func TestStateIsACopy(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A", userMsg(1, "A", "original"))

	st := h.ctrl.State()
	*st.Messages[0].UserText = "tampered"
	st.Messages[0] = userMsg(99, "A", "replaced")

	assert.Equal(t, "original", h.ctrl.State().Messages[0].Text())
}

func TestUnexpectedSenderIsLogged(t *testing.T) {
	h := newHarness(t)
	h.loginAs(t, "A", userMsg(1, "A", "mine"), userMsg(2, "B", "not mine"))

	assert.Contains(t, h.logs.String(), "message from unexpected sender")
	assert.Contains(t, h.logs.String(), "sender=B")
	assert.Len(t, h.ctrl.State().Messages, 2)
}

type readOnlyStorage struct{}

func (readOnlyStorage) Get(context.Context, string) (string, error) { return "", session.ErrNotFound }
func (readOnlyStorage) Set(context.Context, string, string) error {
	return errors.New("disk is read-only")
}
func (readOnlyStorage) Delete(context.Context, string) error { return nil }

func TestLogin_PersistFailureIsALoginFailure(t *testing.T) {
	svc := &fakeService{}
	ctrl := conversation.NewController(svc, session.NewStore(readOnlyStorage{}))

	ctrl.Login(context.Background(), "A")

	st := ctrl.State()
	assert.Equal(t, "", st.ActiveUser)
	assert.Equal(t, conversation.ErrTextLogin, st.Error)
	assert.Equal(t, 0, svc.lists, "no refresh after a failed login")
}
