package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/suPer8Hu/message-app/internal/api"
	"github.com/suPer8Hu/message-app/internal/config"
	"github.com/suPer8Hu/message-app/internal/conversation"
	"github.com/suPer8Hu/message-app/internal/db"
	"github.com/suPer8Hu/message-app/internal/observability"
	"github.com/suPer8Hu/message-app/internal/session"
	"github.com/suPer8Hu/message-app/internal/store/redisstore"
	"github.com/suPer8Hu/message-app/internal/store/sqlstore"
)

const help = `commands:
  /login A|B   log in as user A or B
  /logout      log out
  /refresh     reload the message history
  /quit        exit
anything else is sent as a message`

func openStorage(cfg config.Config) (session.Storage, func(), error) {
	switch cfg.ClientStore {
	case "redis":
		s, err := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "message-app:")
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "sqlite", "mysql", "":
		gdb, err := db.Connect(cfg.ClientStoreDSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := sqlstore.New(gdb)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported CLIENT_STORE=%q", cfg.ClientStore)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg := config.Load()
	logger := observability.NewTextLogger(os.Stderr, cfg.LogLevel)

	storage, closeStorage, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("client store: %v", err)
	}
	defer closeStorage()

	client, err := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	if err != nil {
		log.Fatalf("api client: %v", err)
	}

	store := session.NewStore(storage, session.WithKey(cfg.SessionKey), session.WithLogger(logger))
	ctrl := conversation.NewController(client, store, conversation.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := &terminal{out: os.Stdout}
	fmt.Fprintln(term.out, help)

	ctrl.Start(ctx)
	term.render(ctrl.State())

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, ctrl, line); quit {
				return
			}
			term.render(ctrl.State())
		}
	}
}

func handleLine(ctx context.Context, ctrl *conversation.Controller, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/login":
		if len(fields) != 2 {
			fmt.Println("usage: /login A|B")
			return false
		}
		ctrl.Login(ctx, strings.ToUpper(fields[1]))
	case "/logout":
		ctrl.Logout(ctx)
	case "/refresh":
		ctrl.RefreshMessages(ctx)
	case "/help":
		fmt.Println(help)
	default:
		ctrl.SetInput(line)
		ctrl.Submit(ctx)
	}
	return false
}

// terminal prints only what changed since the last render.
type terminal struct {
	out       io.Writer
	started   bool
	user      string
	shown     []uint64
	lastError string
}

func (t *terminal) render(st conversation.State) {
	if !t.started || st.ActiveUser != t.user {
		t.started = true
		t.user = st.ActiveUser
		t.shown = nil
		if st.LoggedIn() {
			fmt.Fprintf(t.out, "-- logged in as User %s --\n", st.ActiveUser)
		} else {
			fmt.Fprintln(t.out, "-- logged out: /login A or /login B --")
		}
	}

	if !sameprefix(t.shown, st.Messages) {
		if st.LoggedIn() {
			fmt.Fprintln(t.out, "-- messages --")
		}
		t.shown = nil
	}
	for _, m := range st.Messages[len(t.shown):] {
		fmt.Fprintf(t.out, "[%s] %s: %s\n",
			m.CreatedAt.Local().Format(time.DateTime), conversation.DisplayName(m, st.ActiveUser), m.Text())
		t.shown = append(t.shown, m.ID)
	}
	if st.LoggedIn() && len(st.Messages) == 0 && len(t.shown) == 0 && st.Error == "" {
		fmt.Fprintln(t.out, "No messages yet. Start a conversation!")
	}

	if st.Error != "" && st.Error != t.lastError {
		fmt.Fprintf(t.out, "! %s\n", st.Error)
	}
	t.lastError = st.Error
}

// sameprefix reports whether shown is a prefix of msgs by id.
func sameprefix(shown []uint64, msgs []api.Message) bool {
	if len(shown) > len(msgs) {
		return false
	}
	for i, id := range shown {
		if msgs[i].ID != id {
			return false
		}
	}
	return true
}
