// Package api is the HTTP client for the message service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

const (
	loginPath        = "/message/login/"
	logoutPath       = "/message/logout/"
	userMessagesPath = "/message/user_messages/"
	sendMessagePath  = "/message/send_message/"
)

// Client keeps the service's session cookie in its jar, so one Client
// corresponds to one logged-in browser.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8001/api"
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

var ErrNoActiveUser = errors.New("api: login response has no active_user")

// Login returns the identity the service confirmed, which is authoritative
// over the requested one.
func (c *Client) Login(ctx context.Context, user string) (string, error) {
	var out loginResp
	if err := c.do(ctx, http.MethodPost, loginPath, loginReq{User: user}, &out); err != nil {
		return "", err
	}
	if out.ActiveUser == "" {
		return "", ErrNoActiveUser
	}
	return out.ActiveUser, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, logoutPath, nil, nil)
}

func (c *Client) UserMessages(ctx context.Context) ([]Message, error) {
	var out []Message
	if err := c.do(ctx, http.MethodGet, userMessagesPath, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Message{}
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, text string) (SentMessages, error) {
	var out SentMessages
	if err := c.do(ctx, http.MethodPost, sendMessagePath, sendMessageReq{Text: text}, &out); err != nil {
		return SentMessages{}, err
	}
	if err := out.UserMessage.Validate(); err != nil {
		return SentMessages{}, fmt.Errorf("user_message: %w", err)
	}
	if err := out.BotMessage.Validate(); err != nil {
		return SentMessages{}, fmt.Errorf("bot_message: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.HTTP == nil {
		return errors.New("api: http client is nil")
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return &Error{StatusCode: resp.StatusCode, Message: parseErrorBody(b)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}
