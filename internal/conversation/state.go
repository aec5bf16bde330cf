package conversation

import "github.com/suPer8Hu/message-app/internal/api"

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
)

// State is what a front end renders. It is a copy; mutating it has no effect
// on the controller.
type State struct {
	// ActiveUser is "" when nobody is logged in.
	ActiveUser string
	Messages   []api.Message
	// Input is the pending, not yet sent text.
	Input  string
	Status Status
	// Error is the user-visible error text, "" when there is none.
	Error string
}

func (s State) LoggedIn() bool { return s.ActiveUser != "" }

func cloneMessages(in []api.Message) []api.Message {
	out := make([]api.Message, len(in))
	for i, m := range in {
		out[i] = cloneMessage(m)
	}
	return out
}

func cloneMessage(m api.Message) api.Message {
	if m.UserText != nil {
		t := *m.UserText
		m.UserText = &t
	}
	if m.BotText != nil {
		t := *m.BotText
		m.BotText = &t
	}
	return m
}
