package conversation

import (
	"strings"

	"github.com/suPer8Hu/message-app/internal/api"
)

// ResponderPrefix is the service's naming convention for the automated
// responder: the prefix followed by the identity of the user it answers.
const ResponderPrefix = "Usuário: "

// ResponderSender is the sender the service uses for replies to user.
func ResponderSender(user string) string {
	return ResponderPrefix + user
}

// IsResponderSender reports whether sender follows the responder convention.
func IsResponderSender(sender string) bool {
	return strings.HasPrefix(sender, ResponderPrefix) && len(sender) > len(ResponderPrefix)
}

type Kind int

const (
	KindOwn Kind = iota
	KindResponder
	// KindOther should not happen: the service only returns the active
	// user's messages and the replies to them.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindOwn:
		return "own"
	case KindResponder:
		return "responder"
	default:
		return "other"
	}
}

func Classify(m api.Message, activeUser string) Kind {
	switch {
	case activeUser != "" && m.Sender == activeUser:
		return KindOwn
	case IsResponderSender(m.Sender):
		return KindResponder
	default:
		return KindOther
	}
}

// DisplayName is the label a front end shows above a message.
func DisplayName(m api.Message, activeUser string) string {
	switch Classify(m, activeUser) {
	case KindOwn:
		return "You"
	case KindResponder:
		return "Bot"
	default:
		return m.Sender
	}
}
